// Package sheet reads spreadsheet exports of the investor workbook. Columns are
// addressed by header name so re-ordered or extended sheets keep importing.
package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrEmptySheet = errors.New("sheet has no header row")

// Table is a parsed sheet: the header index plus the data rows below it.
type Table struct {
	name   string
	header map[string]int
	rows   [][]string
}

// Row is one data row; Line is the 1-based spreadsheet line including the header.
type Row struct {
	Line  int
	table *Table
	cells []string
}

func Read(name string, r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read %s: %w", name, ErrEmptySheet)
	}

	header := make(map[string]int, len(records[0]))
	for i, column := range records[0] {
		key := normalizeHeader(column)
		if key == "" {
			continue
		}
		if _, exists := header[key]; !exists {
			header[key] = i
		}
	}

	rows := make([][]string, 0, len(records)-1)
	for _, record := range records[1:] {
		if isBlank(record) {
			rows = append(rows, nil)
			continue
		}
		rows = append(rows, record)
	}

	return &Table{name: name, header: header, rows: rows}, nil
}

func (t *Table) Name() string {
	return t.name
}

// Rows returns the non-blank data rows in sheet order.
func (t *Table) Rows() []Row {
	out := make([]Row, 0, len(t.rows))
	for i, cells := range t.rows {
		if cells == nil {
			continue
		}
		out = append(out, Row{Line: i + 2, table: t, cells: cells})
	}
	return out
}

// Has reports whether any of the given header names is present.
func (t *Table) Has(names ...string) bool {
	_, ok := t.column(names)
	return ok
}

// Require fails when a column is missing; each argument lists accepted aliases.
func (t *Table) Require(columns ...[]string) error {
	var missing []string
	for _, aliases := range columns {
		if !t.Has(aliases...) {
			missing = append(missing, aliases[0])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing column(s) %s", t.name, strings.Join(missing, ", "))
	}
	return nil
}

func (t *Table) column(names []string) (int, bool) {
	for _, name := range names {
		if idx, ok := t.header[normalizeHeader(name)]; ok {
			return idx, true
		}
	}
	return 0, false
}

// Get returns the trimmed cell under the first matching header, or "".
func (r Row) Get(names ...string) string {
	idx, ok := r.table.column(names)
	if !ok || idx >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[idx])
}

// normalizeHeader folds case and drops spaces, underscores and dashes, so
// "Member Since", "member_since" and "MemberSince" address the same column.
func normalizeHeader(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch r {
		case ' ', '_', '-', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
