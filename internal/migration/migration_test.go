package migration

import (
	"errors"
	"io/fs"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/smallbiznis/investorhub/pkg/db"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}

	ups, downs := 0, 0
	for _, entry := range entries {
		switch {
		case strings.HasSuffix(entry.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(entry.Name(), ".down.sql"):
			downs++
		}
	}
	if ups == 0 || ups != downs {
		t.Fatalf("expected paired migrations, got %d up and %d down", ups, downs)
	}
}

func TestRunAutoMigratesSQLite(t *testing.T) {
	conn := db.NewTest(t)

	if err := Run(conn, db.TypeSQLite); err != nil {
		t.Fatalf("run: %v", err)
	}

	for _, table := range []string{"investors", "investments", "payouts", "agreements", "consent_events"} {
		if !conn.Migrator().HasTable(table) {
			t.Fatalf("expected table %s", table)
		}
	}
}

func newMySQLMock(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	conn, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return conn, mock
}

func TestPinKeyCollationUsesBinaryCollation(t *testing.T) {
	conn, mock := newMySQLMock(t)

	for _, c := range keyColumns {
		stmt := "ALTER TABLE `" + c.table + "` MODIFY `" + c.column + "` VARCHAR(191) NOT NULL COLLATE utf8mb4_bin"
		mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	if err := PinKeyCollation(conn); err != nil {
		t.Fatalf("pin collation: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPinKeyCollationReportsColumn(t *testing.T) {
	conn, mock := newMySQLMock(t)

	mock.ExpectExec("ALTER TABLE `investors`").WillReturnError(errors.New("access denied"))

	err := PinKeyCollation(conn)
	if err == nil || !strings.Contains(err.Error(), "investors.email") {
		t.Fatalf("expected error naming investors.email, got %v", err)
	}
}
