package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/smallbiznis/investorhub/internal/recordstore/domain"
	"github.com/smallbiznis/investorhub/pkg/db"
	"gorm.io/gorm"
)

// Run brings the schema up to date. Postgres uses the versioned SQL files;
// SQLite and MySQL are created from the record models.
func Run(conn *gorm.DB, dbType string) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}

	switch dbType {
	case db.TypeMySQL:
		if err := AutoMigrate(conn); err != nil {
			return err
		}
		return PinKeyCollation(conn)
	case db.TypePostgres:
	default:
		return AutoMigrate(conn)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(domain.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// keyColumns hold emails and agreement ids, which are matched exactly.
var keyColumns = []struct{ table, column string }{
	{"investors", "email"},
	{"investments", "investor_email"},
	{"payouts", "investor_email"},
	{"agreements", "investor_email"},
	{"agreements", "agreement_id"},
	{"consent_events", "email"},
}

// PinKeyCollation switches the key columns to a binary collation. MySQL's
// default collation folds case, which would make Asha@x and asha@x collide.
func PinKeyCollation(conn *gorm.DB) error {
	for _, c := range keyColumns {
		stmt := fmt.Sprintf("ALTER TABLE `%s` MODIFY `%s` VARCHAR(191) NOT NULL COLLATE utf8mb4_bin", c.table, c.column)
		if err := conn.Exec(stmt).Error; err != nil {
			return fmt.Errorf("pin collation %s.%s: %w", c.table, c.column, err)
		}
	}
	return nil
}

func RunMigrations(sqlDB *sql.DB) error {
	if sqlDB == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Closing the migrator would close the shared *sql.DB.

	return nil
}
