package storage

import (
	"embed"

	"github.com/ACUCyS/weekly-ctf-bot/config"
	"github.com/ACUCyS/weekly-ctf-bot/utils"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

// MigrateUp 버전 관리되는 SQL 마이그레이션을 적용합니다. postgres 전용이며
// sqlite 와 mysql 은 AUTO_MIGRATE 로 스키마를 만듭니다.
func MigrateUp(databaseURL string) error {
	m, err := newMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "migrate up")
	}

	version, dirty, _ := m.Version()
	utils.Info("Database schema at version %d (dirty=%v)", version, dirty)
	return nil
}

// MigrateDown 마지막 마이그레이션 하나를 되돌립니다
func MigrateDown(databaseURL string) error {
	m, err := newMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	if err := m.Steps(-1); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "migrate down")
	}
	return nil
}

func newMigrator(databaseURL string) (*migrate.Migrate, error) {
	dialect, err := config.DatabaseDialect(databaseURL)
	if err != nil {
		return nil, err
	}
	if dialect != config.DialectPostgres {
		return nil, errors.Errorf("versioned migrations support postgres only (got %s); use AUTO_MIGRATE instead", dialect)
	}

	source, err := iofs.New(postgresMigrations, "migrations/postgres")
	if err != nil {
		return nil, errors.Wrap(err, "load migrations")
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "init migrate")
	}
	return m, nil
}

func closeMigrator(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		utils.Warn("Failed to close migration source: %v", srcErr)
	}
	if dbErr != nil {
		utils.Warn("Failed to close migration database: %v", dbErr)
	}
}
