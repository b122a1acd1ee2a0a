package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"questlog/internal/auth"
	"questlog/internal/docstore"
	"questlog/internal/jobs"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	// Tables
	models := append(docstore.Models(), &jobs.Job{}, &auth.User{})
	if err := gdb.AutoMigrate(models...); err != nil {
		return err
	}

	// Helpful indexes
	stmts := []string{
		`create index if not exists idx_fields_entity on fields(kind, entity_id);`,
		`create index if not exists idx_change_keys_entity on change_keys(kind, entity_id, change_id);`,
		`create index if not exists idx_fields_value on fields using gin (value jsonb_path_ops);`,
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
