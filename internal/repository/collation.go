package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

// Normalized keys are already trimmed and lowercased, so lookups and unique
// indexes must compare them byte for byte. MySQL's default utf8mb4 collation
// folds accents and case; SQLite already compares bytes.
const binaryKeysVersion = 2

func binaryKeysUp(driver string) []string {
	if driver != DriverMySQL {
		return nil
	}
	return []string{
		`ALTER TABLE users MODIFY email VARCHAR(320) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL`,
		`ALTER TABLE labels MODIFY name_normalized VARCHAR(200) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL`,
	}
}

func binaryKeysDown(driver string) []string {
	if driver != DriverMySQL {
		return nil
	}
	return []string{
		`ALTER TABLE labels MODIFY name_normalized VARCHAR(200) NOT NULL`,
		`ALTER TABLE users MODIFY email VARCHAR(320) NOT NULL`,
	}
}

// binaryKeysMigration runs outside a transaction: MySQL commits DDL implicitly.
func binaryKeysMigration(driver string) *goose.Migration {
	run := func(stmts []string) *goose.GoFunc {
		return &goose.GoFunc{
			RunDB: func(ctx context.Context, db *sql.DB) error {
				for _, stmt := range stmts {
					if _, err := db.ExecContext(ctx, stmt); err != nil {
						return fmt.Errorf("binary keys: %w", err)
					}
				}
				return nil
			},
		}
	}
	return goose.NewGoMigration(binaryKeysVersion, run(binaryKeysUp(driver)), run(binaryKeysDown(driver)))
}
