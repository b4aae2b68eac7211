package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the folder, file and closure tables if they don't
// exist. Sibling-name uniqueness is enforced with partial unique indexes
// scoped to live rows, so names held by trashed items stay reusable. The
// closure table checks keep depth-0 rows exactly the reflexive ones.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames, tablePrefix string) error {
	// Enable UUID extension
	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`); err != nil {
		return fmt.Errorf("create uuid extension: %w", err)
	}

	createFolders := `
		CREATE TABLE IF NOT EXISTS ` + tables.Folders + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			owner_id UUID NOT NULL,
			parent_id UUID REFERENCES ` + tables.Folders + `(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			path TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			deleted_at TIMESTAMPTZ,
			delete_batch_id UUID
		)
	`
	if _, err := pool.Exec(ctx, createFolders); err != nil {
		return fmt.Errorf("create folders table: %w", err)
	}

	createFiles := `
		CREATE TABLE IF NOT EXISTS ` + tables.Files + ` (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			owner_id UUID NOT NULL,
			folder_id UUID REFERENCES ` + tables.Folders + `(id) ON DELETE SET NULL,
			name TEXT NOT NULL,
			size_bytes BIGINT NOT NULL DEFAULT 0,
			content_hash TEXT NOT NULL DEFAULT '',
			storage_path TEXT NOT NULL DEFAULT '',
			mime_type TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			deleted_at TIMESTAMPTZ,
			delete_batch_id UUID
		)
	`
	if _, err := pool.Exec(ctx, createFiles); err != nil {
		return fmt.Errorf("create files table: %w", err)
	}

	createClosure := `
		CREATE TABLE IF NOT EXISTS ` + tables.FolderClosure + ` (
			ancestor_id UUID NOT NULL REFERENCES ` + tables.Folders + `(id) ON DELETE CASCADE,
			descendant_id UUID NOT NULL REFERENCES ` + tables.Folders + `(id) ON DELETE CASCADE,
			depth INTEGER NOT NULL CHECK (depth >= 0),
			PRIMARY KEY (ancestor_id, descendant_id),
			CHECK ((ancestor_id = descendant_id) = (depth = 0))
		)
	`
	if _, err := pool.Exec(ctx, createClosure); err != nil {
		return fmt.Errorf("create closure table: %w", err)
	}

	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + tablePrefix + `folders_sibling_unique ON ` + tables.Folders + `(owner_id, parent_id, name) WHERE deleted_at IS NULL AND parent_id IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + tablePrefix + `folders_root_unique ON ` + tables.Folders + `(owner_id, name) WHERE deleted_at IS NULL AND parent_id IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `folders_owner_parent ON ` + tables.Folders + `(owner_id, parent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `folders_batch ON ` + tables.Folders + `(delete_batch_id) WHERE delete_batch_id IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + tablePrefix + `files_folder_unique ON ` + tables.Files + `(owner_id, folder_id, name) WHERE deleted_at IS NULL AND folder_id IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + tablePrefix + `files_root_unique ON ` + tables.Files + `(owner_id, name) WHERE deleted_at IS NULL AND folder_id IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `files_owner_folder ON ` + tables.Files + `(owner_id, folder_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `files_batch ON ` + tables.Files + `(delete_batch_id) WHERE delete_batch_id IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `closure_descendant ON ` + tables.FolderClosure + `(descendant_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `closure_ancestor_depth ON ` + tables.FolderClosure + `(ancestor_id, depth)`,
	}

	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	return nil
}

// DropTables drops all tables in dependency order
func DropTables(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	tableNames := []string{
		tables.FolderClosure,
		tables.Files,
		tables.Folders,
	}

	for _, table := range tableNames {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			return fmt.Errorf("drop table %s: %w", table, err)
		}
	}

	return nil
}
