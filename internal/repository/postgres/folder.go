package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cabinet/internal/domain"
	"cabinet/internal/domain/models"
	"cabinet/internal/domain/repositories"
)

// PostgresFolderRepository implements the FolderRepository interface
type PostgresFolderRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewFolderRepository creates a new folder repository
func NewFolderRepository(config *RepositoryConfig) repositories.FolderRepository {
	return &PostgresFolderRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create inserts a new folder row
func (r *PostgresFolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, owner_id, parent_id, name, path, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		folder.ID,
		folder.OwnerID,
		folder.ParentID,
		folder.Name,
		folder.Path,
		folder.CreatedAt,
		folder.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("folder '%s': %w", folder.Name, domain.ErrConflict)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("parent folder: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("create folder: %w", err)
	}

	return nil
}

// GetByID retrieves a folder by ID, deleted or not
func (r *PostgresFolderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT id, owner_id, parent_id, name, path, created_at, updated_at, deleted_at, delete_batch_id
		FROM %s
		WHERE id = $1
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	folder, err := scanFolder(executor.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}

	return folder, nil
}

// Update persists name, parent, path and updated_at
func (r *PostgresFolderRepository) Update(ctx context.Context, folder *models.Folder) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET parent_id = $1, name = $2, path = $3, updated_at = $4
		WHERE id = $5
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		folder.ParentID,
		folder.Name,
		folder.Path,
		folder.UpdatedAt,
		folder.ID,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("folder '%s': %w", folder.Name, domain.ErrConflict)
		}
		return fmt.Errorf("update folder: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrNotFound)
	}

	return nil
}

// ListChildren lists live immediate child folders, name-ordered
func (r *PostgresFolderRepository) ListChildren(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) ([]models.Folder, error) {
	var query string
	var args []interface{}

	if parentID == nil {
		query = fmt.Sprintf(`
			SELECT id, owner_id, parent_id, name, path, created_at, updated_at, deleted_at, delete_batch_id
			FROM %s
			WHERE owner_id = $1 AND parent_id IS NULL AND deleted_at IS NULL
			ORDER BY name ASC
		`, r.tables.Folders)
		args = append(args, ownerID)
	} else {
		query = fmt.Sprintf(`
			SELECT id, owner_id, parent_id, name, path, created_at, updated_at, deleted_at, delete_batch_id
			FROM %s
			WHERE owner_id = $1 AND parent_id = $2 AND deleted_at IS NULL
			ORDER BY name ASC
		`, r.tables.Folders)
		args = append(args, ownerID, *parentID)
	}

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list folder children: %w", err)
	}
	defer rows.Close()

	return collectFolders(rows)
}

// FindChildByName finds a live child with the exact name under parentID
func (r *PostgresFolderRepository) FindChildByName(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID, name string) (*models.Folder, error) {
	var query string
	var args []interface{}

	if parentID == nil {
		query = fmt.Sprintf(`
			SELECT id, owner_id, parent_id, name, path, created_at, updated_at, deleted_at, delete_batch_id
			FROM %s
			WHERE owner_id = $1 AND name = $2 AND parent_id IS NULL AND deleted_at IS NULL
		`, r.tables.Folders)
		args = append(args, ownerID, name)
	} else {
		query = fmt.Sprintf(`
			SELECT id, owner_id, parent_id, name, path, created_at, updated_at, deleted_at, delete_batch_id
			FROM %s
			WHERE owner_id = $1 AND name = $2 AND parent_id = $3 AND deleted_at IS NULL
		`, r.tables.Folders)
		args = append(args, ownerID, name, *parentID)
	}

	executor := GetExecutor(ctx, r.pool)
	folder, err := scanFolder(executor.QueryRow(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, nil // Not found, not an error
		}
		return nil, fmt.Errorf("find child by name: %w", err)
	}

	return folder, nil
}

// ListByOwner retrieves all folders of an owner as a flat list
func (r *PostgresFolderRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, includeDeleted bool) ([]models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT id, owner_id, parent_id, name, path, created_at, updated_at, deleted_at, delete_batch_id
		FROM %s
		WHERE owner_id = $1
	`, r.tables.Folders)
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}
	query += " ORDER BY path ASC"

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list folders by owner: %w", err)
	}
	defer rows.Close()

	return collectFolders(rows)
}

// LockForUpdate takes row locks on the given folders in id order
func (r *PostgresFolderRepository) LockForUpdate(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	// Deterministic lock order keeps concurrent mutations deadlock-free
	query := fmt.Sprintf(`
		SELECT id FROM %s WHERE id = ANY($1) ORDER BY id FOR UPDATE
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("lock folders: %w", err)
	}
	rows.Close()

	if err := rows.Err(); err != nil {
		return fmt.Errorf("lock folders: %w", err)
	}

	return nil
}

// RecomputePaths rewrites the materialized path of rootID and every live
// folder below it. Paths are rebuilt from the ancestor names recorded in the
// closure index, ordered root first, so a rename or move never needs string
// substitution on existing paths.
func (r *PostgresFolderRepository) RecomputePaths(ctx context.Context, rootID uuid.UUID) error {
	query := fmt.Sprintf(`
		UPDATE %s f
		SET path = computed.path, updated_at = NOW()
		FROM (
			SELECT sub.descendant_id AS id,
			       string_agg(af.name, '/' ORDER BY anc.depth DESC) AS path
			FROM %s sub
			JOIN %s anc ON anc.descendant_id = sub.descendant_id
			JOIN %s af ON af.id = anc.ancestor_id
			WHERE sub.ancestor_id = $1
			GROUP BY sub.descendant_id
		) computed
		WHERE f.id = computed.id AND f.deleted_at IS NULL
	`, r.tables.Folders, r.tables.FolderClosure, r.tables.FolderClosure, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, rootID); err != nil {
		return fmt.Errorf("recompute folder paths: %w", err)
	}

	return nil
}

// SoftDeleteByIDs flags the still-live rows among ids with the batch marker
func (r *PostgresFolderRepository) SoftDeleteByIDs(ctx context.Context, ids []uuid.UUID, batchID uuid.UUID, at time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = $2, delete_batch_id = $3, updated_at = $2
		WHERE id = ANY($1) AND deleted_at IS NULL
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, ids, at, batchID)
	if err != nil {
		return 0, fmt.Errorf("soft delete folders: %w", err)
	}

	return int(result.RowsAffected()), nil
}

// ListByBatch retrieves the folders flagged with one deletion batch,
// parents before children
func (r *PostgresFolderRepository) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT id, owner_id, parent_id, name, path, created_at, updated_at, deleted_at, delete_batch_id
		FROM %s
		WHERE delete_batch_id = $1
		ORDER BY path ASC
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("list folders by batch: %w", err)
	}
	defer rows.Close()

	return collectFolders(rows)
}

// RestoreBatch clears the deleted flag and batch marker for the batch
func (r *PostgresFolderRepository) RestoreBatch(ctx context.Context, batchID uuid.UUID) (int, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = NULL, delete_batch_id = NULL, updated_at = NOW()
		WHERE delete_batch_id = $1
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, batchID)
	if err != nil {
		return 0, fmt.Errorf("restore folder batch: %w", err)
	}

	return int(result.RowsAffected()), nil
}

// scanFolder scans a single folder row
func scanFolder(row pgx.Row) (*models.Folder, error) {
	var folder models.Folder
	err := row.Scan(
		&folder.ID,
		&folder.OwnerID,
		&folder.ParentID,
		&folder.Name,
		&folder.Path,
		&folder.CreatedAt,
		&folder.UpdatedAt,
		&folder.DeletedAt,
		&folder.DeleteBatchID,
	)
	if err != nil {
		return nil, err
	}
	return &folder, nil
}

// collectFolders drains rows into a slice
func collectFolders(rows pgx.Rows) ([]models.Folder, error) {
	var folders []models.Folder
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, *folder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}

	return folders, nil
}
