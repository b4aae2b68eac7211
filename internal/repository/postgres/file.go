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

// PostgresFileRepository implements the FileRepository interface
type PostgresFileRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewFileRepository creates a new file repository
func NewFileRepository(config *RepositoryConfig) repositories.FileRepository {
	return &PostgresFileRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create inserts a new file row
func (r *PostgresFileRepository) Create(ctx context.Context, file *models.File) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, owner_id, folder_id, name, size_bytes, content_hash, storage_path, mime_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		file.ID,
		file.OwnerID,
		file.FolderID,
		file.Name,
		file.SizeBytes,
		file.ContentHash,
		file.StoragePath,
		file.MimeType,
		file.CreatedAt,
		file.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("file '%s': %w", file.Name, domain.ErrConflict)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("folder: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("create file: %w", err)
	}

	return nil
}

// GetByID retrieves a file by ID, deleted or not
func (r *PostgresFileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.File, error) {
	query := fmt.Sprintf(`
		SELECT id, owner_id, folder_id, name, size_bytes, content_hash, storage_path, mime_type, created_at, updated_at, deleted_at, delete_batch_id
		FROM %s
		WHERE id = $1
	`, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	file, err := scanFile(executor.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get file: %w", err)
	}

	return file, nil
}

// Update persists name, folder, storage fields and updated_at
func (r *PostgresFileRepository) Update(ctx context.Context, file *models.File) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET folder_id = $1, name = $2, size_bytes = $3, content_hash = $4, storage_path = $5, mime_type = $6, updated_at = $7
		WHERE id = $8
	`, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		file.FolderID,
		file.Name,
		file.SizeBytes,
		file.ContentHash,
		file.StoragePath,
		file.MimeType,
		file.UpdatedAt,
		file.ID,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("file '%s': %w", file.Name, domain.ErrConflict)
		}
		return fmt.Errorf("update file: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("file %s: %w", file.ID, domain.ErrNotFound)
	}

	return nil
}

// ListByFolder lists live files in a folder, name-ordered
func (r *PostgresFileRepository) ListByFolder(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID) ([]models.File, error) {
	var query string
	var args []interface{}

	if folderID == nil {
		query = fmt.Sprintf(`
			SELECT id, owner_id, folder_id, name, size_bytes, content_hash, storage_path, mime_type, created_at, updated_at, deleted_at, delete_batch_id
			FROM %s
			WHERE owner_id = $1 AND folder_id IS NULL AND deleted_at IS NULL
			ORDER BY name ASC
		`, r.tables.Files)
		args = append(args, ownerID)
	} else {
		query = fmt.Sprintf(`
			SELECT id, owner_id, folder_id, name, size_bytes, content_hash, storage_path, mime_type, created_at, updated_at, deleted_at, delete_batch_id
			FROM %s
			WHERE owner_id = $1 AND folder_id = $2 AND deleted_at IS NULL
			ORDER BY name ASC
		`, r.tables.Files)
		args = append(args, ownerID, *folderID)
	}

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list files by folder: %w", err)
	}
	defer rows.Close()

	return collectFiles(rows)
}

// FindByName finds a live file with the exact name in folderID
func (r *PostgresFileRepository) FindByName(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID, name string) (*models.File, error) {
	var query string
	var args []interface{}

	if folderID == nil {
		query = fmt.Sprintf(`
			SELECT id, owner_id, folder_id, name, size_bytes, content_hash, storage_path, mime_type, created_at, updated_at, deleted_at, delete_batch_id
			FROM %s
			WHERE owner_id = $1 AND name = $2 AND folder_id IS NULL AND deleted_at IS NULL
		`, r.tables.Files)
		args = append(args, ownerID, name)
	} else {
		query = fmt.Sprintf(`
			SELECT id, owner_id, folder_id, name, size_bytes, content_hash, storage_path, mime_type, created_at, updated_at, deleted_at, delete_batch_id
			FROM %s
			WHERE owner_id = $1 AND name = $2 AND folder_id = $3 AND deleted_at IS NULL
		`, r.tables.Files)
		args = append(args, ownerID, name, *folderID)
	}

	executor := GetExecutor(ctx, r.pool)
	file, err := scanFile(executor.QueryRow(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, nil // Not found, not an error
		}
		return nil, fmt.Errorf("find file by name: %w", err)
	}

	return file, nil
}

// ListByOwner retrieves all files of an owner as a flat list
func (r *PostgresFileRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, includeDeleted bool) ([]models.File, error) {
	query := fmt.Sprintf(`
		SELECT id, owner_id, folder_id, name, size_bytes, content_hash, storage_path, mime_type, created_at, updated_at, deleted_at, delete_batch_id
		FROM %s
		WHERE owner_id = $1
	`, r.tables.Files)
	if !includeDeleted {
		query += " AND deleted_at IS NULL"
	}
	query += " ORDER BY name ASC"

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list files by owner: %w", err)
	}
	defer rows.Close()

	return collectFiles(rows)
}

// CountLiveByFolderIDs counts live files contained in the given folders
func (r *PostgresFileRepository) CountLiveByFolderIDs(ctx context.Context, folderIDs []uuid.UUID) (int, error) {
	if len(folderIDs) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM %s
		WHERE folder_id = ANY($1) AND deleted_at IS NULL
	`, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	var count int
	if err := executor.QueryRow(ctx, query, folderIDs).Scan(&count); err != nil {
		return 0, fmt.Errorf("count files by folders: %w", err)
	}

	return count, nil
}

// SoftDeleteByIDs flags the still-live files among ids with the batch marker
func (r *PostgresFileRepository) SoftDeleteByIDs(ctx context.Context, ids []uuid.UUID, batchID uuid.UUID, at time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = $2, delete_batch_id = $3, updated_at = $2
		WHERE id = ANY($1) AND deleted_at IS NULL
	`, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, ids, at, batchID)
	if err != nil {
		return 0, fmt.Errorf("soft delete files: %w", err)
	}

	return int(result.RowsAffected()), nil
}

// SoftDeleteByFolderIDs flags every live file contained in the given folders
func (r *PostgresFileRepository) SoftDeleteByFolderIDs(ctx context.Context, folderIDs []uuid.UUID, batchID uuid.UUID, at time.Time) (int, error) {
	if len(folderIDs) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = $2, delete_batch_id = $3, updated_at = $2
		WHERE folder_id = ANY($1) AND deleted_at IS NULL
	`, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, folderIDs, at, batchID)
	if err != nil {
		return 0, fmt.Errorf("soft delete files by folders: %w", err)
	}

	return int(result.RowsAffected()), nil
}

// ListByBatch retrieves the files flagged with one deletion batch
func (r *PostgresFileRepository) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.File, error) {
	query := fmt.Sprintf(`
		SELECT id, owner_id, folder_id, name, size_bytes, content_hash, storage_path, mime_type, created_at, updated_at, deleted_at, delete_batch_id
		FROM %s
		WHERE delete_batch_id = $1
		ORDER BY name ASC
	`, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("list files by batch: %w", err)
	}
	defer rows.Close()

	return collectFiles(rows)
}

// RestoreBatch clears the deleted flag and batch marker for the batch
func (r *PostgresFileRepository) RestoreBatch(ctx context.Context, batchID uuid.UUID) (int, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET deleted_at = NULL, delete_batch_id = NULL, updated_at = NOW()
		WHERE delete_batch_id = $1
	`, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, batchID)
	if err != nil {
		return 0, fmt.Errorf("restore file batch: %w", err)
	}

	return int(result.RowsAffected()), nil
}

// scanFile scans a single file row
func scanFile(row pgx.Row) (*models.File, error) {
	var file models.File
	err := row.Scan(
		&file.ID,
		&file.OwnerID,
		&file.FolderID,
		&file.Name,
		&file.SizeBytes,
		&file.ContentHash,
		&file.StoragePath,
		&file.MimeType,
		&file.CreatedAt,
		&file.UpdatedAt,
		&file.DeletedAt,
		&file.DeleteBatchID,
	)
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// collectFiles drains rows into a slice
func collectFiles(rows pgx.Rows) ([]models.File, error) {
	var files []models.File
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, *file)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}

	return files, nil
}
