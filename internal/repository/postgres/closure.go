package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"cabinet/internal/domain/models"
	"cabinet/internal/domain/repositories"
)

// PostgresClosureRepository implements the ClosureRepository interface.
// The index holds one row per (ancestor, descendant) pair including the
// reflexive pair at depth 0, so ancestry reads never recurse. All writes
// here are driven by the mutation services inside their transactions.
type PostgresClosureRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewClosureRepository creates a new closure repository
func NewClosureRepository(config *RepositoryConfig) repositories.ClosureRepository {
	return &PostgresClosureRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// InsertForNewFolder writes the reflexive entry and copies the parent's
// ancestor chain with depth incremented. Appends exactly depth(parent)+2
// rows for a folder under a parent, one row at root.
func (r *PostgresClosureRepository) InsertForNewFolder(ctx context.Context, folderID uuid.UUID, parentID *uuid.UUID) error {
	executor := GetExecutor(ctx, r.pool)

	selfQuery := fmt.Sprintf(`
		INSERT INTO %s (ancestor_id, descendant_id, depth)
		VALUES ($1, $1, 0)
	`, r.tables.FolderClosure)

	if _, err := executor.Exec(ctx, selfQuery, folderID); err != nil {
		return fmt.Errorf("insert self entry: %w", err)
	}

	if parentID == nil {
		return nil
	}

	// Copying the parent's rows also covers the direct link at depth 1,
	// via the parent's own reflexive entry
	ancestorQuery := fmt.Sprintf(`
		INSERT INTO %s (ancestor_id, descendant_id, depth)
		SELECT ancestor_id, $1, depth + 1
		FROM %s
		WHERE descendant_id = $2
	`, r.tables.FolderClosure, r.tables.FolderClosure)

	if _, err := executor.Exec(ctx, ancestorQuery, folderID, *parentID); err != nil {
		return fmt.Errorf("insert ancestor entries: %w", err)
	}

	return nil
}

// Relink rewires folderID's subtree under newParentID. The delete runs as a
// single statement so its subqueries all see the pre-delete snapshot of the
// subtree: rows linking subtree members to outside ancestors go away, rows
// inside the subtree stay. The insert then cross-joins the new parent's
// ancestor chain with the subtree, adding the connecting hop.
func (r *PostgresClosureRepository) Relink(ctx context.Context, folderID uuid.UUID, newParentID *uuid.UUID) error {
	executor := GetExecutor(ctx, r.pool)

	deleteQuery := fmt.Sprintf(`
		DELETE FROM %s
		WHERE descendant_id IN (SELECT descendant_id FROM %s WHERE ancestor_id = $1)
		  AND ancestor_id NOT IN (SELECT descendant_id FROM %s WHERE ancestor_id = $1)
	`, r.tables.FolderClosure, r.tables.FolderClosure, r.tables.FolderClosure)

	if _, err := executor.Exec(ctx, deleteQuery, folderID); err != nil {
		return fmt.Errorf("unlink subtree: %w", err)
	}

	if newParentID == nil {
		return nil
	}

	insertQuery := fmt.Sprintf(`
		INSERT INTO %s (ancestor_id, descendant_id, depth)
		SELECT supertree.ancestor_id, subtree.descendant_id, supertree.depth + subtree.depth + 1
		FROM %s supertree
		CROSS JOIN %s subtree
		WHERE supertree.descendant_id = $2
		  AND subtree.ancestor_id = $1
		ON CONFLICT (ancestor_id, descendant_id) DO NOTHING
	`, r.tables.FolderClosure, r.tables.FolderClosure, r.tables.FolderClosure)

	if _, err := executor.Exec(ctx, insertQuery, folderID, *newParentID); err != nil {
		return fmt.Errorf("link subtree: %w", err)
	}

	return nil
}

// ListDescendants returns the subtree members of rootID with depths,
// including rootID itself at depth 0
func (r *PostgresClosureRepository) ListDescendants(ctx context.Context, rootID uuid.UUID, maxDepth *int) ([]models.FolderDepth, error) {
	query := fmt.Sprintf(`
		SELECT descendant_id, depth
		FROM %s
		WHERE ancestor_id = $1
	`, r.tables.FolderClosure)

	args := []interface{}{rootID}
	if maxDepth != nil {
		query += " AND depth <= $2"
		args = append(args, *maxDepth)
	}
	query += " ORDER BY depth ASC, descendant_id ASC"

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list descendants: %w", err)
	}
	defer rows.Close()

	var entries []models.FolderDepth
	for rows.Next() {
		var entry models.FolderDepth
		if err := rows.Scan(&entry.FolderID, &entry.Depth); err != nil {
			return nil, fmt.Errorf("scan descendant: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate descendants: %w", err)
	}

	return entries, nil
}

// ListAncestors returns folderID's chain with depths, nearest first
func (r *PostgresClosureRepository) ListAncestors(ctx context.Context, folderID uuid.UUID) ([]models.FolderDepth, error) {
	query := fmt.Sprintf(`
		SELECT ancestor_id, depth
		FROM %s
		WHERE descendant_id = $1
		ORDER BY depth ASC
	`, r.tables.FolderClosure)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("list ancestors: %w", err)
	}
	defer rows.Close()

	var entries []models.FolderDepth
	for rows.Next() {
		var entry models.FolderDepth
		if err := rows.Scan(&entry.FolderID, &entry.Depth); err != nil {
			return nil, fmt.Errorf("scan ancestor: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ancestors: %w", err)
	}

	return entries, nil
}

// IsDescendant reports whether descendantID sits below ancestorID
func (r *PostgresClosureRepository) IsDescendant(ctx context.Context, ancestorID, descendantID uuid.UUID) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1 FROM %s
			WHERE ancestor_id = $1 AND descendant_id = $2
		)
	`, r.tables.FolderClosure)

	executor := GetExecutor(ctx, r.pool)
	var exists bool
	if err := executor.QueryRow(ctx, query, ancestorID, descendantID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check descendant: %w", err)
	}

	return exists, nil
}

// ListByOwner dumps every index row whose descendant belongs to the owner
func (r *PostgresClosureRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.ClosureEntry, error) {
	query := fmt.Sprintf(`
		SELECT c.ancestor_id, c.descendant_id, c.depth
		FROM %s c
		JOIN %s f ON f.id = c.descendant_id
		WHERE f.owner_id = $1
		ORDER BY c.ancestor_id ASC, c.descendant_id ASC
	`, r.tables.FolderClosure, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list closure by owner: %w", err)
	}
	defer rows.Close()

	var entries []models.ClosureEntry
	for rows.Next() {
		var entry models.ClosureEntry
		if err := rows.Scan(&entry.AncestorID, &entry.DescendantID, &entry.Depth); err != nil {
			return nil, fmt.Errorf("scan closure entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate closure entries: %w", err)
	}

	return entries, nil
}
