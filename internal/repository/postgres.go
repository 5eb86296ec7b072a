package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/FileVault/internal/model"
)

const fileColumns = `id, owner_id, name, type, is_public, parent_id, storage_ref, created_at`

// PostgresFiles wraps all SQL used by the API and worker. Rows are ordered by
// the seq column, which records insertion order.
type PostgresFiles struct {
	pool *pgxpool.Pool
}

// NewPostgresFiles constructs a repository over an open pool.
func NewPostgresFiles(pool *pgxpool.Pool) *PostgresFiles {
	return &PostgresFiles{pool: pool}
}

// Insert implements Files.
func (r *PostgresFiles) Insert(ctx context.Context, f *model.File) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	var storageRef *string
	if f.StorageRef != "" {
		storageRef = &f.StorageRef
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO files (`+fileColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, f.ID, f.OwnerID, f.Name, string(f.Type), f.IsPublic, f.ParentID, storageRef, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

// FindByID implements Files.
func (r *PostgresFiles) FindByID(ctx context.Context, id string) (*model.File, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+fileColumns+` FROM files WHERE id=$1`, id)
	return scanFile(row)
}

// FindOwned implements Files.
func (r *PostgresFiles) FindOwned(ctx context.Context, id, ownerID string) (*model.File, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+fileColumns+` FROM files WHERE id=$1 AND owner_id=$2`, id, ownerID)
	return scanFile(row)
}

// List implements Files.
func (r *PostgresFiles) List(ctx context.Context, ownerID, parentID string, skip, limit int) ([]*model.File, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+fileColumns+`
		FROM files
		WHERE owner_id=$1 AND parent_id=$2
		ORDER BY seq
		OFFSET $3 LIMIT $4
	`, ownerID, parentID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()
	out := make([]*model.File, 0, limit)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return out, nil
}

// SetPublic implements Files with a single UPDATE … RETURNING statement.
func (r *PostgresFiles) SetPublic(ctx context.Context, id, ownerID string, public bool) (*model.File, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE files SET is_public=$1
		WHERE id=$2 AND owner_id=$3
		RETURNING `+fileColumns, public, id, ownerID)
	return scanFile(row)
}

func scanFile(row pgx.Row) (*model.File, error) {
	var (
		f          model.File
		fileType   string
		storageRef sql.NullString
	)
	if err := row.Scan(&f.ID, &f.OwnerID, &f.Name, &fileType, &f.IsPublic, &f.ParentID, &storageRef, &f.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select file: %w", err)
	}
	f.Type = model.FileType(fileType)
	if storageRef.Valid {
		f.StorageRef = storageRef.String
	}
	return &f, nil
}
