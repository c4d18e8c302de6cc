package render

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/dbpg"

	"github.com/aliskhannn/thumbor/internal/model"
)

// ErrRenderNotFound is returned when no render job has the requested ID.
var ErrRenderNotFound = errors.New("render not found")

// Repository stores render jobs in PostgreSQL.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new Repository with the given DB connection.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// SaveRender inserts a new render job and returns its UUID.
func (r *Repository) SaveRender(ctx context.Context, job model.Render) (uuid.UUID, error) {
	query := `
		INSERT INTO renders (token, source, path, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id uuid.UUID
	err := r.db.QueryRowContext(
		ctx, query, job.Token, job.Source, job.Path, job.Status,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("save: failed to save render: %w", err)
	}

	return id, nil
}

// GetRender retrieves a render job by ID.
func (r *Repository) GetRender(ctx context.Context, id uuid.UUID) (model.Render, error) {
	query := `
		SELECT token, source, path, status, created_at
		FROM renders
		WHERE id = $1
	`

	var job model.Render
	err := r.db.QueryRowContext(
		ctx, query, id,
	).Scan(&job.Token, &job.Source, &job.Path, &job.Status, &job.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Render{}, ErrRenderNotFound
		}

		return model.Render{}, fmt.Errorf("get: failed to get render: %w", err)
	}

	job.ID = id

	return job, nil
}

// UpdateRender sets the result path and status of an existing render job.
func (r *Repository) UpdateRender(ctx context.Context, id uuid.UUID, path, status string) error {
	query := `
		UPDATE renders
		SET path = $1, status = $2
		WHERE id = $3
	`

	res, err := r.db.ExecContext(ctx, query, path, status, id)
	if err != nil {
		return fmt.Errorf("update: failed to update render: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update: failed to get number of rows affected: %w", err)
	}

	if rows == 0 {
		return ErrRenderNotFound
	}

	return nil
}
