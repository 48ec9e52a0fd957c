package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log"

	"reqnexa-backend/internal/models"
	"reqnexa-backend/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// Compile-time check to ensure PostgresStore implements store.Store
var _ store.Store = (*PostgresStore)(nil)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	log.Println("[PostgresStore] Applying schema...")
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		log.Printf("ERROR [PostgresStore] Migrate: %v", err)
		return fmt.Errorf("database error applying schema: %w", err)
	}
	log.Println("[PostgresStore] Schema applied.")
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

// isForeignKeyViolation reports a PostgreSQL foreign_key_violation (23503).
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

const getProject = `-- name: GetProject :one
SELECT id, user_id, name, type
FROM projects
WHERE id = $1;
`

// GetProject returns store.ErrNotFound if the project does not exist.
func (s *PostgresStore) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var p models.Project
	err := s.db.QueryRow(ctx, getProject, id).Scan(&p.ID, &p.UserID, &p.Name, &p.Type)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] GetProject: Failed query/scan for ID %s: %v", id, err)
		return nil, fmt.Errorf("database error fetching project: %w", err)
	}
	return &p, nil
}
