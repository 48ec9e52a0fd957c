package postgres

import (
	"context"
	"fmt"
	"log"

	"reqnexa-backend/internal/models"
	"reqnexa-backend/internal/store"

	"github.com/google/uuid"
)

// --- Requirement Methods ---

const insertRequirement = `-- name: InsertRequirement :one
INSERT INTO requirements (
    project_id, type, category, priority, title, description, status, confidence_score, created_by
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9
)
RETURNING id;
`

// InsertRequirement returns store.ErrNotFound if the project does not exist.
func (s *PostgresStore) InsertRequirement(ctx context.Context, arg store.InsertRequirementParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.db.QueryRow(ctx, insertRequirement,
		arg.ProjectID,
		arg.Type,
		arg.Category, // pgx handles *string to NULL automatically
		arg.Priority,
		arg.Title,
		arg.Description,
		arg.Status,
		arg.ConfidenceScore,
		arg.CreatedBy,
	).Scan(&id)
	if err != nil {
		if isForeignKeyViolation(err) {
			log.Printf("WARN [PostgresStore] InsertRequirement: Foreign key violation for ProjectID %s: %v", arg.ProjectID, err)
			return uuid.Nil, store.ErrNotFound
		}
		log.Printf("ERROR [PostgresStore] InsertRequirement: Failed for ProjectID %s: %v", arg.ProjectID, err)
		return uuid.Nil, fmt.Errorf("database error inserting requirement: %w", err)
	}

	log.Printf("[PostgresStore] InsertRequirement: Inserted requirement %s for ProjectID %s", id, arg.ProjectID)
	return id, nil
}

const listRequirementsByProject = `-- name: ListRequirementsByProject :many
SELECT id, project_id, type, category, priority, title, description, status, confidence_score, created_by, created_at, updated_at
FROM requirements
WHERE project_id = $1
ORDER BY created_at ASC;
`

func (s *PostgresStore) ListRequirementsByProject(ctx context.Context, projectID uuid.UUID) ([]models.Requirement, error) {
	rows, err := s.db.Query(ctx, listRequirementsByProject, projectID)
	if err != nil {
		log.Printf("ERROR [PostgresStore] ListRequirementsByProject: Failed query for ProjectID %s: %v", projectID, err)
		return nil, fmt.Errorf("database error listing requirements: %w", err)
	}
	defer rows.Close()

	requirements := []models.Requirement{}
	for rows.Next() {
		var r models.Requirement
		if err := rows.Scan(
			&r.ID,
			&r.ProjectID,
			&r.Type,
			&r.Category,
			&r.Priority,
			&r.Title,
			&r.Description,
			&r.Status,
			&r.ConfidenceScore,
			&r.CreatedBy,
			&r.CreatedAt,
			&r.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning requirement: %w", err)
		}
		requirements = append(requirements, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating requirements: %w", err)
	}
	return requirements, nil
}
