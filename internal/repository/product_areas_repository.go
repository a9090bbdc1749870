package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/roadmaphq/triage/internal/models"
)

const productAreaColumns = `id, name, description, keywords, owner_id, color, embedding, created_at`

// ProductAreasRepository handles data access for the product_areas table.
type ProductAreasRepository struct {
	db *pgxpool.Pool
}

// NewProductAreasRepository creates a new product areas repository.
func NewProductAreasRepository(db *pgxpool.Pool) *ProductAreasRepository {
	return &ProductAreasRepository{db: db}
}

func scanProductArea(row pgx.Row) (*models.ProductArea, error) {
	var (
		area models.ProductArea
		emb  *pgvector.Vector
	)

	err := row.Scan(
		&area.ID, &area.Name, &area.Description, &area.Keywords, &area.OwnerID,
		&area.Color, &emb, &area.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if emb != nil {
		area.Embedding = emb.Slice()
	}

	return &area, nil
}

// List returns every product area.
func (r *ProductAreasRepository) List(ctx context.Context) ([]models.ProductArea, error) {
	rows, err := r.db.Query(ctx, `SELECT `+productAreaColumns+` FROM product_areas ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list product areas: %w", err)
	}
	defer rows.Close()

	return collectProductAreas(rows)
}

// ListUnembedded returns product areas without a stored embedding.
func (r *ProductAreasRepository) ListUnembedded(ctx context.Context, limit int) ([]models.ProductArea, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+productAreaColumns+` FROM product_areas
		WHERE embedding IS NULL
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unembedded product areas: %w", err)
	}
	defer rows.Close()

	return collectProductAreas(rows)
}

// SetEmbedding stores the embedding for the given product area.
func (r *ProductAreasRepository) SetEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	var vec *pgvector.Vector

	if embedding != nil {
		v := pgvector.NewVector(embedding)
		vec = &v
	}

	_, err := r.db.Exec(ctx, `UPDATE product_areas SET embedding = $2 WHERE id = $1`, id, vec)
	if err != nil {
		return fmt.Errorf("set product area embedding: %w", err)
	}

	return nil
}

func collectProductAreas(rows pgx.Rows) ([]models.ProductArea, error) {
	var areas []models.ProductArea

	for rows.Next() {
		area, err := scanProductArea(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product area: %w", err)
		}

		areas = append(areas, *area)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating product areas: %w", err)
	}

	return areas, nil
}
