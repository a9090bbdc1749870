package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/roadmaphq/triage/internal/models"
)

// ErrIdeaNotFound is returned when no idea exists for the given id.
var ErrIdeaNotFound = errors.New("idea not found")

const ideaColumns = `id, title, description, status, embedding, summary, summary_generated_at,
	feedback_count, total_arr, customer_count, created_at`

// IdeasRepository handles data access for the ideas table.
type IdeasRepository struct {
	db *pgxpool.Pool
}

// NewIdeasRepository creates a new ideas repository.
func NewIdeasRepository(db *pgxpool.Pool) *IdeasRepository {
	return &IdeasRepository{db: db}
}

func scanIdea(row pgx.Row) (*models.Idea, error) {
	var (
		idea models.Idea
		emb  *pgvector.Vector
	)

	err := row.Scan(
		&idea.ID, &idea.Title, &idea.Description, &idea.Status, &emb, &idea.Summary,
		&idea.SummaryGeneratedAt, &idea.FeedbackCount, &idea.TotalARR, &idea.CustomerCount, &idea.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if emb != nil {
		idea.Embedding = emb.Slice()
	}

	return &idea, nil
}

// Create inserts a new idea and returns the stored row. The embedding stays
// null until the async embedding job fills it.
func (r *IdeasRepository) Create(ctx context.Context, idea *models.Idea) (*models.Idea, error) {
	status := idea.Status
	if status == "" {
		status = models.IdeaStatusBacklog
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO ideas (title, description, status)
		VALUES ($1, $2, $3)
		RETURNING `+ideaColumns,
		idea.Title, idea.Description, status)

	created, err := scanIdea(row)
	if err != nil {
		return nil, fmt.Errorf("create idea: %w", err)
	}

	return created, nil
}

// GetByID returns the idea with the given id. Returns ErrIdeaNotFound when no row exists.
func (r *IdeasRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Idea, error) {
	row := r.db.QueryRow(ctx, `SELECT `+ideaColumns+` FROM ideas WHERE id = $1`, id)

	idea, err := scanIdea(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIdeaNotFound
		}

		return nil, fmt.Errorf("get idea: %w", err)
	}

	return idea, nil
}

// ListCandidates returns ideas eligible as match targets, newest first.
func (r *IdeasRepository) ListCandidates(ctx context.Context, limit int) ([]models.Idea, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+ideaColumns+` FROM ideas
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list candidate ideas: %w", err)
	}
	defer rows.Close()

	return collectIdeas(rows)
}

// ListUnembedded returns ideas without a stored embedding, oldest first.
func (r *IdeasRepository) ListUnembedded(ctx context.Context, limit int) ([]models.Idea, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+ideaColumns+` FROM ideas
		WHERE embedding IS NULL
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unembedded ideas: %w", err)
	}
	defer rows.Close()

	return collectIdeas(rows)
}

// SetEmbedding stores the embedding for the given idea. Last-write-wins.
func (r *IdeasRepository) SetEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	var vec *pgvector.Vector

	if embedding != nil {
		v := pgvector.NewVector(embedding)
		vec = &v
	}

	_, err := r.db.Exec(ctx, `UPDATE ideas SET embedding = $2 WHERE id = $1`, id, vec)
	if err != nil {
		return fmt.Errorf("set idea embedding: %w", err)
	}

	return nil
}

// SetSummary stores the AI-generated summary and its timestamp.
func (r *IdeasRepository) SetSummary(ctx context.Context, id uuid.UUID, summary string, generatedAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE ideas SET summary = $2, summary_generated_at = $3 WHERE id = $1`,
		id, summary, generatedAt)
	if err != nil {
		return fmt.Errorf("set idea summary: %w", err)
	}

	return nil
}

// UpdateDerivedMetrics caches the roll-up columns recomputed from the link
// table. The link table stays the source of truth.
func (r *IdeasRepository) UpdateDerivedMetrics(
	ctx context.Context, id uuid.UUID, feedbackCount int, totalARR float64, customerCount int,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE ideas
		SET feedback_count = $2, total_arr = $3, customer_count = $4
		WHERE id = $1`, id, feedbackCount, totalARR, customerCount)
	if err != nil {
		return fmt.Errorf("update idea metrics: %w", err)
	}

	return nil
}

// NearestToEmbedding returns ideas with cosine similarity >= threshold to the
// query vector, ordered by descending similarity, truncated to limit. Rows in
// excludeIDs are filtered at retrieval time.
func (r *IdeasRepository) NearestToEmbedding(
	ctx context.Context, queryEmbedding []float32, threshold float64, limit int, excludeIDs []uuid.UUID,
) ([]models.IdeaWithScore, error) {
	queryVec := pgvector.NewVector(queryEmbedding)

	exclude := excludeIDs
	if exclude == nil {
		exclude = []uuid.UUID{}
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+ideaColumns+`, (1 - (embedding <=> $1)) AS score
		FROM ideas
		WHERE embedding IS NOT NULL
		  AND NOT (id = ANY($2))
		  AND (1 - (embedding <=> $1)) >= $3
		ORDER BY embedding <=> $1
		LIMIT $4`, queryVec, exclude, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("nearest ideas: %w", err)
	}
	defer rows.Close()

	var results []models.IdeaWithScore

	for rows.Next() {
		var (
			idea  models.Idea
			emb   *pgvector.Vector
			score float64
		)

		err := rows.Scan(
			&idea.ID, &idea.Title, &idea.Description, &idea.Status, &emb, &idea.Summary,
			&idea.SummaryGeneratedAt, &idea.FeedbackCount, &idea.TotalARR, &idea.CustomerCount, &idea.CreatedAt,
			&score,
		)
		if err != nil {
			return nil, fmt.Errorf("scan nearest idea: %w", err)
		}

		if emb != nil {
			idea.Embedding = emb.Slice()
		}

		results = append(results, models.IdeaWithScore{Idea: idea, Score: score})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nearest ideas: %w", err)
	}

	return results, nil
}

// ListAll returns every idea (used by insights roll-ups).
func (r *IdeasRepository) ListAll(ctx context.Context) ([]models.Idea, error) {
	rows, err := r.db.Query(ctx, `SELECT `+ideaColumns+` FROM ideas`)
	if err != nil {
		return nil, fmt.Errorf("list ideas: %w", err)
	}
	defer rows.Close()

	return collectIdeas(rows)
}

func collectIdeas(rows pgx.Rows) ([]models.Idea, error) {
	var ideas []models.Idea

	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			return nil, fmt.Errorf("scan idea: %w", err)
		}

		ideas = append(ideas, *idea)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ideas: %w", err)
	}

	return ideas, nil
}
