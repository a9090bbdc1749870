// Package repository provides pgx-backed data access for feedback, ideas,
// links, and product areas, including pgvector nearest-neighbor queries.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/roadmaphq/triage/internal/models"
)

// ErrFeedbackNotFound is returned when no feedback item exists for the given id.
var ErrFeedbackNotFound = errors.New("feedback item not found")

const feedbackColumns = `id, title, description, embedding, account_name, account_segment,
	account_status, account_arr, potential_arr, importance, triage_status, assigned_to,
	suggested_owner_id, suggestion_confidence, product_area_id, suggested_product_area_id, created_at`

// FeedbackRepository handles data access for the feedback table.
type FeedbackRepository struct {
	db *pgxpool.Pool
}

// NewFeedbackRepository creates a new feedback repository.
func NewFeedbackRepository(db *pgxpool.Pool) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// scanFeedback scans one feedback row. The legacy "linked" triage status is
// collapsed to "triaged" here so it never leaks past the data-access boundary.
func scanFeedback(row pgx.Row) (*models.FeedbackItem, error) {
	var (
		f      models.FeedbackItem
		status string
		emb    *pgvector.Vector
	)

	err := row.Scan(
		&f.ID, &f.Title, &f.Description, &emb, &f.AccountName, &f.AccountSegment,
		&f.AccountStatus, &f.AccountARR, &f.PotentialARR, &f.Importance, &status, &f.AssignedTo,
		&f.SuggestedOwnerID, &f.SuggestionConfidence, &f.ProductAreaID, &f.SuggestedProductAreaID, &f.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	f.TriageStatus = models.NormalizeTriageStatus(status)
	if emb != nil {
		f.Embedding = emb.Slice()
	}

	return &f, nil
}

// Create inserts a new feedback item and returns the stored row. The id and
// created_at come from the database; the embedding stays null until the
// async embedding job fills it.
func (r *FeedbackRepository) Create(ctx context.Context, f *models.FeedbackItem) (*models.FeedbackItem, error) {
	status := f.TriageStatus
	if status == "" {
		status = models.TriageStatusNew
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO feedback (title, description, account_name, account_segment, account_status,
			account_arr, potential_arr, importance, triage_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+feedbackColumns,
		f.Title, f.Description, f.AccountName, f.AccountSegment, f.AccountStatus,
		f.AccountARR, f.PotentialARR, f.Importance, status)

	created, err := scanFeedback(row)
	if err != nil {
		return nil, fmt.Errorf("create feedback: %w", err)
	}

	return created, nil
}

// GetByID returns the feedback item with the given id.
// Returns ErrFeedbackNotFound when no row exists.
func (r *FeedbackRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.FeedbackItem, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+feedbackColumns+` FROM feedback WHERE id = $1`, id)

	f, err := scanFeedback(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFeedbackNotFound
		}

		return nil, fmt.Errorf("get feedback: %w", err)
	}

	return f, nil
}

// ListCandidates returns feedback items eligible for matching (new or
// triaged; archived items never surface as candidates), newest first.
func (r *FeedbackRepository) ListCandidates(ctx context.Context, limit int) ([]models.FeedbackItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+feedbackColumns+` FROM feedback
		WHERE triage_status IN ('new', 'triaged', 'linked')
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list candidate feedback: %w", err)
	}
	defer rows.Close()

	return collectFeedback(rows)
}

// ListUnembedded returns feedback items with a non-empty description and no
// stored embedding, oldest first, for backfill.
func (r *FeedbackRepository) ListUnembedded(ctx context.Context, limit int) ([]models.FeedbackItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+feedbackColumns+` FROM feedback
		WHERE embedding IS NULL AND trim(description) != ''
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unembedded feedback: %w", err)
	}
	defer rows.Close()

	return collectFeedback(rows)
}

// SetEmbedding stores the embedding for the given feedback item.
// Re-embedding the same text is idempotent; concurrent writers are
// last-write-wins. A nil embedding clears the column.
func (r *FeedbackRepository) SetEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	var vec *pgvector.Vector

	if embedding != nil {
		v := pgvector.NewVector(embedding)
		vec = &v
	}

	_, err := r.db.Exec(ctx, `UPDATE feedback SET embedding = $2 WHERE id = $1`, id, vec)
	if err != nil {
		return fmt.Errorf("set feedback embedding: %w", err)
	}

	return nil
}

// SetTriageStatus moves a feedback item to the given status.
func (r *FeedbackRepository) SetTriageStatus(ctx context.Context, id uuid.UUID, status models.TriageStatus) error {
	_, err := r.db.Exec(ctx, `UPDATE feedback SET triage_status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return fmt.Errorf("set triage status: %w", err)
	}

	return nil
}

// SetOwnerSuggestion records the routing result for a feedback item.
func (r *FeedbackRepository) SetOwnerSuggestion(
	ctx context.Context, id uuid.UUID, productAreaID, ownerID *uuid.UUID, confidence float64,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE feedback
		SET suggested_product_area_id = $2, suggested_owner_id = $3, suggestion_confidence = $4
		WHERE id = $1`, id, productAreaID, ownerID, confidence)
	if err != nil {
		return fmt.Errorf("set owner suggestion: %w", err)
	}

	return nil
}

// NearestToEmbedding returns feedback items with cosine similarity >= threshold
// to the query vector, ordered by descending similarity, truncated to limit.
// Rows in excludeIDs are filtered at retrieval time so already-linked items can
// never resurface as candidates. Archived items are never candidates.
func (r *FeedbackRepository) NearestToEmbedding(
	ctx context.Context, queryEmbedding []float32, threshold float64, limit int, excludeIDs []uuid.UUID,
) ([]models.FeedbackWithScore, error) {
	queryVec := pgvector.NewVector(queryEmbedding)

	exclude := excludeIDs
	if exclude == nil {
		exclude = []uuid.UUID{}
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+feedbackColumns+`, (1 - (embedding <=> $1)) AS score
		FROM feedback
		WHERE embedding IS NOT NULL
		  AND triage_status IN ('new', 'triaged', 'linked')
		  AND NOT (id = ANY($2))
		  AND (1 - (embedding <=> $1)) >= $3
		ORDER BY embedding <=> $1
		LIMIT $4`, queryVec, exclude, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("nearest feedback: %w", err)
	}
	defer rows.Close()

	var results []models.FeedbackWithScore

	for rows.Next() {
		var (
			f      models.FeedbackItem
			status string
			emb    *pgvector.Vector
			score  float64
		)

		err := rows.Scan(
			&f.ID, &f.Title, &f.Description, &emb, &f.AccountName, &f.AccountSegment,
			&f.AccountStatus, &f.AccountARR, &f.PotentialARR, &f.Importance, &status, &f.AssignedTo,
			&f.SuggestedOwnerID, &f.SuggestionConfidence, &f.ProductAreaID, &f.SuggestedProductAreaID, &f.CreatedAt,
			&score,
		)
		if err != nil {
			return nil, fmt.Errorf("scan nearest feedback: %w", err)
		}

		f.TriageStatus = models.NormalizeTriageStatus(status)
		if emb != nil {
			f.Embedding = emb.Slice()
		}

		results = append(results, models.FeedbackWithScore{Feedback: f, Score: score})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nearest feedback: %w", err)
	}

	return results, nil
}

// ListAll returns every feedback item (used by insights roll-ups).
func (r *FeedbackRepository) ListAll(ctx context.Context) ([]models.FeedbackItem, error) {
	rows, err := r.db.Query(ctx, `SELECT `+feedbackColumns+` FROM feedback`)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	return collectFeedback(rows)
}

func collectFeedback(rows pgx.Rows) ([]models.FeedbackItem, error) {
	var items []models.FeedbackItem

	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}

		items = append(items, *f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating feedback: %w", err)
	}

	return items, nil
}
