package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roadmaphq/triage/internal/models"
)

// LinksRepository handles the feedback-to-idea link table, the source of
// truth for evidence relationships.
type LinksRepository struct {
	db *pgxpool.Pool
}

// NewLinksRepository creates a new links repository.
func NewLinksRepository(db *pgxpool.Pool) *LinksRepository {
	return &LinksRepository{db: db}
}

// prefixColumns qualifies each column in a comma-separated list with a table
// alias, for use in joins.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}

	return strings.Join(parts, ", ")
}

// Upsert creates a link between a feedback item and an idea. Re-linking the
// same pair is a no-op that keeps the original confidence.
func (r *LinksRepository) Upsert(ctx context.Context, feedbackID, ideaID uuid.UUID, confidence *float64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO feedback_idea_links (feedback_id, idea_id, confidence)
		VALUES ($1, $2, $3)
		ON CONFLICT (feedback_id, idea_id) DO NOTHING`,
		feedbackID, ideaID, confidence)
	if err != nil {
		return fmt.Errorf("upsert link: %w", err)
	}

	return nil
}

// Delete removes the link between a feedback item and an idea.
func (r *LinksRepository) Delete(ctx context.Context, feedbackID, ideaID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM feedback_idea_links WHERE feedback_id = $1 AND idea_id = $2`,
		feedbackID, ideaID)
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}

	return nil
}

// ListFeedbackByIdea returns the feedback items linked to an idea, newest
// link first.
func (r *LinksRepository) ListFeedbackByIdea(ctx context.Context, ideaID uuid.UUID) ([]models.FeedbackItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+prefixColumns("f", feedbackColumns)+`
		FROM feedback_idea_links l
		JOIN feedback f ON f.id = l.feedback_id
		WHERE l.idea_id = $1
		ORDER BY l.created_at DESC`, ideaID)
	if err != nil {
		return nil, fmt.Errorf("list feedback for idea: %w", err)
	}
	defer rows.Close()

	return collectFeedback(rows)
}

// ListLinkedFeedbackIDs returns the ids of feedback items already linked to
// the given idea.
func (r *LinksRepository) ListLinkedFeedbackIDs(ctx context.Context, ideaID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx,
		`SELECT feedback_id FROM feedback_idea_links WHERE idea_id = $1`, ideaID)
	if err != nil {
		return nil, fmt.Errorf("list linked feedback ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan linked feedback id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating linked feedback ids: %w", err)
	}

	return ids, nil
}

// ListIdeaIDsForFeedback returns the ids of ideas the given feedback item is
// linked to.
func (r *LinksRepository) ListIdeaIDsForFeedback(ctx context.Context, feedbackID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx,
		`SELECT idea_id FROM feedback_idea_links WHERE feedback_id = $1`, feedbackID)
	if err != nil {
		return nil, fmt.Errorf("list idea ids for feedback: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan idea id: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating idea ids: %w", err)
	}

	return ids, nil
}

// ListAll returns every link row (used by metric recomputation and insights).
func (r *LinksRepository) ListAll(ctx context.Context) ([]models.FeedbackIdeaLink, error) {
	rows, err := r.db.Query(ctx,
		`SELECT feedback_id, idea_id, confidence, created_at FROM feedback_idea_links`)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	var links []models.FeedbackIdeaLink

	for rows.Next() {
		var link models.FeedbackIdeaLink
		if err := rows.Scan(&link.FeedbackID, &link.IdeaID, &link.Confidence, &link.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}

		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating links: %w", err)
	}

	return links, nil
}
