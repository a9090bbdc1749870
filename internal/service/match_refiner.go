package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/roadmaphq/triage/internal/llm"
	"github.com/roadmaphq/triage/internal/models"
	"github.com/roadmaphq/triage/pkg/cache"
)

// Stage-1 retrieval policy. The threshold is deliberately low: stage 1
// optimizes for recall and tolerates false positives, the re-rank prunes.
const (
	stage1Threshold        = 0.45
	evidenceCandidateLimit = 30
	suggestCandidateLimit  = 10
)

// newIdeaHintThreshold: when the best idea match scores below this, the
// suggestion result carries a "create a new idea instead" hint.
const newIdeaHintThreshold = 0.7

// similarityFallbackReason annotates matches returned from raw stage-1
// similarity when the re-rank could not run.
const similarityFallbackReason = "semantically similar, AI refinement unavailable"

// Sentinel errors callers branch on to pick the fallback path.
var (
	// ErrEmbeddingUnavailable means the query could not be embedded (no
	// provider, empty text). The caller should use the FallbackMatcher.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable for query")
	// ErrNoCandidates means stage-1 retrieval found nothing above the
	// threshold. The LLM is never called in this case.
	ErrNoCandidates = errors.New("no stage-1 candidates")
)

// FeedbackVectorIndex performs nearest-neighbor search over stored feedback
// embeddings.
type FeedbackVectorIndex interface {
	NearestToEmbedding(
		ctx context.Context, queryEmbedding []float32, threshold float64, limit int, excludeIDs []uuid.UUID,
	) ([]models.FeedbackWithScore, error)
}

// IdeaVectorIndex performs nearest-neighbor search over stored idea
// embeddings.
type IdeaVectorIndex interface {
	NearestToEmbedding(
		ctx context.Context, queryEmbedding []float32, threshold float64, limit int, excludeIDs []uuid.UUID,
	) ([]models.IdeaWithScore, error)
}

// MatchRefiner runs the two-stage matching pipeline: vector retrieval for
// recall, then an LLM re-rank for precision. Symmetric over both directions,
// idea to feedback (find evidence) and feedback to idea (suggest ideas).
type MatchRefiner struct {
	embedder      *EmbeddingService
	llm           llm.Client
	feedbackIndex FeedbackVectorIndex
	ideaIndex     IdeaVectorIndex
	queryCache    *cache.LoaderCache[string, []float32]
	logger        *slog.Logger
}

// MatchRefinerParams configures MatchRefiner. QueryCache may be nil (no
// query-embedding caching).
type MatchRefinerParams struct {
	Embedder      *EmbeddingService
	LLM           llm.Client
	FeedbackIndex FeedbackVectorIndex
	IdeaIndex     IdeaVectorIndex
	QueryCache    *cache.LoaderCache[string, []float32]
	Logger        *slog.Logger
}

// NewMatchRefiner creates a MatchRefiner.
func NewMatchRefiner(p MatchRefinerParams) *MatchRefiner {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &MatchRefiner{
		embedder:      p.Embedder,
		llm:           p.LLM,
		feedbackIndex: p.FeedbackIndex,
		ideaIndex:     p.IdeaIndex,
		queryCache:    p.QueryCache,
		logger:        logger,
	}
}

// llmMatch is the per-candidate entry the re-rank prompt asks the model to
// emit.
type llmMatch struct {
	ID         string  `json:"id"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

type evidenceResponse struct {
	Matches []llmMatch `json:"matches"`
}

type suggestResponse struct {
	Matches          []llmMatch `json:"matches"`
	SuggestedNewIdea *struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"suggested_new_idea"`
}

// FindEvidence matches one idea against the feedback corpus and returns
// confidence-ranked evidence. excludeIDs (already-linked feedback) is applied
// at retrieval time so linked items never resurface. Returns
// ErrEmbeddingUnavailable or ErrNoCandidates when the pipeline cannot run;
// callers fall back to FallbackMatcher for those.
func (m *MatchRefiner) FindEvidence(
	ctx context.Context, title, description string, excludeIDs []uuid.UUID,
) ([]models.EvidenceMatch, error) {
	query := strings.TrimSpace(title + ". " + description)

	embedding, err := m.queryEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}

	candidates, err := m.feedbackIndex.NearestToEmbedding(ctx, embedding, stage1Threshold, evidenceCandidateLimit, excludeIDs)
	if err != nil {
		return nil, fmt.Errorf("stage1 feedback retrieval: %w", err)
	}

	if len(candidates) == 0 {
		m.logger.Debug("matching: stage1 empty", "direction", "evidence")

		return nil, ErrNoCandidates
	}

	scored := m.rerankEvidence(ctx, title, description, candidates)

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Confidence > scored[j].Confidence })

	return scored, nil
}

func (m *MatchRefiner) rerankEvidence(
	ctx context.Context, title, description string, candidates []models.FeedbackWithScore,
) []models.EvidenceMatch {
	userPrompt := fmt.Sprintf("Idea: %s\n%s\n\nCandidate feedback:\n%s",
		title, description, formatFeedbackCandidates(candidates))

	byID := make(map[string]models.FeedbackWithScore, len(candidates))
	for _, c := range candidates {
		byID[c.Feedback.ID.String()] = c
	}

	response, err := m.llm.Complete(ctx, []llm.Message{
		llm.SystemMessage(evidenceSystemPrompt),
		llm.UserMessage(userPrompt),
	})
	if err != nil {
		m.logger.Warn("matching: rerank call failed, using similarity fallback", "error", err)

		return evidenceFromSimilarity(candidates)
	}

	var parsed evidenceResponse
	if err := decodeJSONObject(response, &parsed); err != nil {
		m.logger.Warn("matching: rerank response unparseable, using similarity fallback", "error", err)

		return evidenceFromSimilarity(candidates)
	}

	matches := make([]models.EvidenceMatch, 0, len(parsed.Matches))

	for _, lm := range parsed.Matches {
		candidate, ok := byID[lm.ID]
		if !ok {
			continue
		}

		confidence := clampConfidence(lm.Confidence)
		if confidence < ConfidenceMatchFloor {
			continue
		}

		matches = append(matches, models.EvidenceMatch{
			FeedbackID: candidate.Feedback.ID,
			Confidence: confidence,
			Reason:     lm.Reason,
			Feedback:   candidate.Feedback,
		})
	}

	return matches
}

// SuggestIdeas matches one feedback description against the idea corpus.
// excludeIDs (ideas the item is already linked to) is applied at retrieval
// time. When the best match is weak, the result carries a suggested-new-idea
// hint with the model's synthesized title and description.
func (m *MatchRefiner) SuggestIdeas(
	ctx context.Context, description string, excludeIDs []uuid.UUID,
) (models.IdeaSuggestions, error) {
	query := strings.TrimSpace(description)

	embedding, err := m.queryEmbedding(ctx, query)
	if err != nil {
		return models.IdeaSuggestions{}, err
	}

	candidates, err := m.ideaIndex.NearestToEmbedding(ctx, embedding, stage1Threshold, suggestCandidateLimit, excludeIDs)
	if err != nil {
		return models.IdeaSuggestions{}, fmt.Errorf("stage1 idea retrieval: %w", err)
	}

	if len(candidates) == 0 {
		m.logger.Debug("matching: stage1 empty", "direction", "suggest")

		return models.IdeaSuggestions{}, ErrNoCandidates
	}

	result := m.rerankIdeas(ctx, description, candidates)

	sort.SliceStable(result.Matches, func(i, j int) bool {
		return result.Matches[i].Confidence > result.Matches[j].Confidence
	})

	attachNewIdeaHint(&result, description)

	return result, nil
}

func (m *MatchRefiner) rerankIdeas(
	ctx context.Context, description string, candidates []models.IdeaWithScore,
) models.IdeaSuggestions {
	userPrompt := fmt.Sprintf("Feedback:\n%s\n\nCandidate ideas:\n%s",
		description, formatIdeaCandidates(candidates))

	byID := make(map[string]models.IdeaWithScore, len(candidates))
	for _, c := range candidates {
		byID[c.Idea.ID.String()] = c
	}

	response, err := m.llm.Complete(ctx, []llm.Message{
		llm.SystemMessage(suggestSystemPrompt),
		llm.UserMessage(userPrompt),
	})
	if err != nil {
		m.logger.Warn("matching: rerank call failed, using similarity fallback", "error", err)

		return models.IdeaSuggestions{Matches: ideasFromSimilarity(candidates)}
	}

	var parsed suggestResponse
	if err := decodeJSONObject(response, &parsed); err != nil {
		m.logger.Warn("matching: rerank response unparseable, using similarity fallback", "error", err)

		return models.IdeaSuggestions{Matches: ideasFromSimilarity(candidates)}
	}

	result := models.IdeaSuggestions{}

	for _, lm := range parsed.Matches {
		candidate, ok := byID[lm.ID]
		if !ok {
			continue
		}

		confidence := clampConfidence(lm.Confidence)
		if confidence < ConfidenceMatchFloor {
			continue
		}

		result.Matches = append(result.Matches, models.IdeaMatch{
			IdeaID:     candidate.Idea.ID,
			Confidence: confidence,
			Reason:     lm.Reason,
			Idea:       candidate.Idea,
		})
	}

	if parsed.SuggestedNewIdea != nil {
		result.SuggestedNewIdea = &models.SuggestedNewIdea{
			Title:       parsed.SuggestedNewIdea.Title,
			Description: parsed.SuggestedNewIdea.Description,
		}
	}

	return result
}

// attachNewIdeaHint sets ShouldCreate when the best surviving match is below
// the hint threshold. The decision is deterministic; the model only supplies
// the synthesized title and description.
func attachNewIdeaHint(result *models.IdeaSuggestions, description string) {
	best := 0.0
	if len(result.Matches) > 0 {
		best = result.Matches[0].Confidence
	}

	if best >= newIdeaHintThreshold {
		return
	}

	if result.SuggestedNewIdea == nil {
		result.SuggestedNewIdea = &models.SuggestedNewIdea{
			Title:       truncateForPrompt(description, 80),
			Description: description,
		}
	}

	result.SuggestedNewIdea.ShouldCreate = true
}

// evidenceFromSimilarity turns stage-1 candidates into final matches using
// raw similarity as confidence. The hard floor still applies.
func evidenceFromSimilarity(candidates []models.FeedbackWithScore) []models.EvidenceMatch {
	matches := make([]models.EvidenceMatch, 0, len(candidates))

	for _, c := range candidates {
		confidence := clampConfidence(c.Score)
		if confidence < ConfidenceMatchFloor {
			continue
		}

		matches = append(matches, models.EvidenceMatch{
			FeedbackID: c.Feedback.ID,
			Confidence: confidence,
			Reason:     similarityFallbackReason,
			Feedback:   c.Feedback,
		})
	}

	return matches
}

func ideasFromSimilarity(candidates []models.IdeaWithScore) []models.IdeaMatch {
	matches := make([]models.IdeaMatch, 0, len(candidates))

	for _, c := range candidates {
		confidence := clampConfidence(c.Score)
		if confidence < ConfidenceMatchFloor {
			continue
		}

		matches = append(matches, models.IdeaMatch{
			IdeaID:     c.Idea.ID,
			Confidence: confidence,
			Reason:     similarityFallbackReason,
			Idea:       c.Idea,
		})
	}

	return matches
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}

// queryEmbedding returns the embedding for a query string, cached when a
// cache was supplied. Concurrent misses for the same query collapse into one
// provider call.
func (m *MatchRefiner) queryEmbedding(ctx context.Context, query string) ([]float32, error) {
	if query == "" || query == "." {
		return nil, ErrEmbeddingUnavailable
	}

	if m.queryCache == nil {
		vec := m.embedder.Embed(ctx, query)
		if vec == nil {
			return nil, ErrEmbeddingUnavailable
		}

		return vec, nil
	}

	return m.queryCache.Get(ctx, query, func(ctx context.Context, q string) ([]float32, error) {
		vec := m.embedder.Embed(ctx, q)
		if vec == nil {
			return nil, ErrEmbeddingUnavailable
		}

		return vec, nil
	})
}
