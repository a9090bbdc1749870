package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

const (
	embeddingJobKind = "generate_embedding"
	// EmbeddingsQueueName is the River queue used for embedding jobs.
	EmbeddingsQueueName = "embeddings"
)

// Embedding job record types.
const (
	EmbeddingRecordFeedback = "feedback"
	EmbeddingRecordIdea     = "idea"
)

// EmbeddingJobInserter inserts embedding jobs (e.g. River client).
type EmbeddingJobInserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// EmbeddingArgs is the job payload for generating and storing the embedding
// of one feedback item or idea, enqueued at record creation. Uniqueness is by
// (RecordType, RecordID) so duplicate events never create duplicate jobs.
type EmbeddingArgs struct {
	RecordType string    `json:"record_type" river:"unique"`
	RecordID   uuid.UUID `json:"record_id" river:"unique"`
}

// Kind returns the River job kind.
func (EmbeddingArgs) Kind() string { return embeddingJobKind }

var _ river.JobArgs = EmbeddingArgs{}
