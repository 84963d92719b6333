package knowledge

import (
	"time"

	"github.com/google/uuid"
)

// VectorDimension is the embedding dimensionality of the chunks table.
// Must match the vector(768) column in db/migrations.
const VectorDimension = 768

// MaxErrorMessageLen bounds the error message persisted on a failed document.
const MaxErrorMessageLen = 300

// Status is the processing lifecycle state of a document.
type Status string

// Document lifecycle states. A document is created PENDING by the upload
// flow, moves to PROCESSING when ingestion starts, and terminates in
// COMPLETED or FAILED.
const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Category is the coarse classification of a chunk's content.
type Category string

// Chunk categories. Classification is a best-effort heuristic; GENERAL is
// the fallback.
const (
	CategoryTheory       Category = "THEORY"
	CategoryExercise     Category = "EXERCISE"
	CategoryTrainingPlan Category = "TRAINING_PLAN"
	CategoryGeneral      Category = "GENERAL"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryTheory, CategoryExercise, CategoryTrainingPlan, CategoryGeneral:
		return true
	}
	return false
}

// AllCategories returns the categories in canonical presentation order:
// theory first, then worked exercises, then training-plan examples, then
// uncategorized content.
func AllCategories() []Category {
	return []Category{CategoryTheory, CategoryExercise, CategoryTrainingPlan, CategoryGeneral}
}

// Document is a source file accepted into the knowledge base.
type Document struct {
	ID        uuid.UUID
	Name      string
	SourceURL string

	// SportSlug is nil when the document applies to all sports.
	SportSlug *string

	Status Status

	// PageCount is set only after successful text extraction.
	PageCount *int32

	// ErrorMessage is non-nil only when Status is FAILED.
	ErrorMessage *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Chunk is a retrievable passage derived from one document. Chunks are
// immutable after creation; reprocessing a document replaces them wholesale.
type Chunk struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	Content    string

	// ChunkIndex is the ordinal within the document; indices are contiguous
	// and unique per document.
	ChunkIndex int32

	// PageStart/PageEnd is the inclusive page range the passage spans.
	PageStart int32
	PageEnd   int32

	// SportSlug is inherited from the owning document; nil means all sports.
	SportSlug *string

	Category Category

	// Technique is nil when classification could not identify one; retrieval
	// treats unset as matching any technique filter.
	Technique *string

	TokenCount int32

	// Embedding is nil until the embedding pipeline has produced a vector;
	// chunks without an embedding are excluded from retrieval.
	Embedding []float32

	CreatedAt time.Time
}

// RetrievedChunk is a query-time projection: a chunk plus its similarity
// score and the owning document's human-readable name. Never persisted.
type RetrievedChunk struct {
	Chunk

	Similarity   float64 // cosine similarity in [0, 1], 1 = identical direction
	DocumentName string
}

// SearchFilter restricts a similarity search.
//
// Filter semantics:
//   - Sport: a chunk matches when its sport tag equals Sport or is unset
//     (untagged chunks are global). Empty string disables the filter.
//   - Technique: same exact-or-unset rule. Empty string disables the filter.
//   - Categories: a chunk matches only when its category is explicitly in
//     the set (no wildcard for unset). Nil/empty disables the filter.
//   - Limit: maximum number of rows returned, ranked by similarity.
type SearchFilter struct {
	Sport      string
	Categories []Category
	Technique  string
	Limit      int
}
