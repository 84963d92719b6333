package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

var (
	// ErrDocumentNotFound indicates the requested document does not exist.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrAlreadyProcessing indicates another processing run holds the document.
	ErrAlreadyProcessing = errors.New("document is already being processed")
)

const (
	// insertBatchSize bounds a single chunk INSERT batch to keep transaction
	// and request sizes predictable.
	insertBatchSize = 50

	// MaxSearchLimit caps similarity search result sets.
	MaxSearchLimit = 50

	// DefaultProcessingLease is how long a PROCESSING claim is honored before
	// a document is considered stuck and may be reclaimed by a new run.
	DefaultProcessingLease = 15 * time.Minute
)

// documentCols is the standard SELECT column list for scanDocument.
const documentCols = `id, name, source_url, sport_slug, status, page_count,
	error_message, created_at, updated_at`

// Store manages documents and their embedded chunks in PostgreSQL + pgvector.
//
// Store is safe for concurrent use by multiple goroutines. Writers (the
// ingestion processor) and readers (the retriever) may run concurrently; a
// retrieval during an in-flight reprocessing may transiently see zero or
// partial chunks for that document, which only affects grounding richness.
type Store struct {
	pool            *pgxpool.Pool
	logger          *slog.Logger
	processingLease time.Duration
}

// NewStore creates a knowledge Store.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger, processingLease: DefaultProcessingLease}, nil
}

// NewDocumentParams holds the attributes of a new document record.
type NewDocumentParams struct {
	Name      string
	SourceURL string

	// SportSlug may be nil: the document then applies to all sports.
	SportSlug *string
}

// CreateDocument inserts a document in PENDING state. The upload flow calls
// this before handing the document id to the processor.
func (s *Store) CreateDocument(ctx context.Context, p NewDocumentParams) (*Document, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("document name is required")
	}
	if p.SourceURL == "" {
		return nil, fmt.Errorf("document source URL is required")
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO documents (name, source_url, sport_slug)
		 VALUES ($1, $2, $3)
		 RETURNING `+documentCols,
		p.Name, p.SourceURL, p.SportSlug,
	)
	doc, err := scanDocument(row)
	if err != nil {
		return nil, fmt.Errorf("creating document: %w", err)
	}

	s.logger.Debug("created document", "id", doc.ID, "name", doc.Name)
	return doc, nil
}

// GetDocument loads a document by id. Returns ErrDocumentNotFound when absent.
func (s *Store) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+documentCols+` FROM documents WHERE id = $1`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading document %s: %w", id, err)
	}
	return doc, nil
}

// ListDocuments returns documents ordered by creation time, newest first.
func (s *Store) ListDocuments(ctx context.Context, limit int32) ([]*Document, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+documentCols+` FROM documents ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// MarkProcessing claims a document for processing. The claim is refused with
// ErrAlreadyProcessing when another run holds the document, unless that run's
// claim is older than the processing lease (a deploy restart can abandon a
// run mid-flight; the lease lets reconciliation reclaim it safely because
// ingestion is idempotent).
func (s *Store) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents
		 SET status = $2, error_message = NULL, updated_at = now()
		 WHERE id = $1
		   AND (status <> $2 OR updated_at < now() - make_interval(secs => $3))`,
		id, StatusProcessing, s.processingLease.Seconds(),
	)
	if err != nil {
		return fmt.Errorf("marking document %s processing: %w", id, err)
	}

	if tag.RowsAffected() == 0 {
		// Distinguish not-found from an active claim.
		var status Status
		lookupErr := s.pool.QueryRow(ctx,
			`SELECT status FROM documents WHERE id = $1`, id).Scan(&status)
		if errors.Is(lookupErr, pgx.ErrNoRows) {
			return ErrDocumentNotFound
		}
		if lookupErr != nil {
			return fmt.Errorf("looking up document %s: %w", id, lookupErr)
		}
		return ErrAlreadyProcessing
	}

	return nil
}

// SetPageCount records the extracted page count. Called after successful
// text extraction, while the document is PROCESSING.
func (s *Store) SetPageCount(ctx context.Context, id uuid.UUID, pageCount int32) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE documents SET page_count = $2, updated_at = now() WHERE id = $1`,
		id, pageCount,
	)
	if err != nil {
		return fmt.Errorf("setting page count for %s: %w", id, err)
	}
	return nil
}

// MarkCompleted transitions a document to COMPLETED and clears any error.
func (s *Store) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE documents
		 SET status = $2, error_message = NULL, updated_at = now()
		 WHERE id = $1`,
		id, StatusCompleted,
	)
	if err != nil {
		return fmt.Errorf("marking document %s completed: %w", id, err)
	}
	return nil
}

// MarkFailed transitions a document to FAILED with a bounded error message.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE documents
		 SET status = $2, error_message = $3, updated_at = now()
		 WHERE id = $1`,
		id, StatusFailed, TruncateError(message),
	)
	if err != nil {
		return fmt.Errorf("marking document %s failed: %w", id, err)
	}
	return nil
}

// ListStuckProcessing returns documents that have been PROCESSING longer
// than olderThan. An external reconciliation loop can re-invoke processing
// for these; reprocessing is idempotent.
func (s *Store) ListStuckProcessing(ctx context.Context, olderThan time.Duration) ([]*Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+documentCols+`
		 FROM documents
		 WHERE status = $1 AND updated_at < now() - make_interval(secs => $2)
		 ORDER BY updated_at ASC`,
		StatusProcessing, olderThan.Seconds(),
	)
	if err != nil {
		return nil, fmt.Errorf("listing stuck documents: %w", err)
	}
	defer rows.Close()

	return scanDocuments(rows)
}

// DeleteDocument removes a document and, via FK cascade, all its chunks.
func (s *Store) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	s.logger.Debug("deleted document", "id", id)
	return nil
}

// DeleteChunks removes all chunks owned by a document. Reprocessing calls
// this before inserting fresh chunks so a document never accumulates
// duplicate or stale passages.
func (s *Store) DeleteChunks(ctx context.Context, documentID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return 0, fmt.Errorf("deleting chunks for document %s: %w", documentID, err)
	}
	return tag.RowsAffected(), nil
}

// InsertChunks stores chunks with their embeddings. Inserts are grouped into
// batches of insertBatchSize to bound request size; each batch runs in its
// own implicit transaction via pgx's batch protocol.
//
// Every chunk must carry an embedding of exactly VectorDimension entries;
// chunks are only written after successful embedding.
func (s *Store) InsertChunks(ctx context.Context, chunks []Chunk) error {
	for i := range chunks {
		if len(chunks[i].Embedding) != VectorDimension {
			return fmt.Errorf("chunk %d: embedding dimension %d, want %d",
				chunks[i].ChunkIndex, len(chunks[i].Embedding), VectorDimension)
		}
	}

	for start := 0; start < len(chunks); start += insertBatchSize {
		end := min(start+insertBatchSize, len(chunks))

		batch := &pgx.Batch{}
		for _, c := range chunks[start:end] {
			vec := pgvector.NewVector(c.Embedding)
			batch.Queue(
				`INSERT INTO chunks (document_id, content, chunk_index, page_start, page_end,
				                     sport_slug, category, technique, token_count, embedding)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				c.DocumentID, c.Content, c.ChunkIndex, c.PageStart, c.PageEnd,
				c.SportSlug, c.Category, c.Technique, c.TokenCount, vec,
			)
		}

		if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting chunk batch [%d:%d]: %w", start, end, err)
		}
	}

	s.logger.Debug("inserted chunks", "count", len(chunks))
	return nil
}

// CountChunks returns the number of chunks owned by a document.
func (s *Store) CountChunks(ctx context.Context, documentID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM chunks WHERE document_id = $1`, documentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting chunks for %s: %w", documentID, err)
	}
	return count, nil
}

// SearchChunks performs a filtered approximate nearest-neighbor search and
// returns chunks ranked by cosine similarity descending. Chunks without an
// embedding never match. Result chunks do not carry their embedding vector
// (retrieval consumers only need the text and provenance).
//
// All filter values are passed as bound parameters; the statement text only
// ever contains placeholders, regardless of which filters are active.
func (s *Store) SearchChunks(ctx context.Context, embedding []float32, f SearchFilter) ([]RetrievedChunk, error) {
	if len(embedding) != VectorDimension {
		return nil, fmt.Errorf("query embedding dimension %d, want %d", len(embedding), VectorDimension)
	}

	sql, args := buildSearchQuery(pgvector.NewVector(embedding), f)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	defer rows.Close()

	var results []RetrievedChunk
	for rows.Next() {
		var rc RetrievedChunk
		if err := rows.Scan(
			&rc.Chunk.ID, &rc.Chunk.DocumentID, &rc.Chunk.Content,
			&rc.Chunk.ChunkIndex, &rc.Chunk.PageStart, &rc.Chunk.PageEnd,
			&rc.Chunk.SportSlug, &rc.Chunk.Category, &rc.Chunk.Technique,
			&rc.Chunk.TokenCount, &rc.Chunk.CreatedAt,
			&rc.DocumentName, &rc.Similarity,
		); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		results = append(results, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}

	return results, nil
}

// buildSearchQuery composes the similarity statement with only the active
// filters. Every value is a bound parameter, never interpolated, because
// sport, technique and category can be user-influenced.
func buildSearchQuery(vec pgvector.Vector, f SearchFilter) (string, []any) {
	var b strings.Builder
	args := []any{vec}

	b.WriteString(`SELECT c.id, c.document_id, c.content, c.chunk_index, c.page_start, c.page_end,
	       c.sport_slug, c.category, c.technique, c.token_count, c.created_at,
	       d.name, 1 - (c.embedding <=> $1) AS similarity
	  FROM chunks c
	  JOIN documents d ON d.id = c.document_id
	 WHERE c.embedding IS NOT NULL`)

	// Untagged chunks are global: they match every sport filter.
	if f.Sport != "" {
		args = append(args, f.Sport)
		fmt.Fprintf(&b, " AND (c.sport_slug = $%d OR c.sport_slug IS NULL)", len(args))
	}

	// Categories are explicit: no wildcard for unset.
	if len(f.Categories) > 0 {
		cats := make([]string, len(f.Categories))
		for i, c := range f.Categories {
			cats[i] = string(c)
		}
		args = append(args, cats)
		fmt.Fprintf(&b, " AND c.category = ANY($%d)", len(args))
	}

	// Unset technique matches any technique filter.
	if f.Technique != "" {
		args = append(args, f.Technique)
		fmt.Fprintf(&b, " AND (c.technique = $%d OR c.technique IS NULL)", len(args))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 5
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	args = append(args, limit)
	fmt.Fprintf(&b, " ORDER BY c.embedding <=> $1 LIMIT $%d", len(args))

	return b.String(), args
}

// TruncateError bounds an error message to MaxErrorMessageLen runes for
// persistence on the document record.
func TruncateError(msg string) string {
	runes := []rune(msg)
	if len(runes) <= MaxErrorMessageLen {
		return msg
	}
	return string(runes[:MaxErrorMessageLen-3]) + "..."
}

// scanDocument reads a Document from a single row (documentCols order).
func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	if err := row.Scan(
		&d.ID, &d.Name, &d.SourceURL, &d.SportSlug, &d.Status,
		&d.PageCount, &d.ErrorMessage, &d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

// scanDocuments reads Document structs from pgx.Rows (documentCols order).
func scanDocuments(rows pgx.Rows) ([]*Document, error) {
	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}
