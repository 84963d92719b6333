// Package knowledge manages the coaching document knowledge base: source
// documents, their embedded chunks, and filtered vector similarity search
// over PostgreSQL + pgvector.
//
// # Data model
//
// A Document is a source file (PDF) accepted into the knowledge base. Its
// lifecycle is a small state machine:
//
//	PENDING → PROCESSING → COMPLETED
//	                     ↘ FAILED
//
// A Chunk is one retrievable passage derived from a document: bounded text,
// a page range, coarse classification (category, optional technique), and a
// fixed-dimension embedding vector. Chunks are exclusively owned by their
// document: deleting or reprocessing a document deletes its chunks first,
// so duplicates and orphans cannot occur.
//
// # Search
//
// SearchChunks ranks chunks by cosine similarity (1 - cosine distance over
// the pgvector <=> operator) with optional sport, category and technique
// filters. Sport and technique follow an exact-or-unset rule (untagged
// chunks are global); categories match only explicitly. The WHERE clause is
// composed dynamically but every filter value is a bound parameter.
//
// The read path (retriever) and write path (ingestion processor) may run
// concurrently; consistency is eventual for the document being reprocessed
// and strict for all others.
package knowledge
