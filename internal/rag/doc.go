// Package rag implements the ingestion and retrieval pipeline around the
// knowledge store: document processing (fetch, extract, chunk, embed,
// store), similarity-based retrieval, and grounding context assembly.
//
// The write path (Processor) and the read path (Retriever + context
// building) are independent; retrieval during an in-flight reprocessing may
// transiently see fewer chunks for that document, which only reduces
// grounding richness.
package rag
