package rag

import (
	"fmt"
	"strings"

	"github.com/courtsense/courtsense/internal/knowledge"
)

// Section headings for the grounding block, keyed by category.
var categoryHeadings = map[knowledge.Category]string{
	knowledge.CategoryTheory:       "Technique theory",
	knowledge.CategoryExercise:     "Drills and exercises",
	knowledge.CategoryTrainingPlan: "Training plan examples",
	knowledge.CategoryGeneral:      "Additional reference material",
}

const contextClosing = "Ground your analysis in the reference material above. " +
	"Cite the source document when you rely on it, and say so explicitly " +
	"when the material does not cover the question."

// BuildContext formats retrieved chunks into a single grounding text block.
// Chunks are grouped by category in a fixed order, preserving the ranked
// input order within each group, and each chunk carries a source citation.
// Returns the empty string for zero chunks so callers can cheaply detect
// that no grounding is available.
//
// Pure and deterministic: no I/O, same input always yields the same output.
func BuildContext(chunks []knowledge.RetrievedChunk) string {
	if len(chunks) == 0 {
		return ""
	}

	grouped := make(map[knowledge.Category][]knowledge.RetrievedChunk)
	for _, c := range chunks {
		grouped[c.Category] = append(grouped[c.Category], c)
	}

	var b strings.Builder
	b.WriteString("## Reference material\n")
	for _, category := range knowledge.AllCategories() {
		group := grouped[category]
		if len(group) == 0 {
			continue
		}
		b.WriteString("\n### ")
		b.WriteString(categoryHeadings[category])
		b.WriteString("\n")
		for _, c := range group {
			b.WriteString("\n")
			b.WriteString(strings.TrimSpace(c.Content))
			b.WriteString("\n")
			b.WriteString(citation(c))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(contextClosing)
	return b.String()
}

// citation renders the source line for one chunk.
func citation(c knowledge.RetrievedChunk) string {
	name := c.DocumentName
	if name == "" {
		name = "unknown source"
	}
	switch {
	case c.PageStart <= 0:
		return fmt.Sprintf("(Source: %s)", name)
	case c.PageStart == c.PageEnd:
		return fmt.Sprintf("(Source: %s, p. %d)", name, c.PageStart)
	default:
		return fmt.Sprintf("(Source: %s, pp. %d-%d)", name, c.PageStart, c.PageEnd)
	}
}
