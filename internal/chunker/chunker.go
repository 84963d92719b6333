// Package chunker splits extracted page text into token-bounded passages
// suitable for embedding and retrieval.
//
// Chunks prefer natural boundaries: paragraphs first, sentences when a
// paragraph alone overflows the window, and a hard token window as the last
// resort for degenerate run-on text. A chunk may span consecutive pages but
// never skips one, and carries the inclusive page range it covers.
package chunker

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/courtsense/courtsense/internal/extract"
	"github.com/courtsense/courtsense/internal/knowledge"
)

// ErrEmptyDocument indicates the source yielded no usable text. The
// ingestion pipeline treats this as a hard failure rather than silently
// producing zero chunks.
var ErrEmptyDocument = errors.New("document produced no usable text")

// tokenRegex approximates tokenization: words (allowing internal - and _)
// or single non-space symbols.
var tokenRegex = regexp.MustCompile(`\w+(?:[-_]\w+)*|\S`)

// sentenceRegex splits on sentence-final punctuation.
var sentenceRegex = regexp.MustCompile(`[^.!?]+[.!?]+`)

// Passage is a chunk blueprint: everything a stored chunk needs except its
// identity, owning document and embedding.
type Passage struct {
	Content    string
	ChunkIndex int32
	PageStart  int32
	PageEnd    int32
	Category   knowledge.Category

	// Technique is empty when the classifier could not identify one.
	Technique string

	TokenCount int
}

// Config defines the token window for passages. Counts are approximate
// (see CountTokens); the window keeps chunks large enough to be meaningful
// and small enough that embedding quality does not degrade.
type Config struct {
	// MinTokens is the smallest chunk worth keeping on a flush boundary.
	MinTokens int

	// TargetTokens is the preferred chunk size; the chunker flushes once a
	// chunk reaches it.
	TargetTokens int

	// MaxTokens is the hard ceiling; paragraphs that would overflow it are
	// split at sentence boundaries.
	MaxTokens int
}

// DefaultConfig returns the standard chunking window.
func DefaultConfig() Config {
	return Config{MinTokens: 120, TargetTokens: 360, MaxTokens: 480}
}

// Chunker splits pages into classified passages.
type Chunker struct {
	cfg        Config
	classifier Classifier
}

// New creates a Chunker. A nil classifier falls back to the keyword-based
// DefaultClassifier; zero-valued config fields fall back to DefaultConfig.
func New(cfg Config, classifier Classifier) *Chunker {
	def := DefaultConfig()
	if cfg.MinTokens <= 0 {
		cfg.MinTokens = def.MinTokens
	}
	if cfg.TargetTokens <= 0 {
		cfg.TargetTokens = def.TargetTokens
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.TargetTokens < cfg.MinTokens {
		cfg.TargetTokens = cfg.MinTokens
	}
	if cfg.MaxTokens < cfg.TargetTokens {
		cfg.MaxTokens = cfg.TargetTokens
	}
	if classifier == nil {
		classifier = DefaultClassifier()
	}
	return &Chunker{cfg: cfg, classifier: classifier}
}

// unit is one paragraph (or sentence fragment) with its source page.
type unit struct {
	text   string
	page   int32
	tokens int
}

// Split produces ordered passages from extracted pages. Chunk indices are
// contiguous starting at 0. Returns ErrEmptyDocument when the pages contain
// no usable text.
func (c *Chunker) Split(pages []extract.Page) ([]Passage, error) {
	units := c.buildUnits(pages)
	if len(units) == 0 {
		return nil, ErrEmptyDocument
	}

	var passages []Passage
	var current []unit
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		passages = append(passages, c.assemble(current, int32(len(passages))))
		current = nil
		currentTokens = 0
	}

	for _, u := range units {
		// Flush before overflow, but never below the minimum: a tiny chunk
		// is worse than a slightly oversized one.
		if currentTokens > 0 && currentTokens+u.tokens > c.cfg.MaxTokens && currentTokens >= c.cfg.MinTokens {
			flush()
		}
		current = append(current, u)
		currentTokens += u.tokens

		if currentTokens >= c.cfg.TargetTokens {
			flush()
		}
	}
	flush()

	return passages, nil
}

// buildUnits turns pages into an ordered stream of paragraph units, breaking
// overlong paragraphs down to sentences and, failing that, token windows.
func (c *Chunker) buildUnits(pages []extract.Page) []unit {
	var units []unit
	for _, page := range pages {
		for _, para := range splitParagraphs(page.Text) {
			tokens := CountTokens(para)
			if tokens <= c.cfg.MaxTokens {
				units = append(units, unit{text: para, page: page.Number, tokens: tokens})
				continue
			}
			for _, piece := range c.splitOversized(para) {
				units = append(units, unit{text: piece, page: page.Number, tokens: CountTokens(piece)})
			}
		}
	}
	return units
}

// splitOversized breaks a paragraph that exceeds the window, preferring
// sentence boundaries and falling back to hard token windows.
func (c *Chunker) splitOversized(para string) []string {
	sentences := sentenceRegex.FindAllString(para, -1)
	if len(sentences) < 2 {
		return splitTokenWindow(para, c.cfg.TargetTokens)
	}

	var pieces []string
	var b strings.Builder
	count := 0
	for _, sent := range sentences {
		sent = strings.TrimSpace(sent)
		tokens := CountTokens(sent)
		if count > 0 && count+tokens > c.cfg.TargetTokens {
			pieces = append(pieces, b.String())
			b.Reset()
			count = 0
		}
		if tokens > c.cfg.MaxTokens {
			// A single run-on "sentence" beyond the ceiling.
			if b.Len() > 0 {
				pieces = append(pieces, b.String())
				b.Reset()
				count = 0
			}
			pieces = append(pieces, splitTokenWindow(sent, c.cfg.TargetTokens)...)
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(sent)
		count += tokens
	}
	if b.Len() > 0 {
		pieces = append(pieces, b.String())
	}
	return pieces
}

// splitTokenWindow slices text into fixed token windows with no overlap.
func splitTokenWindow(text string, window int) []string {
	indices := tokenRegex.FindAllStringIndex(text, -1)
	if len(indices) == 0 {
		return nil
	}

	var pieces []string
	for i := 0; i < len(indices); i += window {
		end := min(i+window, len(indices))
		pieces = append(pieces, text[indices[i][0]:indices[end-1][1]])
		if end == len(indices) {
			break
		}
	}
	return pieces
}

// assemble joins accumulated units into a single classified passage.
func (c *Chunker) assemble(units []unit, index int32) Passage {
	parts := make([]string, len(units))
	tokens := 0
	for i, u := range units {
		parts[i] = u.text
		tokens += u.tokens
	}
	content := strings.Join(parts, "\n\n")

	category, technique := c.classifier.Classify(content)

	return Passage{
		Content:    content,
		ChunkIndex: index,
		PageStart:  units[0].page,
		PageEnd:    units[len(units)-1].page,
		Category:   category,
		Technique:  technique,
		TokenCount: tokens,
	}
}

// splitParagraphs splits page text on blank lines and drops empties.
func splitParagraphs(text string) []string {
	var paras []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

// CountTokens approximates the token count of text. It intentionally
// over-counts slightly relative to model tokenizers, which keeps chunks
// safely inside embedding input limits.
func CountTokens(text string) int {
	return len(tokenRegex.FindAllStringIndex(text, -1))
}

// Validate checks a passage sequence for the structural invariants the
// store relies on: contiguous indices from 0 and non-inverted page ranges
// that never move backwards.
func Validate(passages []Passage) error {
	var lastPage int32
	for i, p := range passages {
		if p.ChunkIndex != int32(i) {
			return fmt.Errorf("passage %d has chunk index %d", i, p.ChunkIndex)
		}
		if p.PageStart > p.PageEnd {
			return fmt.Errorf("passage %d has inverted page range %d-%d", i, p.PageStart, p.PageEnd)
		}
		if p.PageStart < lastPage {
			return fmt.Errorf("passage %d moves backwards to page %d after page %d", i, p.PageStart, lastPage)
		}
		lastPage = p.PageEnd
	}
	return nil
}
