package chunker

import (
	"strings"

	"github.com/courtsense/courtsense/internal/knowledge"
)

// Classifier assigns a content category and, when recognizable, a technique
// slug to a passage. Implementations must be safe for concurrent use.
type Classifier interface {
	Classify(content string) (knowledge.Category, string)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(content string) (knowledge.Category, string)

func (f ClassifierFunc) Classify(content string) (knowledge.Category, string) {
	return f(content)
}

// keywordClassifier scores lowercased content against keyword tables.
// Categories are checked from most to least specific so that a drill sheet
// inside a training plan still lands on the plan.
type keywordClassifier struct {
	categories []categoryRule
	techniques []techniqueRule
}

type categoryRule struct {
	category knowledge.Category
	keywords []string

	// threshold is the minimum number of distinct keyword hits required.
	threshold int
}

type techniqueRule struct {
	slug     string
	keywords []string
}

// DefaultClassifier returns the keyword-based classifier tuned for racket
// sport coaching material.
func DefaultClassifier() Classifier {
	return &keywordClassifier{
		categories: []categoryRule{
			{
				category:  knowledge.CategoryTrainingPlan,
				threshold: 2,
				keywords: []string{
					"training plan", "week 1", "week 2", "weekly schedule",
					"session plan", "periodization", "microcycle", "mesocycle",
					"day 1", "day 2", "warm-up", "cool-down", "rest day",
				},
			},
			{
				category:  knowledge.CategoryExercise,
				threshold: 2,
				keywords: []string{
					"drill", "exercise", "repetitions", "reps", "sets of",
					"feed", "basket", "cone", "ladder", "practice this",
					"partner drill", "wall practice", "shadow swing",
				},
			},
			{
				category:  knowledge.CategoryTheory,
				threshold: 2,
				keywords: []string{
					"biomechanics", "kinetic chain", "technique", "grip",
					"stance", "rotation", "contact point", "follow-through",
					"preparation phase", "swing path", "racket face", "spin",
					"trajectory", "footwork pattern",
				},
			},
		},
		techniques: []techniqueRule{
			// Longer, more specific phrases first so "backhand volley" wins
			// over both "backhand" and "volley".
			{slug: "backhand-volley", keywords: []string{"backhand volley"}},
			{slug: "forehand-volley", keywords: []string{"forehand volley"}},
			{slug: "two-handed-backhand", keywords: []string{"two-handed backhand", "two handed backhand"}},
			{slug: "one-handed-backhand", keywords: []string{"one-handed backhand", "one handed backhand"}},
			{slug: "kick-serve", keywords: []string{"kick serve", "topspin serve"}},
			{slug: "slice-serve", keywords: []string{"slice serve"}},
			{slug: "drop-shot", keywords: []string{"drop shot", "dropshot"}},
			{slug: "overhead-smash", keywords: []string{"overhead smash", "smash"}},
			{slug: "bandeja", keywords: []string{"bandeja"}},
			{slug: "vibora", keywords: []string{"vibora", "víbora"}},
			{slug: "lob", keywords: []string{"lob"}},
			{slug: "volley", keywords: []string{"volley"}},
			{slug: "backhand", keywords: []string{"backhand"}},
			{slug: "forehand", keywords: []string{"forehand"}},
			{slug: "serve", keywords: []string{"serve", "service motion"}},
			{slug: "return", keywords: []string{"return of serve", "service return"}},
			{slug: "footwork", keywords: []string{"footwork", "split step", "split-step"}},
		},
	}
}

func (c *keywordClassifier) Classify(content string) (knowledge.Category, string) {
	lower := strings.ToLower(content)

	category := knowledge.CategoryGeneral
	for _, rule := range c.categories {
		hits := 0
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits >= rule.threshold {
			category = rule.category
			break
		}
	}

	technique := ""
	for _, rule := range c.techniques {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				technique = rule.slug
				break
			}
		}
		if technique != "" {
			break
		}
	}

	return category, technique
}
