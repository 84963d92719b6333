package knowledge

import (
	"strings"
	"testing"

	"github.com/pgvector/pgvector-go"
)

func testVector() pgvector.Vector {
	return pgvector.NewVector(make([]float32, VectorDimension))
}

func TestBuildSearchQuery_NoFilters(t *testing.T) {
	sql, args := buildSearchQuery(testVector(), SearchFilter{})

	if !strings.Contains(sql, "c.embedding IS NOT NULL") {
		t.Errorf("query missing null-embedding guard:\n%s", sql)
	}
	if strings.Contains(sql, "sport_slug = $") || strings.Contains(sql, "technique = $") || strings.Contains(sql, "category = ANY") {
		t.Errorf("query has filter predicates with no filters active:\n%s", sql)
	}
	if !strings.Contains(sql, "ORDER BY c.embedding <=> $1 LIMIT $2") {
		t.Errorf("query missing ranked limit:\n%s", sql)
	}
	// vector + default limit
	if len(args) != 2 {
		t.Fatalf("args = %d, want 2", len(args))
	}
	if args[1] != 5 {
		t.Errorf("default limit = %v, want 5", args[1])
	}
}

func TestBuildSearchQuery_AllFilters(t *testing.T) {
	f := SearchFilter{
		Sport:      "padel",
		Categories: []Category{CategoryExercise, CategoryTheory},
		Technique:  "bandeja",
		Limit:      7,
	}
	sql, args := buildSearchQuery(testVector(), f)

	if !strings.Contains(sql, "(c.sport_slug = $2 OR c.sport_slug IS NULL)") {
		t.Errorf("sport filter missing exact-or-unset rule:\n%s", sql)
	}
	if !strings.Contains(sql, "c.category = ANY($3)") {
		t.Errorf("category filter must be explicit set match:\n%s", sql)
	}
	if strings.Contains(sql, "c.category IS NULL") {
		t.Errorf("category filter must not wildcard unset:\n%s", sql)
	}
	if !strings.Contains(sql, "(c.technique = $4 OR c.technique IS NULL)") {
		t.Errorf("technique filter missing exact-or-unset rule:\n%s", sql)
	}
	if !strings.Contains(sql, "LIMIT $5") {
		t.Errorf("limit must be a bound parameter:\n%s", sql)
	}

	if len(args) != 5 {
		t.Fatalf("args = %d, want 5", len(args))
	}
	if args[1] != "padel" || args[3] != "bandeja" || args[4] != 7 {
		t.Errorf("args = %v, want sport/technique/limit bound in order", args)
	}
	cats, ok := args[2].([]string)
	if !ok || len(cats) != 2 || cats[0] != "EXERCISE" || cats[1] != "THEORY" {
		t.Errorf("category arg = %v, want [EXERCISE THEORY]", args[2])
	}
}

func TestBuildSearchQuery_NeverInterpolatesValues(t *testing.T) {
	// A hostile filter value must never appear in the statement text.
	f := SearchFilter{
		Sport:     "tennis'; DROP TABLE chunks; --",
		Technique: "1 OR 1=1",
	}
	sql, _ := buildSearchQuery(testVector(), f)

	if strings.Contains(sql, "DROP TABLE") || strings.Contains(sql, "1=1") {
		t.Errorf("filter value leaked into statement text:\n%s", sql)
	}
}

func TestBuildSearchQuery_LimitClamping(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"zero uses default", 0, 5},
		{"negative uses default", -3, 5},
		{"in range kept", 12, 12},
		{"above cap clamped", 500, MaxSearchLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, args := buildSearchQuery(testVector(), SearchFilter{Limit: tt.limit})
			got := args[len(args)-1]
			if got != tt.want {
				t.Errorf("limit arg = %v, want %d", got, tt.want)
			}
		})
	}
}

func TestTruncateError(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLen int
		exact   bool
	}{
		{"short unchanged", "fetch failed", len("fetch failed"), true},
		{"at limit unchanged", strings.Repeat("x", MaxErrorMessageLen), MaxErrorMessageLen, true},
		{"over limit truncated", strings.Repeat("x", MaxErrorMessageLen*2), MaxErrorMessageLen, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateError(tt.input)
			if len([]rune(got)) != tt.wantLen {
				t.Errorf("len = %d, want %d", len([]rune(got)), tt.wantLen)
			}
			if !tt.exact && !strings.HasSuffix(got, "...") {
				t.Errorf("truncated message missing ellipsis: %q", got[len(got)-10:])
			}
		})
	}
}

func TestTruncateError_MultiByte(t *testing.T) {
	// Truncation must count runes, not bytes, or it can split a character.
	input := strings.Repeat("é", MaxErrorMessageLen+10)
	got := TruncateError(input)
	if len([]rune(got)) != MaxErrorMessageLen {
		t.Errorf("rune len = %d, want %d", len([]rune(got)), MaxErrorMessageLen)
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusProcessing, StatusCompleted, StatusFailed} {
		if !s.Valid() {
			t.Errorf("Status(%q).Valid() = false, want true", s)
		}
	}
	if Status("DONE").Valid() {
		t.Error(`Status("DONE").Valid() = true, want false`)
	}
}

func TestCategoryValid(t *testing.T) {
	for _, c := range AllCategories() {
		if !c.Valid() {
			t.Errorf("Category(%q).Valid() = false, want true", c)
		}
	}
	if Category("MISC").Valid() {
		t.Error(`Category("MISC").Valid() = true, want false`)
	}
}

func TestAllCategories_CanonicalOrder(t *testing.T) {
	got := AllCategories()
	want := []Category{CategoryTheory, CategoryExercise, CategoryTrainingPlan, CategoryGeneral}
	if len(got) != len(want) {
		t.Fatalf("AllCategories() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AllCategories()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRetrievedChunkPromotesChunkFields(t *testing.T) {
	// Consumers read chunk fields straight off the retrieval result, so the
	// inner Chunk must stay embedded rather than named.
	rc := RetrievedChunk{
		Chunk: Chunk{
			Content:   "keep the bandeja contact point high",
			Category:  CategoryTheory,
			PageStart: 12,
			PageEnd:   13,
		},
		Similarity:   0.91,
		DocumentName: "padel-fundamentals.pdf",
	}

	if rc.Content != rc.Chunk.Content {
		t.Errorf("promoted Content = %q, want %q", rc.Content, rc.Chunk.Content)
	}
	if rc.Category != CategoryTheory {
		t.Errorf("promoted Category = %q, want %q", rc.Category, CategoryTheory)
	}
	if rc.PageStart != 12 || rc.PageEnd != 13 {
		t.Errorf("promoted pages = %d-%d, want 12-13", rc.PageStart, rc.PageEnd)
	}
}

func TestNewStore_NilPool(t *testing.T) {
	_, err := NewStore(nil, nil)
	if err == nil {
		t.Fatal("NewStore(nil, nil) expected error, got nil")
	}
	if !strings.Contains(err.Error(), "pool is required") {
		t.Errorf("NewStore(nil pool) error = %q, want contains %q", err, "pool is required")
	}
}
