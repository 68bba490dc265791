package retrieval

import (
	"strings"
	"testing"

	"github.com/logic25/beacon-sub000/internal/corrections"
	"github.com/logic25/beacon-sub000/internal/index"
)

func TestConfidenceLabel(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0.95, "VERY HIGH"},
		{0.90, "VERY HIGH"},
		{0.85, "HIGH"},
		{0.80, "HIGH"},
		{0.75, "MODERATE"},
		{0.70, "MODERATE"},
		{0.69, "LOW - use cautiously"},
		{0.0, "LOW - use cautiously"},
	}
	for _, tt := range tests {
		if got := confidenceLabel(tt.score); got != tt.want {
			t.Errorf("confidenceLabel(%.2f) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestFormat_BannerFirstAndSections(t *testing.T) {
	items := Rank(
		[]corrections.Entry{{
			WrongAnswer:   "rent increases are capped at 5%",
			CorrectAnswer: "the board sets the cap yearly",
			Context:       "recurring tenant question",
		}},
		[]index.SearchResult{
			{ChunkID: "a", Text: "ruling text", SourceFile: "ruling.md", DocType: "determination", Score: 0.92, PageNumber: 2,
				Metadata: map[string]string{"date_issued": "2019-03-01"}},
		},
	)

	context, _ := Format(items, 0.5, 0.65)

	if !strings.HasPrefix(context, correctionsBanner) {
		t.Fatalf("context must open with the corrections banner, got %q", context[:60])
	}
	for _, want := range []string{
		"Issue: rent increases are capped at 5%",
		"Correct answer: the board sets the cap yearly",
		"Context: recurring tenant question",
		"\n\n---\n\n",
		"ruling.md, page 2",
		"(issued 2019-03-01)",
		"VERY HIGH confidence (92% match)",
		"ruling text",
	} {
		if !strings.Contains(context, want) {
			t.Errorf("context missing %q\n%s", want, context)
		}
	}
}

func TestFormat_MinScoreDropsResultsNotCorrections(t *testing.T) {
	items := Rank(
		[]corrections.Entry{{WrongAnswer: "w", CorrectAnswer: "c"}},
		[]index.SearchResult{
			{ChunkID: "keep", Text: "kept text", SourceFile: "a.md", DocType: "rule", Score: 0.6},
			{ChunkID: "drop", Text: "dropped text", SourceFile: "b.md", DocType: "rule", Score: 0.3},
		},
	)

	context, _ := Format(items, 0.5, 0.65)

	if !strings.Contains(context, "kept text") {
		t.Error("result above minScore missing from context")
	}
	if strings.Contains(context, "dropped text") {
		t.Error("result below minScore leaked into context")
	}
	if !strings.Contains(context, correctionsBanner) {
		t.Error("correction must survive any minScore")
	}
}

func TestFormat_EmptyInput(t *testing.T) {
	context, citations := Format(nil, 0.5, 0.65)
	if context != "" {
		t.Errorf("empty items must yield empty context, got %q", context)
	}
	if len(citations) != 0 {
		t.Errorf("empty items must yield no citations, got %v", citations)
	}
}

func TestFormat_CitationThresholdAndDedupe(t *testing.T) {
	items := Rank(nil, []index.SearchResult{
		{ChunkID: "a1", Text: "first chunk", SourceFile: "guide.md", DocType: "procedure", Score: 0.9},
		{ChunkID: "a2", Text: "second chunk", SourceFile: "guide.md", DocType: "procedure", Score: 0.8},
		{ChunkID: "b", Text: "weak chunk", SourceFile: "notice.md", DocType: "service_notice", Score: 0.6},
	})

	_, citations := Format(items, 0.5, 0.65)

	if len(citations) != 1 {
		t.Fatalf("got %d citations, want 1: %+v", len(citations), citations)
	}
	c := citations[0]
	if c.Source != "guide.md" || c.Excerpt != "first chunk" {
		t.Errorf("dedupe must keep the first (best-ranked) chunk per source, got %+v", c)
	}
	if c.Relevance != "90%" {
		t.Errorf("Relevance = %q, want 90%%", c.Relevance)
	}
}

func TestFormat_CorrectionCitation(t *testing.T) {
	long := strings.Repeat("x", 400)
	items := Rank([]corrections.Entry{
		{WrongAnswer: "w1", CorrectAnswer: long},
		{WrongAnswer: "w2", CorrectAnswer: "other"},
	}, nil)

	_, citations := Format(items, 0.5, 0.65)

	// Multiple matched corrections collapse into one knowledge-base entry.
	if len(citations) != 1 {
		t.Fatalf("got %d citations, want 1", len(citations))
	}
	c := citations[0]
	if c.Source != "Team Knowledge Base" || c.DocType != "correction" || c.Relevance != "100%" {
		t.Errorf("unexpected correction citation: %+v", c)
	}
	if len(c.Excerpt) != excerptLen {
		t.Errorf("excerpt length = %d, want %d", len(c.Excerpt), excerptLen)
	}
}

func TestFormatCitations(t *testing.T) {
	citations := []Citation{
		{Source: "Team Knowledge Base", DocType: "correction", Relevance: "100%"},
		{Source: "bulletin.md", DocType: "technical_bulletin", Relevance: "87%", Page: 4},
	}

	got := FormatCitations(citations)

	for _, want := range []string{
		"Sources:",
		"[1] Team Knowledge Base",
		"Correction (100% match)",
		"[2] bulletin.md (p. 4)",
		"Technical Bulletin (87% match)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("citation block missing %q\n%s", want, got)
		}
	}
}

func TestFormatCitations_Empty(t *testing.T) {
	if got := FormatCitations(nil); got != "" {
		t.Errorf("FormatCitations(nil) = %q, want empty", got)
	}
}

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt("can I self-certify an ALT2", "[Document 1: ruling.md]\nSelf-certification rules.")

	for _, want := range []string{
		"REFERENCE DOCUMENTS:",
		"[Document 1: ruling.md]",
		"USER QUESTION: can I self-certify an ALT2",
		"indicate which document number",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q\n%s", want, got)
		}
	}
}

func TestBuildPrompt_EmptyContext(t *testing.T) {
	query := "what is an ALT2"
	if got := BuildPrompt(query, ""); got != query {
		t.Errorf("BuildPrompt(query, \"\") = %q, want query unchanged", got)
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct{ in, want string }{
		{"determination", "Determination"},
		{"technical_bulletin", "Technical Bulletin"},
		{"out_of_nyc_filing", "Out Of Nyc Filing"},
	}
	for _, tt := range tests {
		if got := titleCase(tt.in); got != tt.want {
			t.Errorf("titleCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
