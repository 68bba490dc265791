package retrieval

import (
	"fmt"
	"strings"
)

const correctionsBanner = "TEAM CORRECTIONS (these override any conflicting document information):"

// Citation is one entry in the source list surfaced to the end user.
type Citation struct {
	Source    string
	DocType   string
	Relevance string // rendered percentage, e.g. "92%"
	Score     float64
	Excerpt   string
	Page      int // 0 when unknown
}

// excerptLen bounds citation excerpts; downstream widgets truncate
// around this length anyway.
const excerptLen = 300

// confidenceLabel maps a similarity score onto the fixed bands the
// language model is prompted to weigh sources by.
func confidenceLabel(score float64) string {
	switch {
	case score >= 0.90:
		return "VERY HIGH"
	case score >= 0.80:
		return "HIGH"
	case score >= 0.70:
		return "MODERATE"
	default:
		return "LOW - use cautiously"
	}
}

// Format renders ranked items into the context text and citation list.
//
// Search results below minScore are dropped from the context; corrections
// are exempt and always render, under a banner section ahead of all
// documents. Citations apply the separate citationThreshold and are
// deduplicated by source file, first occurrence winning, so a result can
// inform the context without being cited.
func Format(items []Item, minScore, citationThreshold float64) (string, []Citation) {
	var correctionItems, resultItems []Item
	for _, it := range items {
		switch {
		case it.Correction != nil:
			correctionItems = append(correctionItems, it)
		case it.Result != nil && it.Score >= minScore:
			resultItems = append(resultItems, it)
		}
	}

	var sections []string
	if len(correctionItems) > 0 {
		sections = append(sections, formatCorrections(correctionItems))
	}
	if len(resultItems) > 0 {
		sections = append(sections, formatDocuments(resultItems))
	}

	context := strings.Join(sections, "\n\n---\n\n")
	return context, buildCitations(correctionItems, resultItems, citationThreshold)
}

func formatCorrections(items []Item) string {
	parts := []string{correctionsBanner}
	for i, it := range items {
		c := it.Correction
		parts = append(parts, fmt.Sprintf(
			"\n[Correction %d]\nIssue: %s\nCorrect answer: %s",
			i+1, c.WrongAnswer, c.CorrectAnswer))
		if c.Context != "" {
			parts = append(parts, "Context: "+c.Context)
		}
	}
	return strings.Join(parts, "\n")
}

func formatDocuments(items []Item) string {
	parts := make([]string, 0, len(items))
	for i, it := range items {
		r := it.Result
		sourceInfo := r.SourceFile
		if r.PageNumber > 0 {
			sourceInfo += fmt.Sprintf(", page %d", r.PageNumber)
		}
		dateStr := ""
		if issued := r.Metadata["date_issued"]; issued != "" {
			dateStr = fmt.Sprintf(" (issued %s)", issued)
		}
		parts = append(parts, fmt.Sprintf(
			"[Document %d: %s — %s%s | %s confidence (%.0f%% match)]\n%s\n",
			i+1, sourceInfo, r.DocType, dateStr, confidenceLabel(r.Score), r.Score*100, r.Text))
	}
	return strings.Join(parts, "\n---\n")
}

func buildCitations(correctionItems, resultItems []Item, citationThreshold float64) []Citation {
	var citations []Citation

	// All matched corrections collapse into one knowledge-base citation.
	if len(correctionItems) > 0 {
		citations = append(citations, Citation{
			Source:    "Team Knowledge Base",
			DocType:   "correction",
			Relevance: "100%",
			Score:     1.0,
			Excerpt:   truncate(correctionItems[0].Correction.CorrectAnswer, excerptLen),
		})
	}

	seen := make(map[string]struct{})
	for _, it := range resultItems {
		r := it.Result
		if it.Score < citationThreshold {
			continue
		}
		if _, ok := seen[r.SourceFile]; ok {
			continue
		}
		seen[r.SourceFile] = struct{}{}
		citations = append(citations, Citation{
			Source:    r.SourceFile,
			DocType:   r.DocType,
			Relevance: fmt.Sprintf("%.0f%%", it.Score*100),
			Score:     it.Score,
			Excerpt:   truncate(r.Text, excerptLen),
			Page:      r.PageNumber,
		})
	}
	return citations
}

// FormatCitations renders citations as the source block appended to a
// chat response. Returns "" when there is nothing to cite.
func FormatCitations(citations []Citation) string {
	if len(citations) == 0 {
		return ""
	}

	lines := []string{"Sources:"}
	for i, c := range citations {
		line := fmt.Sprintf("  [%d] %s", i+1, c.Source)
		if c.Page > 0 {
			line += fmt.Sprintf(" (p. %d)", c.Page)
		}
		line += " — " + titleCase(c.DocType)
		if c.Relevance != "" {
			line += fmt.Sprintf(" (%s match)", c.Relevance)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// BuildPrompt wraps a user question with retrieved context for the
// language model. An empty context returns the question unchanged so
// the model answers from general knowledge.
func BuildPrompt(query, context string) string {
	if context == "" {
		return query
	}
	return fmt.Sprintf(`Based on the following reference documents, answer the user's question.
If the documents don't contain relevant information, use your expert knowledge but note that you're not citing a specific source.

REFERENCE DOCUMENTS:
%s

USER QUESTION: %s

Provide a comprehensive answer. When information comes from the reference documents, indicate which document number it's from.`,
		context, query)
}

// titleCase turns a snake_case document type into a display label,
// e.g. "technical_bulletin" -> "Technical Bulletin".
func titleCase(docType string) string {
	words := strings.Split(docType, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
