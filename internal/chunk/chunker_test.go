package chunk

import (
	"fmt"
	"strings"
	"testing"

	"github.com/logic25/beacon-sub000/internal/doctype"
	"github.com/logic25/beacon-sub000/internal/log"
)

// rulingText builds a document of fixed-length, mutually distinct sentences
// totalling the requested length, so chunk boundary behavior is predictable
// and overlap spans can be located unambiguously.
func rulingText(total, sentenceLen int) string {
	var b strings.Builder
	for i := 0; b.Len() < total; i++ {
		pad := strings.Repeat("a", sentenceLen-13)
		fmt.Fprintf(&b, "Clause %03d %s. ", i, pad)
	}
	return b.String()
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses whitespace", "a  b\t\tc\n\nd", "a b c d"},
		{"strips control characters", "a\x00b\x1fc", "abc"},
		{"strips delete and C1 controls", "abcd", "abcd"},
		{"trims ends", "  hello world  ", "hello world"},
		{"empty stays empty", "   \n\t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplit_Deterministic(t *testing.T) {
	c := New(log.NewNop())
	text := rulingText(6000, 120)
	meta := map[string]string{"title": "CCD1 245 W 14th"}

	first := c.Split(text, "knowledge/determinations/ccd1.md", doctype.Determination, meta)
	second := c.Split(text, "knowledge/determinations/ccd1.md", doctype.Determination, meta)

	if len(first) == 0 {
		t.Fatal("expected chunks, got none")
	}
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("chunk %d: IDs differ: %s vs %s", i, first[i].ID, second[i].ID)
		}
		if first[i].Text != second[i].Text {
			t.Errorf("chunk %d: texts differ", i)
		}
		if first[i].SequenceIndex != i {
			t.Errorf("chunk %d: sequence index %d", i, first[i].SequenceIndex)
		}
	}
}

func TestSplit_IDsChangeWithSource(t *testing.T) {
	c := New(log.NewNop())
	text := rulingText(3000, 100)

	a := c.Split(text, "a.md", doctype.Generic, nil)
	b := c.Split(text, "b.md", doctype.Generic, nil)

	if a[0].ID == b[0].ID {
		t.Error("chunk IDs should incorporate the source identifier")
	}
}

func TestSplit_Reconstruction(t *testing.T) {
	c := New(log.NewNop())
	text := rulingText(5200, 90)
	normalized := Normalize(text)

	chunks := c.Split(text, "doc.md", doctype.PolicyMemo, nil)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// Each chunk after the first opens with a suffix of its predecessor.
	// Dropping that shared span plus the joining space reproduces the
	// normalized source text.
	rebuilt := chunks[0].Text
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1].Text, chunks[i].Text
		overlap := sharedOverlap(prev, cur)
		rest := strings.TrimPrefix(cur, overlap)
		rest = strings.TrimPrefix(rest, " ")
		if overlap != "" {
			rebuilt += " " + rest
		} else {
			rebuilt += " " + cur
		}
	}

	if rebuilt != normalized {
		t.Errorf("reconstruction mismatch:\nlen(got)=%d len(want)=%d", len(rebuilt), len(normalized))
	}
}

// sharedOverlap returns the longest prefix of cur that is a suffix of prev.
func sharedOverlap(prev, cur string) string {
	maxLen := min(len(prev), len(cur))
	for n := maxLen; n > 0; n-- {
		if strings.HasSuffix(prev, cur[:n]) {
			return cur[:n]
		}
	}
	return ""
}

func TestSplit_RulingTwoChunks(t *testing.T) {
	// A 2600-character determination with settings (2500, 400) must yield
	// exactly two chunks, the second opening with a sentence-aligned
	// overlap drawn from the first chunk's tail.
	c := New(log.NewNop())
	text := rulingText(2600, 130)

	chunks := c.SplitWithParams(text, "det.md", doctype.Determination, nil,
		doctype.ChunkParams{Size: 2500, Overlap: 400})

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	overlap := sharedOverlap(chunks[0].Text, chunks[1].Text)
	if overlap == "" {
		t.Fatal("second chunk does not overlap the first chunk's tail")
	}
	if len(overlap) > 400 {
		t.Errorf("overlap %d chars exceeds configured 400", len(overlap))
	}
	// Sentence-aligned: the overlap begins at a sentence start, so the
	// character before it in chunk one is sentence-terminal punctuation.
	tail := chunks[0].Text
	idx := strings.LastIndex(tail, overlap)
	if idx > 0 {
		before := strings.TrimRight(tail[:idx], " ")
		last := before[len(before)-1]
		if last != '.' && last != '!' && last != '?' {
			t.Errorf("overlap does not start at a sentence boundary; preceding char %q", last)
		}
	}
}

func TestSplit_OversizedSentence(t *testing.T) {
	c := New(log.NewNop())
	long := strings.Repeat("x", 3000) + "."
	text := "Short one. " + long + " Short two."

	chunks := c.SplitWithParams(text, "big.md", doctype.Generic, nil,
		doctype.ChunkParams{Size: 1000, Overlap: 200})

	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	var found bool
	for _, ch := range chunks {
		if len(ch.Text) > 1000 && strings.Contains(ch.Text, strings.Repeat("x", 3000)) {
			found = true
		}
	}
	if !found {
		t.Error("oversized sentence should be emitted as its own oversized chunk")
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	c := New(log.NewNop())

	for _, in := range []string{"", "   ", "\x00\x01\x02"} {
		if got := c.Split(in, "empty.md", doctype.Generic, nil); len(got) != 0 {
			t.Errorf("Split(%q) = %d chunks, want 0", in, len(got))
		}
	}
}

func TestSplit_MetadataCopied(t *testing.T) {
	c := New(log.NewNop())
	base := map[string]string{"title": "Memo"}
	chunks := c.Split(rulingText(3000, 100), "memo.md", doctype.PolicyMemo, base)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	chunks[0].Metadata["title"] = "mutated"
	if chunks[1].Metadata["title"] != "Memo" {
		t.Error("chunks must not share a metadata map")
	}
	if base["title"] != "Memo" {
		t.Error("base metadata must not be mutated")
	}
}

func TestAssignPageNumbers(t *testing.T) {
	c := New(log.NewNop())
	page1 := rulingText(1300, 100)
	page2 := strings.ReplaceAll(rulingText(1300, 100), "a", "b")
	text := page1 + " " + page2

	chunks := c.SplitWithParams(text, "scan.pdf", doctype.Determination, nil,
		doctype.ChunkParams{Size: 1200, Overlap: 200})

	AssignPageNumbers(chunks, []Page{
		{Number: 1, Text: page1},
		{Number: 2, Text: page2},
	})

	if chunks[0].PageNumber != 1 {
		t.Errorf("first chunk page = %d, want 1", chunks[0].PageNumber)
	}
	last := chunks[len(chunks)-1]
	if last.PageNumber != 2 {
		t.Errorf("last chunk page = %d, want 2", last.PageNumber)
	}
}

func TestAssignPageNumbers_NoMatch(t *testing.T) {
	chunks := []Chunk{{Text: "never appears anywhere"}}
	AssignPageNumbers(chunks, []Page{{Number: 1, Text: "completely different"}})
	if chunks[0].PageNumber != 0 {
		t.Errorf("unmatched chunk page = %d, want 0", chunks[0].PageNumber)
	}
}
