package textedit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"go.lsp.dev/protocol"
)

// Edit replaces the text of Range with NewText.
type Edit struct {
	Range   protocol.Range
	NewText string
}

type span struct {
	start, end int
	text       string
}

// Compute returns the edits that turn before into after. Adjacent deletions and insertions are
// merged into a single replacement.
func Compute(before, after string) ([]Edit, error) {
	if before == after {
		return nil, nil
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(before, after, true))

	var spans []span
	offset := 0
	add := func(s span) {
		if n := len(spans); n > 0 && spans[n-1].end == s.start {
			spans[n-1].end = s.end
			spans[n-1].text += s.text
			return
		}
		spans = append(spans, s)
	}
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			offset += len(d.Text)
		case diffmatchpatch.DiffDelete:
			add(span{start: offset, end: offset + len(d.Text)})
			offset += len(d.Text)
		case diffmatchpatch.DiffInsert:
			add(span{start: offset, end: offset, text: d.Text})
		}
	}

	m := NewMapper([]byte(before))
	edits := make([]Edit, 0, len(spans))
	for _, s := range spans {
		start, err := m.Position(s.start)
		if err != nil {
			return nil, err
		}
		end, err := m.Position(s.end)
		if err != nil {
			return nil, err
		}
		edits = append(edits, Edit{Range: protocol.Range{Start: start, End: end}, NewText: s.text})
	}
	return edits, nil
}

// Apply applies non-overlapping edits to text.
func Apply(text string, edits []Edit) (string, error) {
	m := NewMapper([]byte(text))
	spans := make([]span, 0, len(edits))
	for _, e := range edits {
		start, err := m.Offset(e.Range.Start)
		if err != nil {
			return "", err
		}
		end, err := m.Offset(e.Range.End)
		if err != nil {
			return "", err
		}
		if end < start {
			return "", fmt.Errorf("edit ends before it starts: %v", e.Range)
		}
		spans = append(spans, span{start: start, end: end, text: e.NewText})
	}
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var b strings.Builder
	last := 0
	for _, s := range spans {
		if s.start < last {
			return "", fmt.Errorf("overlapping edits at offset %d", s.start)
		}
		b.WriteString(text[last:s.start])
		b.WriteString(s.text)
		last = s.end
	}
	b.WriteString(text[last:])
	return b.String(), nil
}
