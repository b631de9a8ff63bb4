// Package textedit converts between byte offsets and editor positions and expresses the
// difference between two versions of a document as a minimal list of edits.
package textedit

import (
	"bytes"
	"fmt"
	"sort"
	"unicode/utf8"

	"go.lsp.dev/protocol"
)

// Mapper converts between byte offsets and 0-based line / UTF-16 column positions of one text.
type Mapper struct {
	content   []byte
	lineStart []int
}

// NewMapper indexes the line starts of content.
func NewMapper(content []byte) *Mapper {
	starts := make([]int, 1, bytes.Count(content, []byte("\n"))+1)
	for i, b := range content {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Mapper{content: content, lineStart: starts}
}

// LineCount returns the number of lines, counting a trailing partial line.
func (m *Mapper) LineCount() int {
	return len(m.lineStart)
}

// Line returns the text of a 0-based line without its line terminator.
func (m *Mapper) Line(line int) (string, error) {
	if line < 0 || line >= len(m.lineStart) {
		return "", fmt.Errorf("line %d out of range 0-%d", line, len(m.lineStart)-1)
	}
	end := len(m.content)
	if line+1 < len(m.lineStart) {
		end = m.lineStart[line+1] - 1
	}
	return string(bytes.TrimSuffix(m.content[m.lineStart[line]:end], []byte("\r"))), nil
}

// Offset converts a position to a byte offset.
func (m *Mapper) Offset(p protocol.Position) (int, error) {
	line := int(p.Line)
	if line >= len(m.lineStart) {
		if line == len(m.lineStart) && p.Character == 0 {
			return len(m.content), nil
		}
		return 0, fmt.Errorf("line %d out of range 0-%d", line, len(m.lineStart)-1)
	}

	offset := m.lineStart[line]
	rest := m.content[offset:]
	for col := uint32(0); col < p.Character; col++ {
		r, size := utf8.DecodeRune(rest)
		switch {
		case size == 0:
			return 0, fmt.Errorf("column %d is beyond end of file", p.Character)
		case r == '\n':
			return 0, fmt.Errorf("column %d is beyond end of line %d", p.Character, line)
		case r == utf8.RuneError && size == 1:
			return 0, fmt.Errorf("invalid UTF-8 on line %d", line)
		}
		if r >= 0x10000 {
			col++
		}
		rest = rest[size:]
		offset += size
	}
	return offset, nil
}

// Position converts a byte offset to a position.
func (m *Mapper) Position(offset int) (protocol.Position, error) {
	if offset < 0 || offset > len(m.content) {
		return protocol.Position{}, fmt.Errorf("invalid offset %d (want 0-%d)", offset, len(m.content))
	}
	line := sort.Search(len(m.lineStart), func(i int) bool { return offset < m.lineStart[i] }) - 1
	return protocol.Position{
		Line:      uint32(line),
		Character: uint32(utf16Len(m.content[m.lineStart[line]:offset])),
	}, nil
}

func utf16Len(s []byte) int {
	n := 0
	for len(s) > 0 {
		r, size := utf8.DecodeRune(s)
		n++
		if r >= 0x10000 {
			n++
		}
		s = s[size:]
	}
	return n
}
