package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/uber/rd-bridge/src/rd-lib/schema"
)

// Generate renders the stubs of one role of a schema with the given emitter.
func Generate(s *schema.Schema, role Role, e Emitter) ([]byte, error) {
	plan, err := NewPlan(s, role)
	if err != nil {
		return nil, err
	}
	return e.Emit(plan)
}

// Check compares checked-in stubs with freshly generated ones. It returns an empty string when
// they are identical, and a line diff of the drift otherwise.
func Check(existing, generated []byte) string {
	if bytes.Equal(existing, generated) {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(string(existing), string(generated))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var out strings.Builder
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffEqual:
			continue
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			fmt.Fprintf(&out, "%s%s", prefix, line)
			if !strings.HasSuffix(line, "\n") {
				out.WriteString("\n")
			}
		}
	}
	return out.String()
}
