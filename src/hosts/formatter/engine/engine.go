// Package engine formats documents for the formatter host.
package engine

import (
	"context"
	"fmt"
	"go/format"
	"runtime"

	"github.com/uber/rd-bridge/src/rd-lib/model/formatter"
	"github.com/uber/rd-bridge/src/rd-lib/textedit"
	"go.uber.org/zap"
)

// Version identifies the formatting engine.
func Version() string {
	return "gofmt/" + runtime.Version()
}

// Format formats text and describes the change as edits against the input.
func Format(args formatter.FormatArgs) (formatter.FormatOutput, error) {
	out, err := format.Source([]byte(args.Text))
	if err != nil {
		return formatter.FormatOutput{}, fmt.Errorf("formatting %s: %w", args.FileName, err)
	}
	formatted := string(out)

	edits, err := textedit.Compute(args.Text, formatted)
	if err != nil {
		return formatter.FormatOutput{}, err
	}
	result := formatter.FormatOutput{
		Text:    formatted,
		Changed: formatted != args.Text,
		Edits:   make([]formatter.TextEdit, 0, len(edits)),
	}
	for _, e := range edits {
		result.Edits = append(result.Edits, formatter.TextEdit{
			StartLine:   int32(e.Range.Start.Line),
			StartColumn: int32(e.Range.Start.Character),
			EndLine:     int32(e.Range.End.Line),
			EndColumn:   int32(e.Range.End.Character),
			NewText:     e.NewText,
		})
	}
	return result, nil
}

// Bind implements the formatter model on server.
func Bind(server *formatter.Server, logger *zap.SugaredLogger) error {
	server.FormatDocument.Set(func(_ context.Context, args formatter.FormatArgs) (formatter.FormatOutput, error) {
		out, err := Format(args)
		if err != nil {
			logger.Infow("document not formatted", "file", args.FileName, zap.Error(err))
			return formatter.FormatOutput{}, err
		}
		logger.Debugw("document formatted", "file", args.FileName, "changed", out.Changed, "edits", len(out.Edits))
		return out, nil
	})
	return server.EngineVersion.Set(Version())
}
