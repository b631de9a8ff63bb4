package entity

import "go.lsp.dev/uri"

// Document is an open document as seen by the analysis layer.
type Document struct {
	URI     uri.URI `json:"uri" zap:"uri"`
	Version int32   `json:"version" zap:"version"`
	Text    string  `json:"-" zap:"-"`
	// Committed is the version the compiler cache was last refreshed for.
	Committed int32 `json:"committed" zap:"committed"`
}

// Dirty reports whether the analysis data lags behind the document text.
func (d Document) Dirty() bool {
	return d.Committed != d.Version
}
