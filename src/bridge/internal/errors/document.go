package errors

import (
	"fmt"

	"go.lsp.dev/uri"
)

// DocumentNotFoundError indicates that a document is not open in the session.
type DocumentNotFoundError struct {
	URI uri.URI
}

// Error is an implementation of the error interface.
func (n *DocumentNotFoundError) Error() string {
	return fmt.Sprintf("document %q not found", n.URI)
}

// DocumentOutdatedError indicates that an update carries an older version than the one already tracked.
type DocumentOutdatedError struct {
	URI     uri.URI
	Current int32
	Update  int32
}

// Error is an implementation of the error interface.
func (n *DocumentOutdatedError) Error() string {
	return fmt.Sprintf("document %q version is outdated.  Current version: %v, Outdated version: %v", n.URI, n.Current, n.Update)
}

// DocumentSizeLimitError indicates that a document is too large to be tracked.
type DocumentSizeLimitError struct {
	Size int64
}

// Error is an implementation of the error interface.
func (n *DocumentSizeLimitError) Error() string {
	return fmt.Sprintf("document size limit exceeded: %d bytes", n.Size)
}
