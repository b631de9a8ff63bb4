package protocol

import (
	"errors"
	"fmt"

	"go.lsp.dev/jsonrpc2"
)

// Error codes used in responses produced by the connection itself.
const (
	CodeHandshakeRequired jsonrpc2.Code = -32002
	CodeHandshakeRejected jsonrpc2.Code = -32010
	CodeRequestCancelled  jsonrpc2.Code = -32800
)

// ChannelClosedError is returned for every operation on, or pending call of, a disconnected channel.
type ChannelClosedError struct {
	Cause error
}

// Error is an implementation of the error interface.
func (e *ChannelClosedError) Error() string {
	if e.Cause == nil {
		return "channel closed"
	}
	return fmt.Sprintf("channel closed: %v", e.Cause)
}

// Unwrap returns the reason the channel closed.
func (e *ChannelClosedError) Unwrap() error {
	return e.Cause
}

// ConnectError reports a failure to open a channel.
type ConnectError struct {
	Network string
	Address string
	Cause   error
}

// Error is an implementation of the error interface.
func (e *ConnectError) Error() string {
	return fmt.Sprintf("connecting to %s %q: %v", e.Network, e.Address, e.Cause)
}

// Unwrap returns the underlying dial error.
func (e *ConnectError) Unwrap() error {
	return e.Cause
}

// HandshakeError reports that the two sides of a channel could not agree on a protocol version.
type HandshakeError struct {
	Reason string
}

// Error is an implementation of the error interface.
func (e *HandshakeError) Error() string {
	return "handshake failed: " + e.Reason
}

// AlreadyResolvedError is returned when a PendingCall is resolved more than once.
type AlreadyResolvedError struct {
	ID jsonrpc2.ID
}

// Error is an implementation of the error interface.
func (e *AlreadyResolvedError) Error() string {
	return fmt.Sprintf("pending call %v already resolved", e.ID)
}

// IsChannelClosed reports whether err was caused by a disconnected channel.
func IsChannelClosed(err error) bool {
	var closed *ChannelClosedError
	return errors.As(err, &closed)
}

// IsHandshakeFailure reports whether err is a failed version negotiation.
func IsHandshakeFailure(err error) bool {
	var hs *HandshakeError
	return errors.As(err, &hs)
}
