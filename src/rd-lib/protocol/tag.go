package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the message kind carried by a tag.
type Kind int

const (
	// KindRequest is a call that expects a response.
	KindRequest Kind = iota
	// KindSignal is a fire-and-forget event.
	KindSignal
	// KindProperty is a replicated property update.
	KindProperty
)

// Reserved methods handled by the connection itself.
const (
	MethodHandshake = "$/handshake"
	MethodHeartbeat = "$/heartbeat"
	MethodCancel    = "$/cancel"
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindSignal:
		return "signal"
	case KindProperty:
		return "property"
	default:
		return "unknown"
	}
}

func parseKind(s string) (Kind, bool) {
	switch s {
	case "request":
		return KindRequest, true
	case "signal":
		return KindSignal, true
	case "property":
		return KindProperty, true
	default:
		return 0, false
	}
}

// Tag addresses a member of a model node on the wire.
type Tag struct {
	Kind   Kind
	Node   int32
	Member int32
}

// RequestTag returns the tag of a request member.
func RequestTag(node, member int32) Tag { return Tag{Kind: KindRequest, Node: node, Member: member} }

// SignalTag returns the tag of a signal member.
func SignalTag(node, member int32) Tag { return Tag{Kind: KindSignal, Node: node, Member: member} }

// PropertyTag returns the tag of a property member.
func PropertyTag(node, member int32) Tag { return Tag{Kind: KindProperty, Node: node, Member: member} }

// Method encodes the tag as a JSON-RPC method name, e.g. "request:1/2".
func (t Tag) Method() string {
	return t.Kind.String() + ":" + strconv.FormatInt(int64(t.Node), 10) + "/" + strconv.FormatInt(int64(t.Member), 10)
}

// String implements fmt.Stringer.
func (t Tag) String() string {
	return t.Method()
}

// ParseTag decodes a JSON-RPC method name produced by Tag.Method.
func ParseTag(method string) (Tag, error) {
	kind, rest, ok := strings.Cut(method, ":")
	if !ok {
		return Tag{}, fmt.Errorf("method %q is not a tag", method)
	}
	k, ok := parseKind(kind)
	if !ok {
		return Tag{}, fmt.Errorf("method %q has unknown kind %q", method, kind)
	}
	node, member, ok := strings.Cut(rest, "/")
	if !ok {
		return Tag{}, fmt.Errorf("method %q is missing a member id", method)
	}
	n, err := strconv.ParseInt(node, 10, 32)
	if err != nil {
		return Tag{}, fmt.Errorf("method %q: node id: %w", method, err)
	}
	m, err := strconv.ParseInt(member, 10, 32)
	if err != nil {
		return Tag{}, fmt.Errorf("method %q: member id: %w", method, err)
	}
	return Tag{Kind: k, Node: int32(n), Member: int32(m)}, nil
}
