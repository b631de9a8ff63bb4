package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"
)

// Info is the descriptor exchanged during the protocol handshake.
type Info struct {
	Name            string `json:"name"`
	Version         int32  `json:"version"`
	CompatibleSince int32  `json:"compatibleSince"`
	Fingerprint     string `json:"fingerprint"`
}

// Info returns the handshake descriptor of this snapshot.
func (s *Schema) Info() Info {
	return Info{
		Name:            s.Name,
		Version:         s.Version,
		CompatibleSince: s.CompatibleSince,
		Fingerprint:     s.Fingerprint(),
	}
}

// Fingerprint is the hex sha256 of the canonical binary encoding of the snapshot.
// Formatting, comments and declaration order in the source file do not affect it.
func (s *Schema) Fingerprint() string {
	sum := sha256.Sum256(s.canonical())
	return hex.EncodeToString(sum[:])
}

func (s *Schema) canonical() []byte {
	var b []byte
	b = appendString(b, 1, s.Name)
	b = appendVarint(b, 2, uint64(s.Version))
	b = appendVarint(b, 3, uint64(s.CompatibleSince))
	if s.Root != nil {
		b = appendMessage(b, 4, encodeNode(s.Root))
	}

	types := append([]TypeDecl(nil), s.Types...)
	sort.Slice(types, func(i, j int) bool { return types[i].Name < types[j].Name })
	for _, t := range types {
		b = appendMessage(b, 5, encodeType(t))
	}
	return b
}

func encodeNode(n *Node) []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(n.ID))
	b = appendString(b, 2, n.Name)

	props := append([]Property(nil), n.Properties...)
	sort.Slice(props, func(i, j int) bool { return props[i].ID < props[j].ID })
	for _, p := range props {
		var m []byte
		m = appendVarint(m, 1, uint64(p.ID))
		m = appendString(m, 2, p.Name)
		m = appendString(m, 3, p.Type)
		b = appendMessage(b, 3, m)
	}

	reqs := append([]Request(nil), n.Requests...)
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].ID < reqs[j].ID })
	for _, r := range reqs {
		var m []byte
		m = appendVarint(m, 1, uint64(r.ID))
		m = appendString(m, 2, r.Name)
		m = appendString(m, 3, r.Request)
		m = appendString(m, 4, r.Response)
		b = appendMessage(b, 4, m)
	}

	sigs := append([]Signal(nil), n.Signals...)
	sort.Slice(sigs, func(i, j int) bool { return sigs[i].ID < sigs[j].ID })
	for _, s := range sigs {
		var m []byte
		m = appendVarint(m, 1, uint64(s.ID))
		m = appendString(m, 2, s.Name)
		m = appendString(m, 3, s.Type)
		b = appendMessage(b, 5, m)
	}

	children := append([]*Node(nil), n.Children...)
	sort.Slice(children, func(i, j int) bool { return children[i].ID < children[j].ID })
	for _, c := range children {
		b = appendMessage(b, 6, encodeNode(c))
	}
	return b
}

func encodeType(t TypeDecl) []byte {
	var b []byte
	b = appendString(b, 1, t.Name)

	fields := append([]Field(nil), t.Fields...)
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	for _, f := range fields {
		var m []byte
		m = appendString(m, 1, f.Name)
		m = appendString(m, 2, f.Type)
		if f.Optional {
			m = appendVarint(m, 3, 1)
		}
		b = appendMessage(b, 2, m)
	}
	return b
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendMessage(b []byte, num protowire.Number, m []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m)
}
