package schema

import (
	"fmt"

	"go.uber.org/multierr"
)

// CheckCompatible reports every change from previous to next that is not an append-only evolution.
// Shipped node ids, member shapes and field types must keep their meaning; new fields must be optional
// so that stubs generated from either snapshot can still talk to each other.
func CheckCompatible(previous, next *Schema) error {
	var err error
	if previous.Name != next.Name {
		return fmt.Errorf("schema renamed from %q to %q", previous.Name, next.Name)
	}
	if next.Version < previous.Version {
		err = multierr.Append(err, fmt.Errorf("version went backwards from %d to %d", previous.Version, next.Version))
	}
	if next.Version == previous.Version && next.Fingerprint() != previous.Fingerprint() {
		err = multierr.Append(err, fmt.Errorf("schema changed without a version bump (version %d)", next.Version))
	}

	for _, old := range previous.Nodes() {
		cur, ok := next.Node(old.ID)
		if !ok {
			err = multierr.Append(err, fmt.Errorf("node %d (%s) was removed", old.ID, previous.Path(old.ID)))
			continue
		}
		if previous.Path(old.ID) != next.Path(cur.ID) {
			err = multierr.Append(err, fmt.Errorf("node %d moved from %s to %s", old.ID, previous.Path(old.ID), next.Path(cur.ID)))
		}
		err = multierr.Append(err, compareMembers(previous.Path(old.ID), old, cur))
	}

	for _, old := range previous.Types {
		cur, ok := next.Type(old.Name)
		if !ok {
			err = multierr.Append(err, fmt.Errorf("type %s was removed", old.Name))
			continue
		}
		err = multierr.Append(err, compareFields(old, *cur))
	}
	return err
}

type memberShape struct {
	kind MemberKind
	name string
	sig  string
}

func shapes(n *Node) map[int32]memberShape {
	out := make(map[int32]memberShape)
	for _, p := range n.Properties {
		out[p.ID] = memberShape{kind: MemberProperty, name: p.Name, sig: p.Type}
	}
	for _, r := range n.Requests {
		out[r.ID] = memberShape{kind: MemberRequest, name: r.Name, sig: r.Request + " -> " + r.Response}
	}
	for _, s := range n.Signals {
		out[s.ID] = memberShape{kind: MemberSignal, name: s.Name, sig: s.Type}
	}
	return out
}

func compareMembers(path string, old, cur *Node) error {
	var err error
	next := shapes(cur)
	for id, was := range shapes(old) {
		is, ok := next[id]
		switch {
		case !ok:
			err = multierr.Append(err, fmt.Errorf("%s: %s %d (%s) was removed", path, was.kind, id, was.name))
		case is.kind != was.kind:
			err = multierr.Append(err, fmt.Errorf("%s: member %d changed from %s to %s", path, id, was.kind, is.kind))
		case is.name != was.name:
			err = multierr.Append(err, fmt.Errorf("%s: member %d renamed from %s to %s", path, id, was.name, is.name))
		case is.sig != was.sig:
			err = multierr.Append(err, fmt.Errorf("%s.%s: type changed from %q to %q", path, was.name, was.sig, is.sig))
		}
	}
	return err
}

func compareFields(old, cur TypeDecl) error {
	var err error
	curFields := make(map[string]Field, len(cur.Fields))
	for _, f := range cur.Fields {
		curFields[f.Name] = f
	}
	oldFields := make(map[string]struct{}, len(old.Fields))
	for _, f := range old.Fields {
		oldFields[f.Name] = struct{}{}
		is, ok := curFields[f.Name]
		switch {
		case !ok:
			err = multierr.Append(err, fmt.Errorf("%s.%s was removed", old.Name, f.Name))
		case is.Type != f.Type:
			err = multierr.Append(err, fmt.Errorf("%s.%s: type changed from %q to %q", old.Name, f.Name, f.Type, is.Type))
		case is.Optional != f.Optional:
			err = multierr.Append(err, fmt.Errorf("%s.%s: optionality changed", old.Name, f.Name))
		}
	}
	for _, f := range cur.Fields {
		if _, existed := oldFields[f.Name]; !existed && !f.Optional {
			err = multierr.Append(err, fmt.Errorf("%s.%s: added fields must be optional", cur.Name, f.Name))
		}
	}
	return err
}
