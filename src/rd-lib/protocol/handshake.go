package protocol

import (
	"fmt"

	"github.com/uber/rd-bridge/src/rd-lib/schema"
)

// Negotiate decides whether an owner and a consumer built from the given snapshots may talk.
//
// Identical fingerprints always pass. Different snapshots pass only when their versions differ and
// the supported ranges [CompatibleSince, Version] overlap. Retrying a failed negotiation cannot
// succeed without a schema change.
func Negotiate(owner, consumer schema.Info) error {
	switch {
	case owner.Name != consumer.Name:
		return &HandshakeError{Reason: fmt.Sprintf("model %q cannot serve %q", owner.Name, consumer.Name)}
	case owner.Fingerprint == consumer.Fingerprint:
		return nil
	case owner.Version == consumer.Version:
		return &HandshakeError{Reason: fmt.Sprintf(
			"%s version %d was generated from different snapshots (%.12s != %.12s)",
			owner.Name, owner.Version, owner.Fingerprint, consumer.Fingerprint,
		)}
	case owner.CompatibleSince <= consumer.Version && consumer.CompatibleSince <= owner.Version:
		return nil
	default:
		return &HandshakeError{Reason: fmt.Sprintf(
			"%s versions do not overlap: owner supports [%d, %d], consumer supports [%d, %d]",
			owner.Name, owner.CompatibleSince, owner.Version, consumer.CompatibleSince, consumer.Version,
		)}
	}
}
