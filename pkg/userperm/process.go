package userperm

import (
	"math"
	"sync/atomic"
)

// NoID is the reserved "no ID" value (uint32(-1)). It never names a real user
// or group; constructors that accept raw IDs treat it as unset.
const NoID = math.MaxUint32

// ProcessIdentity supplies the ids an unset Credential field falls back to.
// Implementations must be safe for concurrent use.
type ProcessIdentity interface {
	EffectiveUID() uint32
	EffectiveGID() uint32
}

// OSProcess reports the effective ids of the running process.
type OSProcess struct{}

// EffectiveUID returns the effective user ID of the process.
func (OSProcess) EffectiveUID() uint32 { return effectiveUID() }

// EffectiveGID returns the effective group ID of the process.
func (OSProcess) EffectiveGID() uint32 { return effectiveGID() }

// StaticProcess is a ProcessIdentity with fixed ids.
type StaticProcess struct {
	UID uint32
	GID uint32
}

// EffectiveUID implements ProcessIdentity.
func (p StaticProcess) EffectiveUID() uint32 { return p.UID }

// EffectiveGID implements ProcessIdentity.
func (p StaticProcess) EffectiveGID() uint32 { return p.GID }

type providerBox struct {
	p ProcessIdentity
}

var defaultProvider atomic.Pointer[providerBox]

func init() {
	defaultProvider.Store(&providerBox{p: OSProcess{}})
}

// DefaultProcessIdentity returns the provider used by credentials that were
// not given one explicitly.
func DefaultProcessIdentity() ProcessIdentity {
	return defaultProvider.Load().p
}

// SetDefaultProcessIdentity replaces the package-wide provider and returns the
// previous one. A nil provider restores OSProcess.
func SetDefaultProcessIdentity(p ProcessIdentity) ProcessIdentity {
	if p == nil {
		p = OSProcess{}
	}
	return defaultProvider.Swap(&providerBox{p: p}).p
}
