package userperm

// Default anonymous identity (nobody/nogroup).
const (
	AnonymousUID uint32 = 65534
	AnonymousGID uint32 = 65534
)

// Mapping squashes credentials before they are used for permission checks.
//
//   - AllSquash maps every user to the anonymous identity (all_squash)
//   - RootSquash maps uid 0 to the anonymous identity (root_squash)
//
// The inode owner override is dropped for squashed credentials so a squashed
// caller cannot assume another user's ownership.
type Mapping struct {
	AllSquash  bool
	RootSquash bool

	// AnonUID and AnonGID default to AnonymousUID/AnonymousGID when zero
	// and UseZeroAnon is false. NoID always maps to the default, since an
	// unset squashed id would resolve from the process identity.
	AnonUID     uint32
	AnonGID     uint32
	UseZeroAnon bool
}

func (m Mapping) anonymous() (uint32, uint32) {
	uid, gid := m.AnonUID, m.AnonGID
	if uid == NoID || (uid == 0 && !m.UseZeroAnon) {
		uid = AnonymousUID
	}
	if gid == NoID || (gid == 0 && !m.UseZeroAnon) {
		gid = AnonymousGID
	}
	return uid, gid
}

// Apply returns the mapped credential. The result never shares group storage
// with c. Root squashing looks at the resolved uid, so an unset uid on a
// process running as root is squashed too.
func (m Mapping) Apply(c Credential) Credential {
	if m.AllSquash || (m.RootSquash && c.IsRoot()) {
		uid, gid := m.anonymous()
		return New(WithUID(uid), WithGID(gid), WithProcessIdentity(c.provider))
	}
	return c.Clone()
}
