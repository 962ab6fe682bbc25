package userperm

import (
	"iter"
	"log/slog"
	"slices"
	"strconv"
	"strings"
)

// ============================================================================
// Optional IDs
// ============================================================================

// optionalID is a uid or gid that may be absent.
type optionalID struct {
	v   uint32
	set bool
}

func someID(v uint32) optionalID {
	if v == NoID {
		return optionalID{}
	}
	return optionalID{v: v, set: true}
}

func (o optionalID) or(fallback func() uint32) uint32 {
	if o.set {
		return o.v
	}
	return fallback()
}

func (o optionalID) raw() uint32 {
	if o.set {
		return o.v
	}
	return NoID
}

func (o optionalID) String() string {
	if !o.set {
		return "-"
	}
	return strconv.FormatUint(uint64(o.v), 10)
}

// ============================================================================
// Credential
// ============================================================================

// Credential is the identity used for a single permission evaluation.
//
// It carries the acting user and primary group, the supplementary groups,
// and the identity treated as owner of newly created inodes. Any id may be
// unset; unset ids are resolved lazily from the process identity when they
// are queried, never at construction.
//
// The zero value is the default credential: every id unset (resolved from the
// process identity) and no supplementary groups.
//
// Queries may be called concurrently on a Credential that is not being
// mutated. Mutators are not synchronized.
type Credential struct {
	uid      optionalID
	gid      optionalID
	ownerUID optionalID
	ownerGID optionalID

	// ownerUIDOverride and ownerGIDOverride record that the owner ids came
	// from an explicit option rather than being seeded from uid/gid.
	ownerUIDOverride bool
	ownerGIDOverride bool

	// groups is never written in place; mutators install a new slice, so
	// values that share it stay independent.
	groups []uint32

	// provider resolves unset ids; nil means DefaultProcessIdentity.
	provider ProcessIdentity
}

// ============================================================================
// Construction
// ============================================================================

// Option configures a Credential built by New.
type Option func(*Credential)

// WithUID sets the acting user ID. NoID leaves it unset.
func WithUID(uid uint32) Option {
	return func(c *Credential) { c.uid = someID(uid) }
}

// WithGID sets the primary group ID. NoID leaves it unset.
func WithGID(gid uint32) Option {
	return func(c *Credential) { c.gid = someID(gid) }
}

// WithGroups sets the supplementary groups. The slice is copied.
func WithGroups(gids ...uint32) Option {
	return func(c *Credential) { c.groups = cloneGroups(gids) }
}

// WithInodeOwner overrides the identity treated as file owner.
func WithInodeOwner(uid, gid uint32) Option {
	return func(c *Credential) {
		c.ownerUID = someID(uid)
		c.ownerGID = someID(gid)
		c.ownerUIDOverride = c.ownerUID.set
		c.ownerGIDOverride = c.ownerGID.set
	}
}

// WithInodeOwnerUID overrides only the owner user ID.
func WithInodeOwnerUID(uid uint32) Option {
	return func(c *Credential) {
		c.ownerUID = someID(uid)
		c.ownerUIDOverride = c.ownerUID.set
	}
}

// WithInodeOwnerGID overrides only the owner group ID.
func WithInodeOwnerGID(gid uint32) Option {
	return func(c *Credential) {
		c.ownerGID = someID(gid)
		c.ownerGIDOverride = c.ownerGID.set
	}
}

// WithProcessIdentity sets the provider used to resolve unset ids.
func WithProcessIdentity(p ProcessIdentity) Option {
	return func(c *Credential) { c.provider = p }
}

// New builds a Credential from options.
//
// Owner ids that were not overridden are seeded from the raw user/group ids
// after all options are applied. If those are themselves unset, the owner
// stays unset and resolves through UID and GID.
func New(opts ...Option) Credential {
	var c Credential
	for _, opt := range opts {
		opt(&c)
	}
	if !c.ownerUID.set {
		c.ownerUID = c.uid
	}
	if !c.ownerGID.set {
		c.ownerGID = c.gid
	}
	return c
}

// ForIDs returns a credential with explicit ids and supplementary groups.
func ForIDs(uid, gid uint32, groups ...uint32) Credential {
	return New(WithUID(uid), WithGID(gid), WithGroups(groups...))
}

// FromRaw builds a Credential using the NoID convention for absent values,
// for callers that carry ids as plain integers.
func FromRaw(uid, gid uint32, groups []uint32, ownerUID, ownerGID uint32) Credential {
	return New(
		WithUID(uid),
		WithGID(gid),
		WithGroups(groups...),
		WithInodeOwnerUID(ownerUID),
		WithInodeOwnerGID(ownerGID),
	)
}

// ============================================================================
// Copying and Group Ownership
// ============================================================================

// Clone returns a deep copy of the credential.
//
// The copy gets freshly allocated group storage, so it stays valid and
// unchanged whatever happens to c afterwards. All ids, owner overrides and
// the process identity provider are carried over as-is; unset ids remain
// unset and keep resolving lazily.
func (c Credential) Clone() Credential {
	c.groups = cloneGroups(c.groups)
	return c
}

// CopyFrom replaces c with a deep copy of src. Copying from c itself is a
// no-op in effect.
func (c *Credential) CopyFrom(src *Credential) {
	if src == nil {
		*c = Credential{}
		return
	}
	*c = src.Clone()
}

// Take moves the credential out of c.
//
// The returned value holds every field of c including the group storage,
// without copying it. Afterwards c keeps its uid, gid and owner ids but has
// no supplementary groups, so the storage has exactly one holder.
func (c *Credential) Take() Credential {
	moved := *c
	c.groups = nil
	return moved
}

// ShallowCopy returns a copy that shares the group storage with c. Sharing is
// safe because neither value ever writes into the slice.
func (c Credential) ShallowCopy() Credential {
	return c
}

// SetGroups replaces the supplementary groups with gids.
//
// Ownership of gids passes to the credential: the slice is stored without
// copying and the caller must not modify it afterwards. Any previously held
// groups are dropped. Values that shared the old storage (through
// ShallowCopy) keep seeing the old list.
//
// An empty or nil gids clears the groups. Capacity is clipped to the length,
// so later AddGroups calls never write into the caller's backing array.
func (c *Credential) SetGroups(gids []uint32) {
	if len(gids) == 0 {
		c.groups = nil
		return
	}
	c.groups = gids[:len(gids):len(gids)]
}

// AddGroups appends supplementary groups.
func (c *Credential) AddGroups(gids ...uint32) {
	if len(gids) == 0 {
		return
	}
	next := make([]uint32, 0, len(c.groups)+len(gids))
	next = append(next, c.groups...)
	c.groups = append(next, gids...)
}

// ClearGroups drops all supplementary groups.
func (c *Credential) ClearGroups() {
	c.groups = nil
}

// ============================================================================
// Queries
// ============================================================================

func (c Credential) process() ProcessIdentity {
	if c.provider != nil {
		return c.provider
	}
	return DefaultProcessIdentity()
}

// UID returns the acting user ID, falling back to the process effective uid.
func (c Credential) UID() uint32 {
	return c.uid.or(c.process().EffectiveUID)
}

// GID returns the primary group ID, falling back to the process effective gid.
func (c Credential) GID() uint32 {
	return c.gid.or(c.process().EffectiveGID)
}

// InodeOwnerUID returns the user ID treated as file owner, falling back to UID.
func (c Credential) InodeOwnerUID() uint32 {
	return c.ownerUID.or(c.UID)
}

// InodeOwnerGID returns the group ID treated as file owner, falling back to GID.
func (c Credential) InodeOwnerGID() uint32 {
	return c.ownerGID.or(c.GID)
}

// HasUID reports whether the user ID was set explicitly.
func (c Credential) HasUID() bool { return c.uid.set }

// HasGID reports whether the group ID was set explicitly.
func (c Credential) HasGID() bool { return c.gid.set }

// RawUID returns the configured user ID or NoID.
func (c Credential) RawUID() uint32 { return c.uid.raw() }

// RawGID returns the configured group ID or NoID.
func (c Credential) RawGID() uint32 { return c.gid.raw() }

// RawInodeOwnerUID returns the configured owner user ID or NoID.
func (c Credential) RawInodeOwnerUID() uint32 { return c.ownerUID.raw() }

// RawInodeOwnerGID returns the configured owner group ID or NoID.
func (c Credential) RawInodeOwnerGID() uint32 { return c.ownerGID.raw() }

// InodeOwnerUIDOverridden reports whether the owner user ID was given
// explicitly, as opposed to seeded from the user ID. An override equal to
// the user ID still counts.
func (c Credential) InodeOwnerUIDOverridden() bool { return c.ownerUIDOverride }

// InodeOwnerGIDOverridden reports whether the owner group ID was given
// explicitly.
func (c Credential) InodeOwnerGIDOverridden() bool { return c.ownerGIDOverride }

// IsRoot reports whether the resolved user ID is 0.
func (c Credential) IsRoot() bool {
	return c.UID() == 0
}

// InGroup reports whether gid is the primary group or one of the
// supplementary groups.
func (c Credential) InGroup(gid uint32) bool {
	if gid == c.GID() {
		return true
	}
	return slices.Contains(c.groups, gid)
}

// Groups returns a copy of the supplementary group list.
func (c Credential) Groups() []uint32 {
	return cloneGroups(c.groups)
}

// NumGroups returns the number of supplementary groups.
func (c Credential) NumGroups() int {
	return len(c.groups)
}

// AllGroups iterates the supplementary groups in order without copying.
func (c Credential) AllGroups() iter.Seq[uint32] {
	groups := c.groups
	return func(yield func(uint32) bool) {
		for _, g := range groups {
			if !yield(g) {
				return
			}
		}
	}
}

// ============================================================================
// Comparison and Formatting
// ============================================================================

// Equal reports whether both credentials carry the same ids and groups.
//
// Only the effective values take part: the process identity provider and
// whether owner ids were overridden or seeded are not compared, so
// New(WithUID(1)) equals New(WithUID(1), WithInodeOwnerUID(1)).
func (c Credential) Equal(other Credential) bool {
	return c.uid == other.uid &&
		c.gid == other.gid &&
		c.ownerUID == other.ownerUID &&
		c.ownerGID == other.ownerGID &&
		slices.Equal(c.groups, other.groups)
}

// String formats the raw fields, printing "-" for unset ids. It never
// consults the process identity.
func (c Credential) String() string {
	var b strings.Builder
	b.WriteString("uid=")
	b.WriteString(c.uid.String())
	b.WriteString(" gid=")
	b.WriteString(c.gid.String())
	b.WriteString(" owner=")
	b.WriteString(c.ownerUID.String())
	b.WriteByte(':')
	b.WriteString(c.ownerGID.String())
	b.WriteString(" groups=")
	b.WriteString(formatGroups(c.groups))
	return b.String()
}

// LogValue implements slog.LogValuer.
func (c Credential) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("uid", c.uid.String()),
		slog.String("gid", c.gid.String()),
		slog.String("owner_uid", c.ownerUID.String()),
		slog.String("owner_gid", c.ownerGID.String()),
		slog.String("groups", formatGroups(c.groups)),
	)
}

func formatGroups(groups []uint32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, g := range groups {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(uint64(g), 10))
	}
	b.WriteByte(']')
	return b.String()
}

func cloneGroups(gids []uint32) []uint32 {
	if len(gids) == 0 {
		return nil
	}
	out := make([]uint32, len(gids))
	copy(out, gids)
	return out
}
