package userperm

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProcess = StaticProcess{UID: 501, GID: 20}

// ============================================================================
// Resolution Tests
// ============================================================================

func TestCredential_Default(t *testing.T) {
	t.Parallel()

	t.Run("zero value resolves from provider", func(t *testing.T) {
		t.Parallel()
		c := New(WithProcessIdentity(testProcess))

		assert.Equal(t, uint32(501), c.UID())
		assert.Equal(t, uint32(20), c.GID())
		assert.Equal(t, uint32(501), c.InodeOwnerUID())
		assert.Equal(t, uint32(20), c.InodeOwnerGID())
		assert.Equal(t, 0, c.NumGroups())
		assert.Empty(t, c.Groups())
		assert.False(t, c.HasUID())
		assert.False(t, c.HasGID())
	})

	t.Run("zero value uses OS process", func(t *testing.T) {
		t.Parallel()
		var c Credential

		assert.Equal(t, OSProcess{}.EffectiveUID(), c.UID())
		assert.Equal(t, OSProcess{}.EffectiveGID(), c.GID())
		assert.Equal(t, uint32(NoID), c.RawUID())
		assert.Equal(t, uint32(NoID), c.RawGID())
	})
}

func TestCredential_ExplicitIDs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		uid, gid uint32
	}{
		{0, 0},
		{1000, 1000},
		{65534, 65534},
		{NoID - 1, 7},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d:%d", tt.uid, tt.gid), func(t *testing.T) {
			t.Parallel()
			c := New(WithUID(tt.uid), WithGID(tt.gid), WithProcessIdentity(testProcess))

			assert.Equal(t, tt.uid, c.UID())
			assert.Equal(t, tt.gid, c.GID())
			assert.Equal(t, c.UID(), c.InodeOwnerUID())
			assert.Equal(t, c.GID(), c.InodeOwnerGID())
			assert.True(t, c.InGroup(c.GID()))
		})
	}
}

func TestCredential_NoIDIsUnset(t *testing.T) {
	t.Parallel()

	c := FromRaw(NoID, NoID, nil, NoID, NoID)
	c.provider = testProcess

	assert.False(t, c.HasUID())
	assert.Equal(t, uint32(501), c.UID())
	assert.Equal(t, uint32(20), c.GID())
	assert.Equal(t, uint32(501), c.InodeOwnerUID())
}

func TestCredential_InodeOwner(t *testing.T) {
	t.Parallel()

	t.Run("explicit override", func(t *testing.T) {
		t.Parallel()
		c := New(WithUID(0), WithGID(0), WithInodeOwner(1000, 1001))

		assert.Equal(t, uint32(0), c.UID())
		assert.Equal(t, uint32(1000), c.InodeOwnerUID())
		assert.Equal(t, uint32(1001), c.InodeOwnerGID())
	})

	t.Run("partial override", func(t *testing.T) {
		t.Parallel()
		c := New(WithUID(5), WithGID(6), WithInodeOwnerUID(1000))

		assert.Equal(t, uint32(1000), c.InodeOwnerUID())
		assert.Equal(t, uint32(6), c.InodeOwnerGID())
	})

	t.Run("seeded from raw ids", func(t *testing.T) {
		t.Parallel()
		c := ForIDs(42, 43)

		assert.Equal(t, uint32(42), c.RawInodeOwnerUID())
		assert.Equal(t, uint32(43), c.RawInodeOwnerGID())
	})

	t.Run("unset owner falls back to resolved ids", func(t *testing.T) {
		t.Parallel()
		c := New(WithGID(9), WithProcessIdentity(testProcess))

		assert.Equal(t, uint32(NoID), c.RawInodeOwnerUID())
		assert.Equal(t, uint32(501), c.InodeOwnerUID())
		assert.Equal(t, uint32(9), c.InodeOwnerGID())
	})

	t.Run("override applied before uid option", func(t *testing.T) {
		t.Parallel()
		c := New(WithInodeOwnerUID(7), WithUID(8))

		assert.Equal(t, uint32(8), c.UID())
		assert.Equal(t, uint32(7), c.InodeOwnerUID())
	})

	t.Run("override equal to uid is still an override", func(t *testing.T) {
		t.Parallel()
		c := New(WithUID(1000), WithGID(1000), WithInodeOwnerUID(1000))

		assert.True(t, c.InodeOwnerUIDOverridden())
		assert.False(t, c.InodeOwnerGIDOverridden())
		assert.True(t, c.Equal(ForIDs(1000, 1000)))

		clone := c.Clone()
		assert.True(t, clone.InodeOwnerUIDOverridden())
	})

	t.Run("seeded owner is not an override", func(t *testing.T) {
		t.Parallel()
		c := ForIDs(1000, 1000)

		assert.False(t, c.InodeOwnerUIDOverridden())
		assert.False(t, c.InodeOwnerGIDOverridden())
		assert.False(t, New(WithInodeOwnerUID(NoID)).InodeOwnerUIDOverridden())
	})
}

func TestCredential_IsRoot(t *testing.T) {
	t.Parallel()

	assert.True(t, ForIDs(0, 100).IsRoot())
	assert.False(t, ForIDs(1000, 0).IsRoot())
	assert.True(t, New(WithProcessIdentity(StaticProcess{})).IsRoot())
}

// ============================================================================
// Group Membership Tests
// ============================================================================

func TestCredential_InGroup(t *testing.T) {
	t.Parallel()

	t.Run("supplementary groups", func(t *testing.T) {
		t.Parallel()
		c := ForIDs(1, 2, 10, 20, 30)

		assert.True(t, c.InGroup(20))
		assert.False(t, c.InGroup(99))
	})

	t.Run("primary group", func(t *testing.T) {
		t.Parallel()
		c := ForIDs(1000, 1000, 4, 27, 100)

		assert.True(t, c.InGroup(1000))
		assert.True(t, c.InGroup(27))
		assert.False(t, c.InGroup(5))
		assert.Equal(t, uint32(1000), c.InodeOwnerUID())
	})

	t.Run("resolved primary group", func(t *testing.T) {
		t.Parallel()
		c := New(WithProcessIdentity(testProcess))

		assert.True(t, c.InGroup(20))
		assert.False(t, c.InGroup(21))
	})

	t.Run("duplicates tolerated", func(t *testing.T) {
		t.Parallel()
		c := ForIDs(1, 2, 5, 5, 3, 5)

		assert.True(t, c.InGroup(5))
		assert.True(t, c.InGroup(3))
		assert.Equal(t, 4, c.NumGroups())
	})
}

// ============================================================================
// Copy / Move Tests
// ============================================================================

func TestCredential_WithGroupsCopiesInput(t *testing.T) {
	t.Parallel()

	input := []uint32{10, 20}
	c := ForIDs(1, 1, input...)
	input[0] = 99

	assert.Equal(t, []uint32{10, 20}, c.Groups())
}

func TestCredential_GroupsViewIsReadOnly(t *testing.T) {
	t.Parallel()

	c := ForIDs(1, 1, 10, 20)
	view := c.Groups()
	view[0] = 99

	assert.Equal(t, []uint32{10, 20}, c.Groups())
	assert.Equal(t, []uint32{10, 20}, slices.Collect(c.AllGroups()))
}

func TestCredential_Clone(t *testing.T) {
	t.Parallel()

	t.Run("independent of source", func(t *testing.T) {
		t.Parallel()
		src := ForIDs(1000, 1000, 10, 20)
		cp := src.Clone()

		src.SetGroups([]uint32{1, 2, 3})
		src.AddGroups(4)

		assert.Equal(t, []uint32{10, 20}, cp.Groups())
		assert.Equal(t, []uint32{1, 2, 3, 4}, src.Groups())
		assert.True(t, cp.Equal(ForIDs(1000, 1000, 10, 20)))
	})

	t.Run("independent of transferred buffer", func(t *testing.T) {
		t.Parallel()
		var src Credential
		buf := []uint32{7, 8}
		src.SetGroups(buf)
		cp := src.Clone()

		buf[0] = 70

		assert.Equal(t, []uint32{70, 8}, src.Groups())
		assert.Equal(t, []uint32{7, 8}, cp.Groups())
	})

	t.Run("keeps scalar fields and provider", func(t *testing.T) {
		t.Parallel()
		src := New(WithInodeOwner(3, 4), WithProcessIdentity(testProcess))
		cp := src.Clone()

		assert.Equal(t, uint32(501), cp.UID())
		assert.Equal(t, uint32(3), cp.InodeOwnerUID())
		assert.Equal(t, uint32(4), cp.InodeOwnerGID())
	})

	t.Run("no groups stays nil", func(t *testing.T) {
		t.Parallel()
		cp := ForIDs(1, 1).Clone()

		assert.Nil(t, cp.Groups())
		assert.Equal(t, 0, cp.NumGroups())
	})
}

func TestCredential_CopyFrom(t *testing.T) {
	t.Parallel()

	t.Run("replaces existing groups", func(t *testing.T) {
		t.Parallel()
		dst := ForIDs(1, 1, 1, 2, 3, 4, 5)
		src := ForIDs(2, 2, 10)

		dst.CopyFrom(&src)

		assert.True(t, dst.Equal(src))
		assert.Equal(t, []uint32{10}, dst.Groups())
	})

	t.Run("self assignment", func(t *testing.T) {
		t.Parallel()
		c := ForIDs(1, 1, 10, 20)

		c.CopyFrom(&c)

		assert.Equal(t, []uint32{10, 20}, c.Groups())
		assert.Equal(t, uint32(1), c.UID())
	})

	t.Run("nil source resets", func(t *testing.T) {
		t.Parallel()
		c := ForIDs(1, 1, 10)

		c.CopyFrom(nil)

		assert.True(t, c.Equal(Credential{}))
	})

	t.Run("repeated copies stay independent", func(t *testing.T) {
		t.Parallel()
		a := ForIDs(1, 1, 10, 20)
		var b Credential
		b.CopyFrom(&a)
		b.CopyFrom(&a)
		a.ClearGroups()

		assert.Equal(t, []uint32{10, 20}, b.Groups())
		assert.Equal(t, 0, a.NumGroups())
	})
}

func TestCredential_Take(t *testing.T) {
	t.Parallel()

	a := ForIDs(1000, 100, 4, 27)
	b := a.Take()

	assert.Equal(t, 0, a.NumGroups())
	assert.Empty(t, a.Groups())
	assert.Equal(t, uint32(1000), a.UID())

	assert.Equal(t, []uint32{4, 27}, b.Groups())
	assert.Equal(t, uint32(1000), b.UID())
	assert.Equal(t, uint32(100), b.GID())

	// A second move from the emptied source carries no groups.
	c := a.Take()
	assert.Equal(t, 0, c.NumGroups())
	assert.Equal(t, []uint32{4, 27}, b.Groups())
}

func TestCredential_ShallowCopy(t *testing.T) {
	t.Parallel()

	src := New(WithUID(10), WithGID(11), WithGroups(1, 2), WithInodeOwner(12, 13))
	alias := src.ShallowCopy()

	require.True(t, alias.Equal(src))

	src.AddGroups(3)
	src.SetGroups([]uint32{9})

	assert.Equal(t, []uint32{1, 2}, alias.Groups())
	assert.Equal(t, uint32(12), alias.InodeOwnerUID())

	// The alias outlives the source.
	src = Credential{}
	assert.True(t, alias.InGroup(2))
}

func TestCredential_SetGroups(t *testing.T) {
	t.Parallel()

	t.Run("takes ownership without copying", func(t *testing.T) {
		t.Parallel()
		var c Credential
		buf := []uint32{5, 6, 7}
		c.SetGroups(buf)

		assert.Equal(t, 3, c.NumGroups())
		assert.True(t, c.InGroup(6))
	})

	t.Run("replaces previous storage", func(t *testing.T) {
		t.Parallel()
		c := ForIDs(1, 1, 10, 20, 30)
		c.SetGroups([]uint32{40})

		assert.Equal(t, []uint32{40}, c.Groups())
		assert.False(t, c.InGroup(10))
	})

	t.Run("append does not write into transferred buffer", func(t *testing.T) {
		t.Parallel()
		buf := make([]uint32, 2, 8)
		buf[0], buf[1] = 1, 2
		var c Credential
		c.SetGroups(buf)
		c.AddGroups(3)

		assert.Equal(t, []uint32{1, 2}, buf)
		assert.Equal(t, uint32(0), buf[:3][2])
		assert.Equal(t, []uint32{1, 2, 3}, c.Groups())
	})

	t.Run("empty clears", func(t *testing.T) {
		t.Parallel()
		c := ForIDs(1, 1, 10)
		c.SetGroups([]uint32{})

		assert.Nil(t, c.Groups())
	})
}

// ============================================================================
// Formatting Tests
// ============================================================================

func TestCredential_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "uid=- gid=- owner=-:- groups=[]", Credential{}.String())
	assert.Equal(t, "uid=1000 gid=1000 owner=1000:1000 groups=[4,27]", ForIDs(1000, 1000, 4, 27).String())
	assert.Equal(t, "uid=0 gid=- owner=1000:- groups=[]", New(WithUID(0), WithInodeOwnerUID(1000)).String())
}

func TestCredential_LogValue(t *testing.T) {
	t.Parallel()

	v := ForIDs(1, 2, 3).LogValue()
	require.Equal(t, slog.KindGroup, v.Kind())

	attrs := map[string]string{}
	for _, a := range v.Group() {
		attrs[a.Key] = a.Value.String()
	}
	assert.Equal(t, "1", attrs["uid"])
	assert.Equal(t, "2", attrs["gid"])
	assert.Equal(t, "1", attrs["owner_uid"])
	assert.Equal(t, "[3]", attrs["groups"])
}

// ============================================================================
// Concurrency Tests
// ============================================================================

func TestCredential_ConcurrentReaders(t *testing.T) {
	t.Parallel()

	c := New(WithGID(100), WithGroups(1, 2, 3), WithProcessIdentity(testProcess))
	alias := c.ShallowCopy()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, uint32(501), alias.UID())
				assert.True(t, alias.InGroup(2))
				assert.Equal(t, 3, len(alias.Groups()))
			}
		}()
	}
	wg.Wait()
}

func TestSetDefaultProcessIdentity(t *testing.T) {
	// Not parallel: swaps the package default.
	prev := SetDefaultProcessIdentity(StaticProcess{UID: 77, GID: 78})
	t.Cleanup(func() { SetDefaultProcessIdentity(prev) })

	var c Credential
	assert.Equal(t, uint32(77), c.UID())
	assert.Equal(t, uint32(78), c.InodeOwnerGID())

	explicit := New(WithProcessIdentity(testProcess))
	assert.Equal(t, uint32(501), explicit.UID())

	SetDefaultProcessIdentity(nil)
	assert.IsType(t, OSProcess{}, DefaultProcessIdentity())
}
