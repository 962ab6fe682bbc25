// Package userdb builds credentials from the local user database.
//
// A user spec has the form accepted by container runtimes: "name", "uid",
// "name:group" or "uid:gid". When the group part is omitted the primary group
// comes from the passwd entry and the supplementary groups are every group
// that lists the user as a member.
package userdb

import (
	"errors"
	"fmt"
	"strings"

	"github.com/moby/sys/user"

	"github.com/marmos91/userperm/internal/logger"
	"github.com/marmos91/userperm/pkg/userperm"
)

const (
	DefaultPasswdPath = "/etc/passwd"
	DefaultGroupPath  = "/etc/group"
)

var (
	// ErrEmptySpec is returned when the user spec is blank.
	ErrEmptySpec = errors.New("empty user spec")

	// ErrLookupFailed is returned when the spec cannot be resolved.
	ErrLookupFailed = errors.New("user lookup failed")

	// ErrIDOutOfRange is returned for ids that do not fit a uint32 or collide
	// with the reserved NoID value.
	ErrIDOutOfRange = errors.New("id out of range")
)

type options struct {
	passwdPath string
	groupPath  string
}

// Option configures Lookup.
type Option func(*options)

// WithPasswdPath reads users from path instead of /etc/passwd.
func WithPasswdPath(path string) Option {
	return func(o *options) { o.passwdPath = path }
}

// WithGroupPath reads groups from path instead of /etc/group.
func WithGroupPath(path string) Option {
	return func(o *options) { o.groupPath = path }
}

// Lookup resolves spec against the passwd and group databases.
//
// A numeric user without a passwd entry is accepted; if no group is given
// its group id is left unset and resolves from the process identity.
func Lookup(spec string, opts ...Option) (userperm.Credential, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" || strings.HasPrefix(spec, ":") {
		return userperm.Credential{}, ErrEmptySpec
	}

	o := options{passwdPath: DefaultPasswdPath, groupPath: DefaultGroupPath}
	for _, opt := range opts {
		opt(&o)
	}

	defaults := &user.ExecUser{Uid: -1, Gid: -1}
	execUser, err := user.GetExecUserPath(spec, defaults, o.passwdPath, o.groupPath)
	if err != nil {
		return userperm.Credential{}, fmt.Errorf("%w: %q: %w", ErrLookupFailed, spec, err)
	}

	uid, err := toID(execUser.Uid)
	if err != nil {
		return userperm.Credential{}, fmt.Errorf("uid for %q: %w", spec, err)
	}

	credOpts := []userperm.Option{userperm.WithUID(uid)}
	if execUser.Gid >= 0 {
		gid, err := toID(execUser.Gid)
		if err != nil {
			return userperm.Credential{}, fmt.Errorf("gid for %q: %w", spec, err)
		}
		credOpts = append(credOpts, userperm.WithGID(gid))
	}

	groups := make([]uint32, 0, len(execUser.Sgids))
	for _, sgid := range execUser.Sgids {
		gid, err := toID(sgid)
		if err != nil {
			return userperm.Credential{}, fmt.Errorf("supplementary gid for %q: %w", spec, err)
		}
		groups = append(groups, gid)
	}

	cred := userperm.New(credOpts...)
	cred.SetGroups(groups)

	logger.Debug("Resolved user spec",
		logger.KeyUserSpec, spec,
		logger.KeyCredential, cred)

	return cred, nil
}

func toID(v int) (uint32, error) {
	if v < 0 || uint64(v) >= userperm.NoID {
		return 0, fmt.Errorf("%w: %d", ErrIDOutOfRange, v)
	}
	return uint32(v), nil
}
