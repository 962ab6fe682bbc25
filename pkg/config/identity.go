package config

import (
	"fmt"

	"github.com/marmos91/userperm/internal/logger"
	"github.com/marmos91/userperm/pkg/userdb"
	"github.com/marmos91/userperm/pkg/userperm"
)

// Credential builds the configured credential.
//
// Resolution order: User (looked up in PasswdFile/GroupFile), then explicit
// UID/GID which override it, then Groups appended to any looked-up groups.
// Ids left unset resolve from the process identity at query time. Extra
// options are applied before squashing.
func (c *IdentityConfig) Credential(extra ...userperm.Option) (userperm.Credential, error) {
	uid, gid := uint32(userperm.NoID), uint32(userperm.NoID)
	var groups []uint32
	source := "config"

	if c.User != "" {
		source = "userdb"
		base, err := userdb.Lookup(c.User,
			userdb.WithPasswdPath(c.PasswdFile),
			userdb.WithGroupPath(c.GroupFile))
		if err != nil {
			return userperm.Credential{}, fmt.Errorf("identity.user: %w", err)
		}
		uid, gid = base.RawUID(), base.RawGID()
		groups = base.Groups()
	}

	if c.UID != nil {
		uid = *c.UID
	}
	if c.GID != nil {
		gid = *c.GID
	}
	groups = append(groups, c.Groups...)

	opts := []userperm.Option{
		userperm.WithUID(uid),
		userperm.WithGID(gid),
		userperm.WithGroups(groups...),
	}
	if c.InodeOwnerUID != nil {
		opts = append(opts, userperm.WithInodeOwnerUID(*c.InodeOwnerUID))
	}
	if c.InodeOwnerGID != nil {
		opts = append(opts, userperm.WithInodeOwnerGID(*c.InodeOwnerGID))
	}

	opts = append(opts, extra...)

	cred := c.Mapping().Apply(userperm.New(opts...))
	logger.Debug("Built credential from configuration",
		logger.KeyCredential, cred,
		logger.Source(source),
		"squash", c.Squash)
	return cred, nil
}

// Mapping returns the squash rules configured for the identity.
func (c *IdentityConfig) Mapping() userperm.Mapping {
	m := userperm.Mapping{
		AllSquash:  c.Squash == "all",
		RootSquash: c.Squash == "root",
		AnonUID:    userperm.AnonymousUID,
		AnonGID:    userperm.AnonymousGID,
	}
	if c.AnonUID != nil {
		m.AnonUID = *c.AnonUID
		m.UseZeroAnon = true
	}
	if c.AnonGID != nil {
		m.AnonGID = *c.AnonGID
		m.UseZeroAnon = true
	}
	return m
}
