package commands

import (
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/userperm/internal/logger"
	"github.com/marmos91/userperm/pkg/config"
	"github.com/marmos91/userperm/pkg/userperm"
)

// Value origins reported by show.
const (
	sourceExplicit = "explicit"
	sourceProcess  = "process"
	sourceUID      = "uid"
	sourceGID      = "gid"
)

// credentialView is the printable form of a resolved credential.
type credentialView struct {
	UID           uint32   `json:"uid" yaml:"uid"`
	UIDSource     string   `json:"uid_source" yaml:"uid_source"`
	GID           uint32   `json:"gid" yaml:"gid"`
	GIDSource     string   `json:"gid_source" yaml:"gid_source"`
	InodeOwnerUID uint32   `json:"inode_owner_uid" yaml:"inode_owner_uid"`
	OwnerUIDFrom  string   `json:"inode_owner_uid_source" yaml:"inode_owner_uid_source"`
	InodeOwnerGID uint32   `json:"inode_owner_gid" yaml:"inode_owner_gid"`
	OwnerGIDFrom  string   `json:"inode_owner_gid_source" yaml:"inode_owner_gid_source"`
	Groups        []uint32 `json:"groups" yaml:"groups"`
}

func newCredentialView(c userperm.Credential) credentialView {
	v := credentialView{
		UID:           c.UID(),
		UIDSource:     sourceProcess,
		GID:           c.GID(),
		GIDSource:     sourceProcess,
		InodeOwnerUID: c.InodeOwnerUID(),
		OwnerUIDFrom:  sourceUID,
		InodeOwnerGID: c.InodeOwnerGID(),
		OwnerGIDFrom:  sourceGID,
		Groups:        c.Groups(),
	}
	if v.Groups == nil {
		v.Groups = []uint32{}
	}
	if c.HasUID() {
		v.UIDSource = sourceExplicit
	}
	if c.HasGID() {
		v.GIDSource = sourceExplicit
	}
	if c.InodeOwnerUIDOverridden() {
		v.OwnerUIDFrom = sourceExplicit
	}
	if c.InodeOwnerGIDOverridden() {
		v.OwnerGIDFrom = sourceExplicit
	}
	return v
}

// Headers implements output.TableRenderer.
func (v credentialView) Headers() []string {
	return []string{"Field", "Value", "Source"}
}

// Rows implements output.TableRenderer.
func (v credentialView) Rows() [][]string {
	return [][]string{
		{"uid", formatID(v.UID), v.UIDSource},
		{"gid", formatID(v.GID), v.GIDSource},
		{"inode owner uid", formatID(v.InodeOwnerUID), v.OwnerUIDFrom},
		{"inode owner gid", formatID(v.InodeOwnerGID), v.OwnerGIDFrom},
		{"groups", formatIDs(v.Groups), ""},
	}
}

func newShowCmd(st *state) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the resolved credential",
		Long: `Show the resolved credential and where each value came from.

Sources:
  explicit  set by configuration, a flag or a user lookup
  process   resolved from the effective ids of the process
  uid, gid  inode owner seeded from the user or group id

An inode owner given explicitly is reported as explicit even when it equals
the user or group id.

With --watch the configuration file is followed and the credential is
printed again after every change, until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := st.credential()
			if err != nil {
				return err
			}
			logger.Debug("Showing credential", logger.KeyCredential, cred)
			if err := st.printer.Print(newCredentialView(cred)); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			return st.watch(cmd)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-resolve and print the credential when the config file changes")
	return cmd
}

// watch follows the config file and prints the credential after each
// change. Invalid configurations are logged and the previous one is kept.
func (st *state) watch(cmd *cobra.Command) error {
	path := st.configPath
	if path == "" {
		path = config.GetDefaultConfigPath()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Watching configuration", logger.KeyConfigPath, path)

	return config.Watch(ctx, path, func(cfg *config.Config, err error) {
		if err == nil {
			err = st.setConfig(cmd, cfg)
		}
		if err != nil {
			logger.Warn("Ignoring invalid configuration",
				logger.KeyConfigPath, path,
				logger.Err(err))
			return
		}

		cred, err := st.credential()
		if err != nil {
			logger.Error("Failed to resolve credential",
				logger.KeyConfigPath, path,
				logger.Err(err))
			return
		}

		logger.Info("Credential re-resolved",
			logger.UID(cred.UID()),
			logger.GID(cred.GID()),
			logger.Groups(cred.Groups()))
		if err := st.printer.Print(newCredentialView(cred)); err != nil {
			logger.Error("Failed to print credential", logger.Err(err))
		}
	})
}

func formatID(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}

func formatIDs(ids []uint32) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = formatID(id)
	}
	return strings.Join(parts, ",")
}
