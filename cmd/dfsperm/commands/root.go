// Package commands implements the dfsperm CLI.
package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/userperm/internal/cli/output"
	"github.com/marmos91/userperm/internal/logger"
	"github.com/marmos91/userperm/pkg/config"
	"github.com/marmos91/userperm/pkg/userperm"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// state is shared by all subcommands of one root command.
type state struct {
	configPath string
	format     string
	logLevel   string
	asProcess  string

	cfg     *config.Config
	printer *output.Printer
}

// Execute runs the dfsperm root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	st := &state{}

	root := &cobra.Command{
		Use:   "dfsperm",
		Short: "Inspect the credential used for filesystem permission checks",
		Long: `dfsperm resolves the identity a storage client acts with: user id,
primary group, supplementary groups and the inode owner identity.

Ids that are not configured fall back to the effective ids of the running
process.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return st.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&st.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/userperm/config.yaml)")
	pf.StringVarP(&st.format, "output", "o", "table", "Output format (table|json|yaml)")
	pf.StringVar(&st.logLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR)")
	pf.StringVar(&st.asProcess, "as-process", "", "Resolve unset ids as if the process ran as uid:gid")
	pf.String("user", "", "User spec (name, uid, name:group or uid:gid)")
	pf.Uint32("uid", 0, "User id")
	pf.Uint32("gid", 0, "Primary group id")
	pf.String("groups", "", "Supplementary group ids, comma-separated")
	pf.Uint32("owner-uid", 0, "Inode owner user id")
	pf.Uint32("owner-gid", 0, "Inode owner group id")
	pf.String("squash", "", "Squash mode (none|root|all)")

	root.AddCommand(newShowCmd(st))
	root.AddCommand(newInGroupCmd(st))
	root.AddCommand(newOwnerCmd(st))
	root.AddCommand(newVersionCmd())
	root.CompletionOptions.DisableDefaultCmd = true

	return root
}

// load reads the configuration, initializes logging and applies flag
// overrides to the identity section.
func (st *state) load(cmd *cobra.Command) error {
	cfg, err := config.Load(st.configPath)
	if err != nil {
		return err
	}
	if st.logLevel != "" {
		cfg.Logging.Level = strings.ToUpper(st.logLevel)
	}
	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return err
	}

	if err := st.setConfig(cmd, cfg); err != nil {
		return err
	}

	format, err := output.ParseFormat(st.format)
	if err != nil {
		return err
	}

	st.printer = output.NewPrinter(cmd.OutOrStdout(), format)

	logger.Debug("Configuration loaded",
		logger.KeyConfigPath, st.configPath,
		logger.Operation(cmd.Name()))
	return nil
}

// setConfig applies flag overrides to cfg and makes it current once valid.
func (st *state) setConfig(cmd *cobra.Command, cfg *config.Config) error {
	if err := applyIdentityFlags(cmd, &cfg.Identity); err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid identity: %w", err)
	}
	st.cfg = cfg
	return nil
}

func applyIdentityFlags(cmd *cobra.Command, id *config.IdentityConfig) error {
	flags := cmd.Flags()

	if flags.Changed("user") {
		id.User, _ = flags.GetString("user")
		// A user spec on the command line replaces configured ids.
		id.UID, id.GID = nil, nil
	}

	for name, dst := range map[string]**uint32{
		"uid":       &id.UID,
		"gid":       &id.GID,
		"owner-uid": &id.InodeOwnerUID,
		"owner-gid": &id.InodeOwnerGID,
	} {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetUint32(name)
		if err != nil {
			return err
		}
		*dst = &v
	}
	if flags.Changed("uid") && !flags.Changed("user") {
		id.User = ""
	}

	if flags.Changed("squash") {
		squash, _ := flags.GetString("squash")
		id.Squash = strings.ToLower(squash)
	}

	if flags.Changed("groups") {
		raw, _ := flags.GetString("groups")
		groups, err := config.ParseIDList(raw)
		if err != nil {
			return fmt.Errorf("--groups: %w", err)
		}
		id.Groups = groups
	}
	return nil
}

// credential builds the credential for the current invocation.
func (st *state) credential() (userperm.Credential, error) {
	var extra []userperm.Option
	if st.asProcess != "" {
		proc, err := parseProcess(st.asProcess)
		if err != nil {
			return userperm.Credential{}, err
		}
		extra = append(extra, userperm.WithProcessIdentity(proc))
	}
	return st.cfg.Identity.Credential(extra...)
}

func parseProcess(s string) (userperm.StaticProcess, error) {
	uidStr, gidStr, ok := strings.Cut(s, ":")
	if !ok {
		return userperm.StaticProcess{}, fmt.Errorf("--as-process must be uid:gid, got %q", s)
	}
	uid, err := strconv.ParseUint(uidStr, 10, 32)
	if err != nil {
		return userperm.StaticProcess{}, fmt.Errorf("--as-process uid: %w", err)
	}
	gid, err := strconv.ParseUint(gidStr, 10, 32)
	if err != nil {
		return userperm.StaticProcess{}, fmt.Errorf("--as-process gid: %w", err)
	}
	return userperm.StaticProcess{UID: uint32(uid), GID: uint32(gid)}, nil
}
