package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/userperm/internal/cli/output"
	"github.com/marmos91/userperm/internal/logger"
)

type membership struct {
	GID    uint32 `json:"gid" yaml:"gid"`
	Member bool   `json:"member" yaml:"member"`
}

type membershipList []membership

// Headers implements output.TableRenderer.
func (m membershipList) Headers() []string {
	return []string{"GID", "Member"}
}

// Rows implements output.TableRenderer.
func (m membershipList) Rows() [][]string {
	rows := make([][]string, len(m))
	for i, e := range m {
		member := "no"
		if e.Member {
			member = "yes"
		}
		rows[i] = []string{formatID(e.GID), member}
	}
	return rows
}

var _ output.TableRenderer = membershipList(nil)

func newInGroupCmd(st *state) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "in-group <gid>...",
		Short: "Check membership in one or more groups",
		Long: `Report whether the credential belongs to each group, either as its
primary group or as a supplementary group.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gids := make([]uint32, len(args))
			for i, arg := range args {
				gid, err := strconv.ParseUint(arg, 10, 32)
				if err != nil {
					return fmt.Errorf("invalid gid %q: %w", arg, err)
				}
				gids[i] = uint32(gid)
			}

			cred, err := st.credential()
			if err != nil {
				return err
			}

			result := make(membershipList, len(gids))
			missing := 0
			for i, gid := range gids {
				member := cred.InGroup(gid)
				if !member {
					missing++
				}
				result[i] = membership{GID: gid, Member: member}
			}

			logger.Debug("Checked group membership",
				logger.KeyCredential, cred,
				"checked", len(gids),
				"missing", missing)

			if err := st.printer.Print(result); err != nil {
				return err
			}
			if strict && missing > 0 {
				return fmt.Errorf("credential is not a member of %d of %d groups", missing, len(gids))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with an error unless every group matches")
	return cmd
}
