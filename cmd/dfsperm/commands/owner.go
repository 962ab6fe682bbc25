package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/userperm/internal/cli/output"
)

type ownerView struct {
	UID uint32 `json:"uid" yaml:"uid"`
	GID uint32 `json:"gid" yaml:"gid"`
}

func newOwnerCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "owner",
		Short: "Show the identity treated as inode owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := st.credential()
			if err != nil {
				return err
			}

			view := ownerView{UID: cred.InodeOwnerUID(), GID: cred.InodeOwnerGID()}
			if st.printer.Format() == output.FormatTable {
				return output.KeyValueTable(cmd.OutOrStdout(), [][2]string{
					{"Owner UID", formatID(view.UID)},
					{"Owner GID", formatID(view.GID)},
				})
			}
			return st.printer.Print(view)
		},
	}
}
