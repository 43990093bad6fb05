package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	pendingCmd.AddCommand(pendingListCmd)
	pendingCmd.AddCommand(pendingSaveCmd)
	pendingCmd.AddCommand(pendingDiscardCmd)
	rootCmd.AddCommand(pendingCmd)
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Manage archives that need manual extraction",
	Long: `Archives that were verified but could not be extracted automatically are kept
until you save them somewhere or discard them.`,
}

var pendingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archives awaiting manual extraction",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := pendingStore().List()
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No pending archives.")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "NAME\tFILE\tSINCE")
		for _, p := range items {
			fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, p.Path, p.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var pendingSaveCmd = &cobra.Command{
	Use:   "save <name> <destination>",
	Short: "Move a pending archive to a file or directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dest, err := pendingStore().SaveAs(args[0], args[1])
		if err != nil {
			return fmt.Errorf("saving pending archive: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to %s\n", args[0], dest)
		return nil
	},
}

var pendingDiscardCmd = &cobra.Command{
	Use:   "discard <name>",
	Short: "Delete a pending archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := pendingStore().Discard(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Discarded %s\n", args[0])
		return nil
	},
}
