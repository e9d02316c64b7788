// Package listcmder lists the saved handoff snapshots for a project.
package listcmder

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/handoff/cmd/handoff/bootstrap"
	"github.com/papercomputeco/handoff/pkg/cliui"
)

const taskColumnWidth = 48

func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved handoffs for a project",
		Long: `List shows every handoff snapshot stored for the project, newest
first, with its id, state, task and save time.`,
		Args: cobra.NoArgs,
		RunE: runList,
	}

	cmd.Flags().String("project", "", "Project root (defaults to the working directory)")

	return cmd
}

func runList(cmd *cobra.Command, _ []string) error {
	rt, err := bootstrap.FromFlags(cmd.Flags())
	if err != nil {
		return err
	}

	projectRoot, _ := cmd.Flags().GetString("project")
	if projectRoot == "" {
		projectRoot, err = os.Getwd()
		if err != nil {
			return err
		}
	}

	handoffs, err := rt.Store.ListHandoffs(projectRoot)
	if err != nil {
		return fmt.Errorf("listing handoffs: %w", err)
	}

	if len(handoffs) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no handoffs saved for %s\n", projectRoot)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATE\tTASK\tSAVED")
	for _, h := range handoffs {
		task := cliui.Truncate(h.Context.Task, taskColumnWidth)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			h.ID,
			h.Context.State,
			task,
			h.Updated.Format("2006-01-02 15:04"),
		)
	}

	return w.Flush()
}
