// Package savecmder cuts an explicit handoff snapshot from the current
// project's rolling checkpoint.
package savecmder

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/handoff/cmd/handoff/bootstrap"
	"github.com/papercomputeco/handoff/pkg/cliui"
	"github.com/papercomputeco/handoff/pkg/store"
)

func NewSaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Create an explicit handoff snapshot",
		Long: `Save cuts an immutable snapshot from the project's rolling checkpoint.
The snapshot inherits the rolling context; --task, --summary and --next
override the inherited fields.`,
		RunE: runSave,
	}

	cmd.Flags().String("project", "", "Project root (defaults to the working directory)")
	cmd.Flags().String("task", "", "Override the task")
	cmd.Flags().String("summary", "", "Override the summary")
	cmd.Flags().StringSlice("next", nil, "Override the next steps")

	return cmd
}

func runSave(cmd *cobra.Command, _ []string) error {
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

	task, _ := cmd.Flags().GetString("task")
	summary, _ := cmd.Flags().GetString("summary")
	next, _ := cmd.Flags().GetStringSlice("next")

	h, err := rt.Store.CreateHandoff(projectRoot, store.Overrides{
		Task:      task,
		Summary:   summary,
		NextSteps: next,
	})
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s saving handoff: %v\n", cliui.FailMark, err)
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s handoff %s saved (expires in %s)\n", cliui.SuccessMark, h.ID, h.TTL)

	return nil
}
