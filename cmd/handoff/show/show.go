// Package showcmder renders the rolling checkpoint (or a named handoff)
// for a project as markdown.
package showcmder

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/handoff/cmd/handoff/bootstrap"
	"github.com/papercomputeco/handoff/pkg/checkpoint"
	"github.com/papercomputeco/handoff/pkg/cliui"
)

func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [handoff-id]",
		Short: "Show the rolling checkpoint or a specific handoff",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runShow,
	}

	cmd.Flags().String("project", "", "Project root (defaults to the working directory)")

	return cmd
}

func runShow(cmd *cobra.Command, args []string) error {
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
	projectHash := checkpoint.ProjectHash(projectRoot)

	var doc *checkpoint.Checkpoint
	if len(args) == 1 {
		doc = rt.Store.ReadHandoff(args[0], projectHash)
	} else {
		doc = rt.Store.ReadRolling(projectHash)
	}

	if doc == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "no checkpoint found for %s\n", projectRoot)
		return nil
	}

	return cliui.Markdown(cmd.OutOrStdout(), renderMarkdown(doc))
}

// renderMarkdown formats a checkpoint document for human consumption.
func renderMarkdown(doc *checkpoint.Checkpoint) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Checkpoint %s\n\n", doc.ID)
	fmt.Fprintf(&b, "- **Project**: %s (`%s`, branch `%s`)\n", doc.Project.Root, doc.Project.Hash, doc.Project.Branch)
	fmt.Fprintf(&b, "- **State**: %s\n", doc.Context.State)
	fmt.Fprintf(&b, "- **Updated**: %s (ttl %s)\n", doc.Updated.Format("2006-01-02 15:04:05 MST"), doc.TTL)

	if doc.Context.Task != "" {
		fmt.Fprintf(&b, "\n## Task\n\n%s\n", doc.Context.Task)
	}
	if doc.Context.Summary != "" {
		fmt.Fprintf(&b, "\n## Summary\n\n%s\n", doc.Context.Summary)
	}

	if len(doc.Context.Files) > 0 {
		b.WriteString("\n## Files\n\n")
		for _, f := range doc.Context.Files {
			fmt.Fprintf(&b, "- `%s` (%s)\n", f.Path, f.Role)
		}
	}

	if len(doc.Todos) > 0 {
		b.WriteString("\n## Todos\n\n")
		for _, t := range doc.Todos {
			mark := " "
			if t.Status == checkpoint.TodoCompleted {
				mark = "x"
			}
			fmt.Fprintf(&b, "- [%s] %s\n", mark, t.Content)
		}
	}

	if len(doc.Context.NextSteps) > 0 {
		b.WriteString("\n## Next steps\n\n")
		for _, s := range doc.Context.NextSteps {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}

	if len(doc.Context.Blockers) > 0 {
		b.WriteString("\n## Blockers\n\n")
		for _, s := range doc.Context.Blockers {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}

	if len(doc.Context.UserDecisions) > 0 {
		b.WriteString("\n## User decisions\n\n")
		for _, d := range doc.Context.UserDecisions {
			fmt.Fprintf(&b, "- **Q**: %s **A**: %s\n", d.Question, d.Answer)
		}
	}

	return b.String()
}
