// Package cleanupcmder removes expired documents and orphaned queue entries.
package cleanupcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/handoff/cmd/handoff/bootstrap"
	"github.com/papercomputeco/handoff/pkg/cliui"
	"github.com/papercomputeco/handoff/pkg/queue"
)

func NewCleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired documents and orphaned queue entries",
		Long: `Cleanup removes checkpoint and handoff documents whose TTL has
elapsed, and queue entries older than the orphan ceiling. Documents whose
TTL cannot be parsed are left in place.`,
		Args: cobra.NoArgs,
		RunE: runCleanup,
	}

	return cmd
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	rt, err := bootstrap.FromFlags(cmd.Flags())
	if err != nil {
		return err
	}

	removed, err := rt.Store.CleanupExpired()
	if err != nil {
		return fmt.Errorf("document cleanup: %w", err)
	}

	orphans, err := rt.Queue.CleanupOrphans(queue.OrphanMaxAge)
	if err != nil {
		return fmt.Errorf("queue orphan cleanup: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s removed %d expired document(s) and %d orphaned queue entries\n",
		cliui.SuccessMark, removed, orphans)

	return nil
}
