// Package queuecmder inspects and manages the fallback update queue.
package queuecmder

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/handoff/cmd/handoff/bootstrap"
	"github.com/papercomputeco/handoff/pkg/cliui"
	"github.com/papercomputeco/handoff/pkg/queue"
)

const queueLongDesc string = `Inspect and manage the fallback update queue.

Writers append updates here when the checkpoint store is not directly
writable. The serve process replays them into the store; these subcommands
let you inspect, drain or discard what is pending:
  handoff queue list     Show pending queue entries
  handoff queue drain    Replay pending entries into the store now
  handoff queue clear    Discard all pending entries`

func NewQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the fallback update queue",
		Long:  queueLongDesc,
	}

	cmd.AddCommand(newQueueListCmd())
	cmd.AddCommand(newQueueDrainCmd())
	cmd.AddCommand(newQueueClearCmd())

	return cmd
}

func newQueueListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show pending queue entries",
		Args:  cobra.NoArgs,
		RunE:  runQueueList,
	}
}

func runQueueList(cmd *cobra.Command, _ []string) error {
	rt, err := bootstrap.FromFlags(cmd.Flags())
	if err != nil {
		return err
	}

	entries, _, err := rt.Queue.DrainList()
	if err != nil {
		return fmt.Errorf("reading queue: %w", err)
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "queue is empty")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tPROJECT\tQUEUED")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			e.ID,
			e.Type,
			e.ProjectRoot,
			e.Timestamp.Format("2006-01-02 15:04:05"),
		)
	}

	return w.Flush()
}

func newQueueDrainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drain",
		Short: "Replay pending entries into the store now",
		Args:  cobra.NoArgs,
		RunE:  runQueueDrain,
	}
}

func runQueueDrain(cmd *cobra.Command, _ []string) error {
	rt, err := bootstrap.FromFlags(cmd.Flags())
	if err != nil {
		return err
	}

	processor := queue.NewProcessor(rt.Queue, rt.Store, queue.WithProcessorLogger(rt.Logger))
	result := processor.Drain()

	mark := cliui.SuccessMark
	if result.Errors > 0 {
		mark = cliui.FailMark
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s drained %d entries, %d errors\n", mark, result.Processed, result.Errors)

	return nil
}

func newQueueClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Discard all pending entries",
		Args:  cobra.NoArgs,
		RunE:  runQueueClear,
	}
}

func runQueueClear(cmd *cobra.Command, _ []string) error {
	rt, err := bootstrap.FromFlags(cmd.Flags())
	if err != nil {
		return err
	}

	removed, err := rt.Queue.Clear()
	if err != nil {
		return fmt.Errorf("clearing queue: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s discarded %d pending entries\n", cliui.SuccessMark, removed)

	return nil
}
