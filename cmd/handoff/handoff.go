// Package handoffcmder
package handoffcmder

import (
	cleanupcmder "github.com/papercomputeco/handoff/cmd/handoff/cleanup"
	configcmder "github.com/papercomputeco/handoff/cmd/handoff/config"
	listcmder "github.com/papercomputeco/handoff/cmd/handoff/list"
	queuecmder "github.com/papercomputeco/handoff/cmd/handoff/queue"
	savecmder "github.com/papercomputeco/handoff/cmd/handoff/save"
	servecmder "github.com/papercomputeco/handoff/cmd/handoff/serve"
	showcmder "github.com/papercomputeco/handoff/cmd/handoff/show"
	versioncmder "github.com/papercomputeco/handoff/cmd/version"
	"github.com/spf13/cobra"
)

const handoffLongDesc string = `Handoff is a crash-tolerant checkpoint store for in-progress work.

Writer processes record edited files, todo state, plan text and user
decisions into a rolling per-project checkpoint; explicit handoffs cut
immutable snapshots for deliberate session-to-session handoff.

Run the long-lived drain service using:
  handoff serve        Drain the fallback queue and expire old documents`

const handoffShortDesc string = "Handoff - Session checkpoint store"

func NewHandoffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "handoff",
		Short: handoffShortDesc,
		Long:  handoffLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().Bool("json", false, "Emit structured JSON logs")
	cmd.PersistentFlags().String("dir", "", "Override the .handoff storage directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(savecmder.NewSaveCmd())
	cmd.AddCommand(showcmder.NewShowCmd())
	cmd.AddCommand(listcmder.NewListCmd())
	cmd.AddCommand(queuecmder.NewQueueCmd())
	cmd.AddCommand(cleanupcmder.NewCleanupCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
