// Package configcmder provides the config command for managing persistent
// handoff configuration stored in the .handoff/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent handoff configuration.

Configuration is stored as config.toml in the .handoff/ directory and
provides default values for command flags. CLI flags always take precedence
over config file values.

Keys use dotted notation matching the TOML section structure:
  storage.dir, storage.queue_dir,
  lock.timeout_ms, lock.retry_delay_ms,
  ttl.checkpoint, ttl.handoff,
  exclude.patterns,
  serve.drain_interval_sec, serve.cleanup_interval_sec

Use subcommands to get, set, or list configuration values:
  handoff config set <key> <value>    Set a configuration value
  handoff config get <key>            Get a configuration value
  handoff config list                 List all configuration values

Examples:
  handoff config set ttl.checkpoint 48h
  handoff config set lock.timeout_ms 10000
  handoff config get ttl.handoff
  handoff config list`

const configShortDesc string = "Manage persistent handoff configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
