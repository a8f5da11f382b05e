package configcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xiaomiproject/aikefu/pkg/cliui"
)

func (c *configCommander) newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one configuration value",
		Long: `Change one configuration value in config.toml.

Examples:
  aikefu config set storage.driver postgres
  aikefu config set storage.postgres_dsn postgres://aikefu@localhost/aikefu
  aikefu config set server.stream_workers 40`,
		Args:              keyArgs(2),
		ValidArgsFunction: completeKeys,
		RunE: func(_ *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			cfger, err := c.configer()
			if err != nil {
				return err
			}
			if cfger.GetTarget() == "" {
				return fmt.Errorf("no .aikefu/ directory to write to (run \"aikefu config init\" first)")
			}
			if err := cfger.SetConfigValue(key, value); err != nil {
				return err
			}

			fmt.Fprintf(c.out, "  %s ", cliui.SuccessMark)
			c.printValue(key, value, len(key))
			return nil
		},
	}
}
