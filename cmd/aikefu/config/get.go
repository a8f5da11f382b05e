package configcmder

import (
	"github.com/spf13/cobra"
)

func (c *configCommander) newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one configuration value",
		Long: `Print one configuration value from config.toml, or its default.

Examples:
  aikefu config get storage.driver
  aikefu config get llm.default_model`,
		Args:              keyArgs(1),
		ValidArgsFunction: completeKeys,
		RunE: func(_ *cobra.Command, args []string) error {
			cfger, err := c.configer()
			if err != nil {
				return err
			}

			value, err := cfger.GetConfigValue(args[0])
			if err != nil {
				return err
			}
			c.printValue(args[0], value, len(args[0]))
			return nil
		},
	}
}
