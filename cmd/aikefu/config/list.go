package configcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xiaomiproject/aikefu/pkg/cliui"
	"github.com/xiaomiproject/aikefu/pkg/config"
)

func (c *configCommander) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every configuration value by section",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfger, err := c.configer()
			if err != nil {
				return err
			}
			cfg, err := cfger.LoadConfig()
			if err != nil {
				return err
			}

			keys := config.ValidConfigKeys()
			width := 0
			for _, k := range keys {
				width = max(width, len(k))
			}

			section := ""
			for _, key := range keys {
				if s, _, _ := strings.Cut(key, "."); s != section {
					section = s
					fmt.Fprintf(c.out, "  %s\n", cliui.HeaderStyle.Render("["+section+"]"))
				}
				value, err := cfger.GetConfigValue(key)
				if err != nil {
					return err
				}
				c.printValue(key, value, width)
			}

			fmt.Fprintf(c.out, "\n  %s\n", cliui.HeaderStyle.Render("[[llm.providers]]"))
			for _, p := range cfg.LLM.Providers {
				fmt.Fprintf(c.out, "  %s  %s\n",
					cliui.NameStyle.Render(fmt.Sprintf("%-*s", width, p.Model)),
					cliui.DimStyle.Render(p.Type+" "+p.Endpoint),
				)
			}
			fmt.Fprintln(c.out)
			return nil
		},
	}
}
