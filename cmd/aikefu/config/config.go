// Package configcmder provides the config command, which edits the scalar
// keys of .aikefu/config.toml.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xiaomiproject/aikefu/pkg/cliui"
	"github.com/xiaomiproject/aikefu/pkg/config"
)

const configLongDesc string = `Manage persistent aikefu configuration.

config.toml in the .aikefu/ directory supplies defaults for command flags.
CLI flags and AIKEFU_* environment variables always take precedence.

Keys use dotted notation matching the TOML sections (run "aikefu config
list" for all of them). Model registrations live in the [[llm.providers]]
tables and are edited in the file directly.

Examples:
  aikefu config init --preset deepseek
  aikefu config set storage.driver sqlite
  aikefu config get llm.default_model
  aikefu config list`

// configCommander carries what every config subcommand needs.
type configCommander struct {
	configDir string
	out       io.Writer
}

func NewConfigCmd() *cobra.Command {
	cmder := &configCommander{}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage persistent aikefu configuration",
		Long:  configLongDesc,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.out = cmd.OutOrStdout()
		},
	}

	cmd.AddCommand(cmder.newInitCmd())
	cmd.AddCommand(cmder.newSetCmd())
	cmd.AddCommand(cmder.newGetCmd())
	cmd.AddCommand(cmder.newListCmd())

	return cmd
}

// configer opens the config file and prints which one is in use.
func (c *configCommander) configer() (*config.Configer, error) {
	cfger, err := config.NewConfiger(c.configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if target := cfger.GetTarget(); target == "" {
		fmt.Fprintf(c.out, "\n  %s\n\n", cliui.DimStyle.Render("No .aikefu/ directory found, showing defaults."))
	} else {
		fmt.Fprintf(c.out, "\n  %s %s\n\n", cliui.KeyStyle.Render("Config file:"), cliui.DimStyle.Render(target))
	}
	return cfger, nil
}

// keyArgs validates that the first of n arguments is a known key.
func keyArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return err
		}
		if !config.IsValidConfigKey(args[0]) {
			return fmt.Errorf("unknown config key %q (see \"aikefu config list\")", args[0])
		}
		return nil
	}
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func (c *configCommander) printValue(key, value string, width int) {
	shown := cliui.ValueStyle.Render(value)
	switch {
	case value == "":
		shown = cliui.DimStyle.Render("<not set>")
	case isSecretKey(key):
		shown = cliui.ValueStyle.Render(redact(value))
	}
	fmt.Fprintf(c.out, "  %s  %s\n", cliui.KeyStyle.Render(fmt.Sprintf("%-*s", width, key)), shown)
}

// isSecretKey reports keys whose values may embed a password.
func isSecretKey(key string) bool {
	return key == "storage.postgres_dsn"
}

// redact hides the password of a URL-style DSN.
func redact(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	userinfo, host, ok := strings.Cut(rest, "@")
	if !ok {
		return dsn
	}
	user, _, hasPass := strings.Cut(userinfo, ":")
	if !hasPass {
		return dsn
	}
	return scheme + "://" + user + ":****@" + host
}
