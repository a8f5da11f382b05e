// Package authcmder provides the auth command, which stores API keys for the
// hosted model providers in credentials.toml.
package authcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xiaomiproject/aikefu/pkg/cliui"
	"github.com/xiaomiproject/aikefu/pkg/credentials"
)

const authLongDesc string = `Store API keys for hosted LLM providers.

Keys live in credentials.toml in the .aikefu/ directory. When "aikefu serve"
builds its model registry, a [[llm.providers]] entry with a credential takes
its key from the entry's api_key_env variable, then the provider's
conventional variable, then this file.

Examples:
  aikefu auth deepseek              Prompt for a DeepSeek API key
  echo $KEY | aikefu auth dashscope Read the key from stdin
  aikefu auth --list                Show stored keys, masked
  aikefu auth --remove openai       Forget the stored OpenAI key`

type authCommander struct {
	configDir string
	list      bool
	remove    string

	in  *os.File
	out io.Writer
}

func NewAuthCmd() *cobra.Command {
	return newAuthCmd(os.Stdin)
}

func newAuthCmd(in *os.File) *cobra.Command {
	cmder := &authCommander{in: in}

	cmd := &cobra.Command{
		Use:   "auth [provider]",
		Short: "Store API keys for LLM providers",
		Long:  authLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.out = cmd.OutOrStdout()

			mgr, err := credentials.NewManager(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading credentials: %w", err)
			}

			switch {
			case cmder.list:
				return cmder.runList(mgr)
			case cmder.remove != "":
				return cmder.runRemove(mgr, cmder.remove)
			case len(args) == 0:
				return fmt.Errorf("provider argument required (one of: %s)", strings.Join(credentials.Names(), ", "))
			default:
				return cmder.runStore(mgr, args[0])
			}
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return credentials.Names(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().BoolVar(&cmder.list, "list", false, "List stored keys")
	cmd.Flags().StringVar(&cmder.remove, "remove", "", "Remove the stored key for a provider")

	return cmd
}

func (c *authCommander) runStore(mgr *credentials.Manager, name string) error {
	p, ok := credentials.Lookup(name)
	if !ok {
		return fmt.Errorf("unsupported provider %q (one of: %s)", name, strings.Join(credentials.Names(), ", "))
	}

	key, err := cliui.ReadSecret(c.in, c.out, fmt.Sprintf("API key for %s: ", p.Title))
	if err != nil {
		return err
	}
	if err := mgr.Set(p.Name, key); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Stored %s key %s\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(p.Title),
		cliui.DimStyle.Render("($"+p.EnvVar+" takes precedence)"),
	)
	if p.Name == "openai" && strings.HasPrefix(strings.TrimSpace(key), "sk-proj-") {
		fmt.Fprintf(c.out, "  %s Project keys (sk-proj-...) only reach models the project can access.\n",
			cliui.WarnStyle.Render("!"))
	}
	fmt.Fprintln(c.out)
	return nil
}

func (c *authCommander) runList(mgr *credentials.Manager) error {
	entries, err := mgr.Entries()
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintf(c.out, "\n  %s No stored keys. Use 'aikefu auth <provider>' with one of: %s\n\n",
			cliui.DimStyle.Render("●"), strings.Join(credentials.Names(), ", "))
		return nil
	}

	fmt.Fprintf(c.out, "\n  %s %s\n\n", cliui.HeaderStyle.Render("Stored keys"), cliui.DimStyle.Render(mgr.Path()))
	for _, e := range entries {
		note := "updated " + e.UpdatedAt.Local().Format("2006-01-02 15:04")
		if e.EnvOverride {
			note += ", overridden by $" + e.Provider.EnvVar
		}
		fmt.Fprintf(c.out, "  %s  %-18s %s  %s\n",
			cliui.SuccessMark,
			cliui.NameStyle.Render(e.Provider.Name),
			cliui.ValueStyle.Render(e.Masked),
			cliui.DimStyle.Render(note),
		)
	}
	fmt.Fprintln(c.out)
	return nil
}

func (c *authCommander) runRemove(mgr *credentials.Manager, name string) error {
	removed, err := mgr.Remove(name)
	if err != nil {
		return err
	}
	if !removed {
		return errors.New("no stored key for " + strings.ToLower(strings.TrimSpace(name)))
	}

	fmt.Fprintf(c.out, "\n  %s Removed the %s key.\n\n", cliui.SuccessMark, cliui.NameStyle.Render(name))
	return nil
}
