// Package aikefucmder assembles the aikefu command tree.
package aikefucmder

import (
	"github.com/spf13/cobra"

	admincmder "github.com/xiaomiproject/aikefu/cmd/aikefu/admin"
	askcmder "github.com/xiaomiproject/aikefu/cmd/aikefu/ask"
	authcmder "github.com/xiaomiproject/aikefu/cmd/aikefu/auth"
	configcmder "github.com/xiaomiproject/aikefu/cmd/aikefu/config"
	servecmder "github.com/xiaomiproject/aikefu/cmd/aikefu/serve"
	versioncmder "github.com/xiaomiproject/aikefu/cmd/version"
)

const aikefuLongDesc string = `aikefu is a customer service question-answering backend.

Questions are answered from an answer cache, a curated knowledge base, or
a pool of language models, and every answer is kept in the asking user's
history.

Run the server:
  aikefu serve

Talk to a running server:
  aikefu ask "What are your opening hours?"
  aikefu history

Manage storage directly:
  aikefu knowledge import faq.toml
  aikefu user add alice`

const aikefuShortDesc string = "aikefu - customer service answers"

func NewAikefuCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "aikefu",
		Short:        aikefuShortDesc,
		Long:         aikefuLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .aikefu/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(askcmder.NewHistoryCmd())
	cmd.AddCommand(admincmder.NewKnowledgeCmd())
	cmd.AddCommand(admincmder.NewUserCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
