package askcmder

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/xiaomiproject/aikefu/pkg/cliui"
	"github.com/xiaomiproject/aikefu/pkg/client"
	"github.com/xiaomiproject/aikefu/pkg/history"
	"github.com/xiaomiproject/aikefu/pkg/utils"
)

const historyLongDesc string = `Browse and delete your conversations on the aikefu server.

Without arguments, lists your conversations newest first, each shown by
its opening question.

Examples:
  aikefu history
  aikefu history show 1f0c3e2a-...
  aikefu history delete 1f0c3e2a-...`

const historyShortDesc string = "Browse your conversations"

func NewHistoryCmd() *cobra.Command {
	conn := &connection{}

	withClient := func(cmd *cobra.Command, fn func(context.Context, *client.Client) error) error {
		c, err := conn.client()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return fn(ctx, c)
	}

	cmd := &cobra.Command{
		Use:   "history",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return conn.resolve(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, func(ctx context.Context, c *client.Client) error {
				records, err := c.Conversations(ctx)
				if err != nil {
					return err
				}
				printConversations(os.Stdout, records)
				return nil
			})
		},
	}

	conn.addPersistentFlags(cmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Show every question and answer of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *client.Client) error {
				records, err := c.Conversation(ctx, args[0])
				if err != nil {
					return err
				}
				printConversation(os.Stdout, records)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <conversation-id>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *client.Client) error {
				if err := c.DeleteConversation(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("\n  %s Deleted %s\n\n", cliui.SuccessMark, cliui.NameStyle.Render(args[0]))
				return nil
			})
		},
	})

	return cmd
}

func printConversations(w io.Writer, records []*history.Record) {
	fmt.Fprintln(w)
	if len(records) == 0 {
		fmt.Fprintf(w, "  %s No conversations yet.\n\n", cliui.DimStyle.Render("●"))
		return
	}

	fmt.Fprintf(w, "  %s\n\n", cliui.HeaderStyle.Render("Conversations"))
	for _, r := range records {
		fmt.Fprintf(w, "  %s  %s  %s\n",
			cliui.NameStyle.Render(r.ConversationID),
			cliui.DimStyle.Render(r.CreatedAt.Local().Format("2006-01-02 15:04")),
			utils.Truncate(r.Question, 60),
		)
	}
	fmt.Fprintln(w)
}

func printConversation(w io.Writer, records []*history.Record) {
	fmt.Fprintln(w)
	for _, r := range records {
		fmt.Fprintf(w, "  %s %s\n", cliui.DimStyle.Render(r.CreatedAt.Local().Format("2006-01-02 15:04:05")), userPrompt+r.Question)
		fmt.Fprintf(w, "  %s\n\n", assistantPrompt+r.Answer)
	}
}
