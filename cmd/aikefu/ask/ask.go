// Package askcmder provides the ask and history commands, which talk to a
// running aikefu server.
package askcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/xiaomiproject/aikefu/pkg/cliui"
	"github.com/xiaomiproject/aikefu/pkg/client"
	"github.com/xiaomiproject/aikefu/pkg/dotdir"
	"github.com/xiaomiproject/aikefu/pkg/utils"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("aikefu> ")
)

type askCommander struct {
	connection

	model     string
	newConv   bool
	noStream  bool
	render    bool
	configDir string

	out io.Writer
}

const askLongDesc string = `Ask the aikefu server a question.

With a question argument, the answer is printed and the command exits.
Without one, an interactive session starts; /exit or Ctrl+D quits.

Answers stream as they are generated. The conversation is remembered in
.aikefu/session.json so later questions continue it; pass --new to start
a fresh conversation.

The password is read from $AIKEFU_PASSWORD, or prompted for.

Examples:
  aikefu ask "What are your opening hours?"
  aikefu ask --model qwen-plus --new
  aikefu ask --no-stream --render "How do I reset my password?"`

const askShortDesc string = "Ask the aikefu server a question"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{out: os.Stdout}

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.ArbitraryArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return cmder.resolve(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cmder.client()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return cmder.run(ctx, c, strings.TrimSpace(strings.Join(args, " ")))
		},
	}

	cmder.addFlags(cmd)
	cmd.Flags().StringVarP(&cmder.model, "model", "m", "", "Model to ask when no stored answer exists (default: the server's default)")
	cmd.Flags().BoolVar(&cmder.newConv, "new", false, "Start a new conversation")
	cmd.Flags().BoolVar(&cmder.noStream, "no-stream", false, "Wait for the whole answer instead of streaming it")
	cmd.Flags().BoolVar(&cmder.render, "render", false, "Render the answer as markdown (implies --no-stream)")

	return cmd
}

func (c *askCommander) run(ctx context.Context, api *client.Client, question string) error {
	ddm := dotdir.NewManager()

	var conversationID string
	if c.newConv {
		if err := ddm.ClearSession(c.configDir); err != nil {
			return err
		}
	} else {
		session, err := ddm.LoadSession(c.configDir)
		if err != nil {
			return err
		}
		if session != nil {
			conversationID = session.ConversationID
			if c.model == "" {
				c.model = session.Model
			}
		}
	}

	if question != "" {
		_, err := c.askOnce(ctx, api, ddm, question, conversationID)
		return err
	}

	fmt.Fprintln(c.out)
	if conversationID != "" {
		fmt.Fprintf(c.out, "  %s Continuing %s\n",
			cliui.SuccessMark,
			cliui.NameStyle.Render(utils.Truncate(conversationID, 8)),
		)
	} else {
		fmt.Fprintf(c.out, "  %s New conversation\n", cliui.DimStyle.Render("●"))
	}
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your question and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(c.out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		id, err := c.askOnce(ctx, api, ddm, input, conversationID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
			continue
		}
		conversationID = id
		fmt.Fprintln(c.out)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

// askOnce sends one question, prints the answer and saves the session.
func (c *askCommander) askOnce(ctx context.Context, api *client.Client, ddm *dotdir.Manager, question, conversationID string) (string, error) {
	req := client.AskRequest{
		Question:       question,
		ConversationID: conversationID,
		Model:          c.model,
	}

	var (
		id  string
		err error
	)
	if c.noStream || c.render {
		id, err = c.askWhole(ctx, api, req)
	} else {
		fmt.Fprint(c.out, assistantPrompt)
		id, err = api.Stream(ctx, req, func(fragment string) {
			fmt.Fprint(c.out, fragment)
		})
		fmt.Fprintln(c.out)
	}
	if err != nil {
		return "", err
	}

	if err := ddm.SaveSession(&dotdir.Session{
		ConversationID: id,
		Model:          c.model,
		UpdatedAt:      time.Now().UTC(),
	}, c.configDir); err != nil {
		return id, fmt.Errorf("saving session: %w", err)
	}
	return id, nil
}

func (c *askCommander) askWhole(ctx context.Context, api *client.Client, req client.AskRequest) (string, error) {
	answer, err := api.Ask(ctx, req)
	if err != nil {
		return "", err
	}

	text := answer.Text
	if c.render {
		// Unrenderable markdown is printed as-is.
		text, _ = cliui.RenderMarkdown(text)
	}

	fmt.Fprintf(c.out, "%s%s\n", assistantPrompt, text)
	fmt.Fprintf(c.out, "  %s\n", cliui.SourceBadge(answer.Source, answer.Model))
	return answer.ConversationID, nil
}
