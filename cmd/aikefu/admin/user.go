package admincmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xiaomiproject/aikefu/pkg/cliui"
	"github.com/xiaomiproject/aikefu/pkg/user"
)

const userLongDesc string = `Manage user accounts directly in storage.

Users can also register themselves through POST /api/auth/register on a
running server.

The password is read from stdin when piped, or prompted for.

Examples:
  aikefu user add alice --storage sqlite --sqlite ./aikefu.db
  echo "$PASSWORD" | aikefu user add alice`

const userShortDesc string = "Manage user accounts"

func NewUserCmd() *cobra.Command {
	opts := &storeOptions{}

	cmd := &cobra.Command{
		Use:   "user",
		Short: userShortDesc,
		Long:  userLongDesc,
	}

	addCmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.resolve(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			username := strings.TrimSpace(args[0])

			password, err := cliui.ReadSecret(os.Stdin, cmd.OutOrStdout(), fmt.Sprintf("Password for %s: ", username))
			if err != nil {
				return err
			}

			ctx := contextOf(cmd)
			store, err := opts.open(ctx, opts.logger())
			if err != nil {
				return err
			}
			defer store.Close()

			return addUser(ctx, store, username, password, cmd.OutOrStdout())
		},
	}
	opts.addFlags(addCmd)

	cmd.AddCommand(addCmd)
	return cmd
}

// addUser registers username in store and reports the new account.
func addUser(ctx context.Context, store user.Store, username, password string, out io.Writer) error {
	u, err := user.Register(ctx, store, username, password)
	if err != nil {
		if errors.Is(err, user.ErrUsernameTaken) {
			return fmt.Errorf("user %q already exists", username)
		}
		return err
	}

	fmt.Fprintf(out, "\n  %s Created %s %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(u.Username),
		cliui.DimStyle.Render("("+u.ID+")"),
	)
	return nil
}
