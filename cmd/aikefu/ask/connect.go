package askcmder

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xiaomiproject/aikefu/pkg/cliui"
	"github.com/xiaomiproject/aikefu/pkg/client"
	"github.com/xiaomiproject/aikefu/pkg/config"
)

// PasswordEnv supplies the password non-interactively.
const PasswordEnv = "AIKEFU_PASSWORD"

// connection holds the flags every server-facing command shares.
type connection struct {
	apiTarget string
	username  string
}

func (c *connection) addFlags(cmd *cobra.Command) {
	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &c.apiTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagUsername, &c.username)
}

func (c *connection) addPersistentFlags(cmd *cobra.Command) {
	defaults := config.NewDefaultConfig()
	target := config.Flags[config.FlagAPITarget]
	user := config.Flags[config.FlagUsername]
	cmd.PersistentFlags().StringVarP(&c.apiTarget, target.Name, target.Shorthand, defaults.Client.APITarget, target.Description)
	cmd.PersistentFlags().StringVarP(&c.username, user.Name, user.Shorthand, defaults.Client.Username, user.Description)
}

// resolve fills unset flags from config.toml.
func (c *connection) resolve(cmd *cobra.Command) error {
	configDir, _ := cmd.Flags().GetString("config-dir")
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if !cmd.Flags().Changed(config.Flags[config.FlagAPITarget].Name) {
		c.apiTarget = cfg.Client.APITarget
	}
	if !cmd.Flags().Changed(config.Flags[config.FlagUsername].Name) && cfg.Client.Username != "" {
		c.username = cfg.Client.Username
	}
	return nil
}

// client returns an API client, prompting for the password when
// AIKEFU_PASSWORD is unset.
func (c *connection) client() (*client.Client, error) {
	username := strings.TrimSpace(c.username)
	if username == "" {
		return nil, errors.New("username required: pass --username or run 'aikefu config set client.username <name>'")
	}

	password := os.Getenv(PasswordEnv)
	if password == "" {
		var err error
		password, err = cliui.ReadSecret(os.Stdin, os.Stderr, fmt.Sprintf("Password for %s: ", username))
		if err != nil {
			return nil, err
		}
	}

	return client.New(c.apiTarget, username, password), nil
}
