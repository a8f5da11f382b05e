package configcmder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xiaomiproject/aikefu/pkg/cliui"
	"github.com/xiaomiproject/aikefu/pkg/config"
)

func (c *configCommander) newInitCmd() *cobra.Command {
	var (
		preset string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config.toml",
		Long: `Write a starter config.toml into ./.aikefu/ (or --config-dir).

--preset picks the default model: ` + strings.Join(config.ValidPresetNames(), ", ") + `.
An existing file is kept unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return c.runInit(preset, force)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "deepseek", "Default model preset")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config.toml")

	return cmd
}

func (c *configCommander) runInit(preset string, force bool) error {
	cfg, err := config.PresetConfig(preset)
	if err != nil {
		return err
	}

	dir := c.configDir
	if dir == "" {
		dir = ".aikefu"
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	path := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Wrote %s %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(path),
		cliui.DimStyle.Render("(default model "+cfg.LLM.DefaultModel+")"),
	)
	return nil
}
