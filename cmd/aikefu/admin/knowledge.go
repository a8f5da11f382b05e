package admincmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/xiaomiproject/aikefu/pkg/cliui"
	"github.com/xiaomiproject/aikefu/pkg/knowledge"
)

const knowledgeLongDesc string = `Manage the curated knowledge base.

Knowledge entries are exact question and answer pairs. A question that
matches an entry exactly is answered from it without asking a model.

Import files are TOML:

  [[entries]]
  question = "How do I reset my password?"
  answer = "Use the 'Forgot password' link on the sign-in page."

Importing a question that already exists replaces its answer.

Examples:
  aikefu knowledge import faq.toml --storage sqlite --sqlite ./aikefu.db
  aikefu knowledge import faq.toml --watch
  aikefu knowledge count`

const knowledgeShortDesc string = "Manage the curated knowledge base"

const (
	// reimportDelay coalesces the burst of events an editor save produces.
	reimportDelay = 200 * time.Millisecond

	// reimportMaxWait bounds how long a steady stream of writes can hold
	// off a re-import.
	reimportMaxWait = time.Second
)

func NewKnowledgeCmd() *cobra.Command {
	opts := &storeOptions{}

	cmd := &cobra.Command{
		Use:   "knowledge",
		Short: knowledgeShortDesc,
		Long:  knowledgeLongDesc,
	}

	var watch bool
	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import question and answer pairs from a TOML file",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.resolve(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextOf(cmd)
			log := opts.logger()

			store, err := opts.open(ctx, log)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := importFile(ctx, store, args[0], cmd.OutOrStdout()); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return watchFile(ctx, store, args[0], cmd.OutOrStdout(), log)
		},
	}
	opts.addFlags(importCmd)
	importCmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-import whenever the file changes")

	countCmd := &cobra.Command{
		Use:   "count",
		Short: "Print the number of knowledge entries",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.resolve(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := contextOf(cmd)
			store, err := opts.open(ctx, opts.logger())
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.CountKnowledge(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	opts.addFlags(countCmd)

	cmd.AddCommand(importCmd, countCmd)
	return cmd
}

// importFile loads path and writes its entries into store.
func importFile(ctx context.Context, store knowledge.Store, path string, out io.Writer) error {
	var res knowledge.ImportResult
	err := cliui.Step(out, "Importing "+filepath.Base(path), func() error {
		f, err := knowledge.LoadFile(path)
		if err != nil {
			return err
		}
		res, err = knowledge.Import(ctx, store, f)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "  %s\n",
		cliui.DimStyle.Render(fmt.Sprintf("%d created, %d updated, %d skipped", res.Created, res.Updated, res.Skipped)),
	)
	return nil
}

// watchFile re-imports path whenever it is written until ctx is done.
// A failed re-import is reported and watching continues.
func watchFile(ctx context.Context, store knowledge.Store, path string, out io.Writer, log *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory so editors that replace the file are still seen.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	fmt.Fprintf(out, "  %s\n", cliui.DimStyle.Render("Watching "+path+" for changes. Ctrl+C to stop."))

	var (
		timer      *time.Timer
		pending    <-chan time.Time
		burstStart time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			log.Debug("knowledge file changed", "path", path, "op", event.Op.String())
			now := time.Now()
			if pending == nil {
				burstStart = now
			}
			delay := min(reimportDelay, reimportMaxWait-now.Sub(burstStart))
			if timer == nil {
				timer = time.NewTimer(delay)
			} else {
				timer.Reset(delay)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			if err := importFile(ctx, store, path, out); err != nil {
				fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if !errors.Is(err, fsnotify.ErrEventOverflow) {
				return fmt.Errorf("file watcher error: %w", err)
			}
			log.Warn("file watcher overflowed", "path", path)
		}
	}
}
