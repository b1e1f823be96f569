package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"replay-agent/internal/application"
	"replay-agent/internal/replay"
	"replay-agent/internal/traversal"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "replay-agent",
		Short:         "Replay recorded browser traversals with self-healing recovery",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newReplayCmd(), newListCmd())
	return root
}

func newReplayCmd() *cobra.Command {
	var (
		dir      string
		pause    bool
		healing  bool
		headless bool
		secrets  []string
	)

	cmd := &cobra.Command{
		Use:   "replay [file]",
		Short: "Replay a recorded traversal, the latest in --dir when no file is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := slog.New(slog.NewTextHandler(os.Stderr, nil))
			slog.SetDefault(log)

			opts := application.Options{
				Dir:     dir,
				Pause:   pause,
				Healing: healing,
			}
			if len(args) == 1 {
				opts.Path = args[0]
			}
			if cmd.Flags().Changed("headless") {
				opts.Headless = &headless
			}

			var err error
			opts.Secrets, err = parseSecrets(secrets)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := application.Run(ctx, opts, log)
			if err != nil && result.Status != replay.StatusFailed {
				return err
			}

			fmt.Println(result.Status)
			if result.Status == replay.StatusFailed {
				if result.Reason != "" {
					fmt.Println(result.Reason)
				}
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "traversals", "directory holding recorded traversals")
	cmd.Flags().BoolVar(&pause, "pause", false, "pause after every action, 'q' + Enter stops the replay")
	cmd.Flags().BoolVar(&healing, "healing", true, "recover from failed actions with the healing oracle")
	cmd.Flags().BoolVar(&headless, "headless", true, "run the browser headless")
	cmd.Flags().StringArrayVar(&secrets, "secret", nil, "override a recorded secret, KEY=VALUE, repeatable")

	return cmd
}

func newListCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded traversals in --dir",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := slog.New(slog.NewTextHandler(os.Stderr, nil))
			store := traversal.NewStore(log)

			entries, err := os.ReadDir(dir)
			if err != nil {
				return fmt.Errorf("reading %s: %w", dir, err)
			}

			for _, e := range entries {
				if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
					continue
				}
				path := filepath.Join(dir, e.Name())
				t, err := store.Load(path)
				if err != nil {
					fmt.Printf("%s\tinvalid: %v\n", e.Name(), err)
					continue
				}
				fmt.Printf("%s\t%d actions\t%s\n", e.Name(), len(t.Actions), t.Task)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "traversals", "directory holding recorded traversals")
	return cmd
}

func parseSecrets(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --secret %q, expected KEY=VALUE", p)
		}
		out[k] = v
	}
	return out, nil
}
