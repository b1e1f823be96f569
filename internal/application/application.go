package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"replay-agent/internal/browser"
	"replay-agent/internal/config"
	"replay-agent/internal/executor"
	"replay-agent/internal/oracle"
	"replay-agent/internal/replay"
	"replay-agent/internal/traversal"
)

// Options is what the CLI collects: which recording to replay and how.
type Options struct {
	// Path to the traversal file. Empty means the latest recording in
	// Dir.
	Path string
	Dir  string

	Pause    bool
	Healing  bool
	Headless *bool // nil falls back to the HEADLESS env setting

	// Secrets overlays the recorded secrets map, values supplied at
	// replay time win.
	Secrets map[string]string
}

// Run replays one recorded traversal end to end and returns the
// outcome. A failed replay is a normal Result, not an error; errors
// mean the run could not be set up or torn down.
func Run(ctx context.Context, opts Options, log *slog.Logger) (replay.Result, error) {
	if log == nil {
		log = slog.Default()
	}

	cfg, err := config.LoadConfig(opts.Healing)
	if err != nil {
		return replay.Result{}, fmt.Errorf("initialization failed: %w", err)
	}

	store := traversal.NewStore(log)
	path := opts.Path
	if path == "" {
		path, err = store.Latest(opts.Dir)
		if err != nil {
			return replay.Result{}, err
		}
		log.Info("replaying latest recording", "path", path)
	}

	t, err := store.Load(path)
	if err != nil {
		return replay.Result{}, err
	}

	if len(opts.Secrets) > 0 {
		if t.Secrets == nil {
			t.Secrets = make(map[string]string, len(opts.Secrets))
		}
		for k, v := range opts.Secrets {
			t.Secrets[k] = v
		}
	}

	headless := cfg.Headless
	if opts.Headless != nil {
		headless = *opts.Headless
	}

	runID := uuid.NewString()
	log.Info("starting replay", "run_id", runID, "path", path,
		"actions", len(t.Actions), "healing", opts.Healing)

	session, err := browser.NewSession(ctx, t.BrowserConfig, headless, runID, log)
	if err != nil {
		return replay.Result{}, fmt.Errorf("browser launch error: %w", err)
	}
	defer session.Close()

	execOpts := executor.DefaultOptions()
	execOpts.SettleDelay = cfg.SettleDelay
	execOpts.NavRetries = cfg.NavRetries
	exec := executor.New(session, t.Secrets, execOpts, log)

	runnerOpts := []replay.RunnerOption{
		replay.WithCompiler(traversal.Compile),
	}
	if opts.Pause {
		runnerOpts = append(runnerOpts, replay.WithPause(os.Stdin))
	}
	if opts.Healing {
		// The oracle drives the browser with a lenient executor so one
		// unsupported action does not abort recovery.
		healExecOpts := execOpts
		healExecOpts.OnUnsupported = executor.Skip
		healExec := executor.New(session, t.Secrets, healExecOpts, log)

		factory := oracle.Factory(oracle.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.Url,
		}, session, healExec, log)

		coordinator := replay.NewHealingCoordinator(factory, cfg.MaxHealingSteps, replay.NewHealer(log))
		runnerOpts = append(runnerOpts, replay.WithHealing(coordinator))
	}

	runner, err := replay.NewRunner(t, exec, log, runnerOpts...)
	if err != nil {
		return replay.Result{}, err
	}

	result, err := runner.Run(ctx)

	if result.Corrected != nil {
		corrected := traversal.CorrectedPath(path)
		if saveErr := store.Save(corrected, result.Corrected); saveErr != nil {
			log.Error("failed to save corrected traversal", "path", corrected, "error", saveErr)
		} else {
			log.Info("corrected traversal written", "path", corrected)
		}
	}

	return result, err
}
