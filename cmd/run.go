// File: cmd/run.go
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-replay/internal/browser/dom"
	"github.com/xkilldash9x/scalpel-replay/internal/browser/snapshot"
	"github.com/xkilldash9x/scalpel-replay/internal/config"
	"github.com/xkilldash9x/scalpel-replay/internal/observability"
	"github.com/xkilldash9x/scalpel-replay/internal/pipeline"
	"github.com/xkilldash9x/scalpel-replay/internal/playback"
	"github.com/xkilldash9x/scalpel-replay/internal/recorder"
	"github.com/xkilldash9x/scalpel-replay/internal/store"
)

// ErrPlaybackFailed is returned by run when at least one action failed.
var ErrPlaybackFailed = errors.New("playback finished with failures")

type runOptions struct {
	page       string
	reportPath string
	dumpPath   string
	rerecord   string
	raw        bool
}

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	var opts runOptions

	runCmd := &cobra.Command{
		Use:   "run <actions-file>",
		Short: "Replays an action file against a page",
		Long: `Loads a JSON or YAML action file, normalizes it, and replays it against a page.
The page is an HTML file or an http(s) URL rendered in headless Chrome.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if err := applyPlaybackFlags(cmd, cfg); err != nil {
				return err
			}
			return runPlayback(cmd, cfg, args[0], opts)
		},
	}

	runCmd.Flags().StringVarP(&opts.page, "page", "p", "", "HTML file or URL to replay against (required)")
	runCmd.Flags().StringVar(&opts.reportPath, "report", "", "write the playback report to this .json or .yaml file")
	runCmd.Flags().StringVar(&opts.dumpPath, "dump-dom", "", "write the final document to this HTML file")
	runCmd.Flags().StringVar(&opts.rerecord, "rerecord", "", "record the replayed interactions with generated selectors to this file")
	runCmd.Flags().BoolVar(&opts.raw, "raw", false, "replay the file as written, without normalization")
	runCmd.Flags().Bool("highlight", true, "outline each target before acting on it")
	runCmd.Flags().Bool("stop-on-failure", false, "stop at the first failed action")
	runCmd.Flags().Duration("target-timeout", 0, "wait up to this long for each target to appear")
	runCmd.Flags().Duration("step-delay", 0, "pause between actions")
	runCmd.Flags().Bool("headless", true, "run the browser headless when the page is a URL")
	_ = runCmd.MarkFlagRequired("page")

	return runCmd
}

// applyPlaybackFlags lets explicitly set flags override the loaded configuration.
func applyPlaybackFlags(cmd *cobra.Command, cfg config.Interface) error {
	flags := cmd.Flags()
	if flags.Changed("highlight") {
		v, err := flags.GetBool("highlight")
		if err != nil {
			return err
		}
		cfg.SetPlaybackHighlight(v)
	}
	if flags.Changed("stop-on-failure") {
		v, err := flags.GetBool("stop-on-failure")
		if err != nil {
			return err
		}
		cfg.SetPlaybackStopOnFailure(v)
	}
	if flags.Changed("target-timeout") {
		v, err := flags.GetDuration("target-timeout")
		if err != nil {
			return err
		}
		cfg.SetPlaybackTargetTimeout(v)
	}
	if flags.Changed("step-delay") {
		v, err := flags.GetDuration("step-delay")
		if err != nil {
			return err
		}
		cfg.SetPlaybackStepDelay(v)
	}
	if flags.Changed("headless") {
		v, err := flags.GetBool("headless")
		if err != nil {
			return err
		}
		cfg.SetBrowserHeadless(v)
	}
	playbackCfg := cfg.Playback()
	return playbackCfg.Validate()
}

func runPlayback(cmd *cobra.Command, cfg config.Interface, actionsPath string, opts runOptions) error {
	ctx := cmd.Context()
	logger := observability.GetLogger()
	st := store.New(logger)

	actions, err := st.Load(actionsPath)
	if err != nil {
		return err
	}
	if !opts.raw {
		before := len(actions)
		if actions, err = pipeline.Normalize(actions); err != nil {
			return err
		}
		logger.Info("Normalized actions.", zap.Int("before", before), zap.Int("after", len(actions)))
	}

	doc, err := snapshot.New(cfg.Browser(), logger).Open(ctx, opts.page)
	if err != nil {
		return err
	}

	finder := newFinder(doc, cfg, logger)
	player := playback.NewPlayer(finder, cfg.Playback(), logger)

	var rec *recorder.Recorder
	if opts.rerecord != "" {
		rec = recorder.New(doc,
			recorder.WithLogger(logger),
			recorder.WithWaitThreshold(cfg.Recorder().WaitThreshold))
		if err := rec.Start(); err != nil {
			return err
		}
	}

	report, playErr := player.Play(ctx, actions)
	if rec != nil {
		if err := st.Save(opts.rerecord, rec.Stop()); err != nil {
			return err
		}
	}
	if report == nil {
		return playErr
	}

	printReport(cmd.OutOrStdout(), report)

	if opts.reportPath != "" {
		if err := st.SaveValue(opts.reportPath, report); err != nil {
			return err
		}
	}
	if opts.dumpPath != "" {
		if err := dumpDocument(doc, opts.dumpPath); err != nil {
			return err
		}
	}

	if playErr != nil {
		return playErr
	}
	if !report.Succeeded() {
		return fmt.Errorf("%w: %d of %d actions failed", ErrPlaybackFailed, report.Failed, report.Executed)
	}
	return nil
}

func newFinder(doc *dom.Document, cfg config.Interface, logger *zap.Logger) *dom.Finder {
	return dom.NewFinder(doc,
		dom.WithCacheSize(cfg.Finder().CacheSize),
		dom.WithPollInterval(cfg.Finder().PollInterval),
		dom.WithLogger(logger))
}

func printReport(w io.Writer, report *playback.Report) {
	for _, step := range report.Steps {
		status := "ok"
		if !step.Result.Success {
			status = "FAILED: " + step.Result.Error
		}
		label := step.Action.Description
		if label == "" {
			label = step.Action.Descriptor()
		}
		fmt.Fprintf(w, "%3d  %-12s %-40s %s (%s)\n",
			step.Index+1, step.Action.Type, label, status, step.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(w, "run %s: %d executed, %d failed", report.RunID, report.Executed, report.Failed)
	if report.Stopped {
		fmt.Fprintf(w, ", stopped: %s", report.StopReason)
	}
	fmt.Fprintln(w)
}

func dumpDocument(doc *dom.Document, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := doc.Render(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
