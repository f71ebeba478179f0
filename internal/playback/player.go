// internal/playback/player.go
package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-replay/api/schemas"
	"github.com/xkilldash9x/scalpel-replay/internal/browser/dom"
	"github.com/xkilldash9x/scalpel-replay/internal/config"
)

// ErrPlaybackInProgress is returned when Play is called while a run is active.
var ErrPlaybackInProgress = errors.New("playback already in progress")

// Step records the outcome of one action in a run.
type Step struct {
	Index    int            `json:"index"`
	Action   schemas.Action `json:"action"`
	Result   schemas.Result `json:"result"`
	Duration time.Duration  `json:"duration_ns"`
}

// Report summarizes a playback run.
type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Steps      []Step    `json:"steps"`
	Executed   int       `json:"executed"`
	Failed     int       `json:"failed"`
	// SelectorFailures counts unresolved targets per descriptor.
	SelectorFailures map[string]int `json:"selector_failures,omitempty"`
	Stopped          bool           `json:"stopped"`
	StopReason       string         `json:"stop_reason,omitempty"`
}

// Succeeded reports whether every action ran and none failed.
func (r *Report) Succeeded() bool {
	return r.Failed == 0 && !r.Stopped
}

// Player replays action sequences against one document. It owns the Finder
// and Executor for that document; at most one run is active at a time.
type Player struct {
	finder   *dom.Finder
	executor *Executor
	cfg      config.PlaybackConfig
	logger   *zap.Logger
	running  sync.Mutex
}

// NewPlayer creates a player that resolves targets with finder.
func NewPlayer(finder *dom.Finder, cfg config.PlaybackConfig, logger *zap.Logger) *Player {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Player{
		finder:   finder,
		executor: NewExecutor(finder.Document(), finder, logger),
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "player")),
	}
}

// Executor exposes the executor used for runs.
func (p *Player) Executor() *Executor {
	return p.executor
}

// Play executes actions strictly in order. Cancellation is honored between
// actions: the returned report covers the steps that ran and the context
// error is returned alongside it. Highlights are cleaned up when the run ends.
func (p *Player) Play(ctx context.Context, actions []schemas.Action) (*Report, error) {
	if !p.running.TryLock() {
		return nil, ErrPlaybackInProgress
	}
	defer p.running.Unlock()
	defer p.executor.Cleanup()

	report := &Report{
		RunID:            uuid.NewString(),
		StartedAt:        time.Now(),
		Steps:            make([]Step, 0, len(actions)),
		SelectorFailures: make(map[string]int),
	}
	logger := p.logger.With(zap.String("run_id", report.RunID))
	logger.Info("Starting playback.", zap.Int("actions", len(actions)))

	var runErr error
	for i, action := range actions {
		if err := ctx.Err(); err != nil {
			runErr = p.stop(report, err)
			break
		}

		start := time.Now()
		if action.Type.NeedsTarget() {
			p.prepareTarget(ctx, logger, action.Descriptor())
			if err := ctx.Err(); err != nil {
				runErr = p.stop(report, err)
				break
			}
		}

		result := p.executor.Execute(ctx, action)
		report.Steps = append(report.Steps, Step{
			Index:    i,
			Action:   action,
			Result:   result,
			Duration: time.Since(start),
		})
		report.Executed++

		if !result.Success {
			report.Failed++
			if result.Error == ErrMsgElementNotFound {
				report.SelectorFailures[action.Descriptor()]++
			}
			logger.Warn("Action failed.",
				zap.Int("index", i),
				zap.String("type", action.Type.String()),
				zap.String("descriptor", action.Descriptor()),
				zap.String("error", result.Error))
			if p.cfg.StopOnFailure {
				report.Stopped = true
				report.StopReason = result.Error
				break
			}
		}

		if p.cfg.StepDelay > 0 && i < len(actions)-1 {
			if err := sleep(ctx, p.cfg.StepDelay); err != nil {
				runErr = p.stop(report, err)
				break
			}
		}
	}

	report.FinishedAt = time.Now()
	logger.Info("Playback finished.",
		zap.Int("executed", report.Executed),
		zap.Int("failed", report.Failed),
		zap.Bool("stopped", report.Stopped))
	return report, runErr
}

// prepareTarget waits for the target to appear and highlights it, as configured.
func (p *Player) prepareTarget(ctx context.Context, logger *zap.Logger, descriptor string) {
	if p.cfg.TargetTimeout > 0 {
		if _, err := p.finder.WaitFor(ctx, descriptor, p.cfg.TargetTimeout); err != nil {
			logger.Debug("Target did not appear before acting.", zap.String("descriptor", descriptor), zap.Error(err))
		}
	}
	if p.cfg.Highlight {
		p.executor.Highlight(descriptor, p.cfg.HighlightDuration)
	}
}

func (p *Player) stop(report *Report, err error) error {
	report.Stopped = true
	report.StopReason = err.Error()
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
