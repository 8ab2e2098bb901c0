package host

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Runner drives frames without a display, paced by a rate limiter in place
// of the browser's animation callback.
type Runner struct {
	host    *Host
	limiter *rate.Limiter
	frames  int
	logger  *zap.Logger
}

// NewRunner creates a runner at fps frames per second. frames bounds the
// number of frames run; 0 runs until the context is cancelled.
func NewRunner(host *Host, fps int, frames int, logger *zap.Logger) *Runner {
	limit := rate.Inf
	if fps > 0 {
		limit = rate.Every(time.Second / time.Duration(fps))
	}
	return &Runner{
		host:    host,
		limiter: rate.NewLimiter(limit, 1),
		frames:  frames,
		logger:  logger.With(zap.String("component", "runner")),
	}
}

// Run runs frames until the frame budget is spent, the context is
// cancelled or a frame fails. On cancellation the guest receives a CLOSE
// event in one last frame. Run returns the number of frames completed.
func (r *Runner) Run(ctx context.Context) (int, error) {
	// A frame in progress is never interrupted: wazero closes the module
	// when the context of a running call is cancelled.
	frameCtx := context.WithoutCancel(ctx)

	done := 0
	for r.frames == 0 || done < r.frames {
		if err := r.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return done, r.shutdown(frameCtx, done)
			}
			return done, err
		}
		if err := r.host.Frame(frameCtx); err != nil {
			return done, err
		}
		done++
	}

	r.logger.Info("Frame budget reached", zap.Int("frames", done))
	return done, nil
}

func (r *Runner) shutdown(ctx context.Context, done int) error {
	r.logger.Info("Stopping", zap.Int("frames", done))
	r.host.Input().Close()
	err := r.host.Frame(ctx)
	var stateErr *StateError
	if errors.As(err, &stateErr) {
		return nil
	}
	return err
}
