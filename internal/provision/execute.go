package provision

import (
	"context"
	"errors"
	"time"

	"github.com/railwayapp/launchpad/internal/shell"
	"go.uber.org/zap"
)

// Execute runs steps in order. A failing fatal step stops the sequence and
// is returned as a *StepError; a failing best-effort step is recorded as
// suppressed. Cancellation of ctx always stops the sequence.
func Execute(ctx context.Context, steps []Step, logger *zap.SugaredLogger) (*Report, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	report := &Report{}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return report, &StepError{Step: step.Name, Err: err}
		}

		logger.Infow("step started", "step", step.Name, "policy", step.Policy)
		start := time.Now()
		err := step.Run(ctx)

		sr := StepReport{
			Name:     step.Name,
			Policy:   step.Policy,
			Duration: time.Since(start),
		}

		switch {
		case err == nil:
			sr.Status = StatusOK
			logger.Infow("step finished", "step", step.Name, "duration", sr.Duration)

		case errors.Is(err, ErrSkip):
			sr.Status = StatusSkipped
			logger.Infow("step skipped", "step", step.Name, "reason", err.Error())

		case step.Policy == PolicyBestEffort && ctx.Err() == nil:
			sr.Status = StatusSuppressed
			sr.ExitCode = shell.CodeOf(err)
			sr.Error = err.Error()
			logger.Warnw("step failed, continuing", "step", step.Name, "exit_code", sr.ExitCode, "error", err)

		default:
			sr.Status = StatusFailed
			sr.ExitCode = shell.CodeOf(err)
			sr.Error = err.Error()
			report.Steps = append(report.Steps, sr)
			logger.Errorw("step failed", "step", step.Name, "exit_code", sr.ExitCode, "error", err)
			return report, &StepError{Step: step.Name, Err: err}
		}

		report.Steps = append(report.Steps, sr)
	}

	report.Completed = true
	return report, nil
}
