package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/railwayapp/launchpad/internal/shell"
)

// Policy decides what a step failure does to the build.
type Policy string

const (
	// PolicyFatal aborts the build on failure.
	PolicyFatal Policy = "fatal"
	// PolicyBestEffort logs the failure and continues.
	PolicyBestEffort Policy = "best-effort"
)

type Status string

const (
	StatusOK         Status = "ok"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
	StatusSuppressed Status = "suppressed"
)

// ErrSkip is returned by a step action that has nothing to do.
var ErrSkip = errors.New("nothing to do")

// Step is one unit of the build.
type Step struct {
	Name   string
	Policy Policy
	// Describe is a human readable summary used for dry runs.
	Describe string
	Run      func(ctx context.Context) error
}

// StepReport records the outcome of one step.
type StepReport struct {
	Name     string         `json:"name"`
	Policy   Policy         `json:"policy"`
	Status   Status         `json:"status"`
	Duration time.Duration  `json:"duration"`
	ExitCode shell.ExitCode `json:"exitCode"`
	Error    string         `json:"error,omitempty"`
}

// StepError is returned when a fatal step fails.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Report describes what the build produced.
type Report struct {
	Steps []StepReport `json:"steps"`
	// Completed is true when every fatal step succeeded.
	Completed bool `json:"completed"`
}

// Suppressed returns the names of best-effort steps that failed.
func (r *Report) Suppressed() []string {
	var names []string
	for _, s := range r.Steps {
		if s.Status == StatusSuppressed {
			names = append(names, s.Name)
		}
	}
	return names
}
