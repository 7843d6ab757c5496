// Package report collects per-persona step outcomes for one run and renders
// them for people and machines.
package report

import (
	"time"

	"diagflow/internal/actor"
	"diagflow/internal/validate"
)

type Status string

const (
	StatusPassed  Status = "PASSED"
	StatusFailed  Status = "FAILED"
	StatusSkipped Status = "SKIPPED"
)

// StepResult is the outcome of one step for one persona.
type StepResult struct {
	Step       string            `json:"step"`
	Status     Status            `json:"status"`
	DurationMS int64             `json:"duration_ms"`
	Checks     *validate.Summary `json:"checks,omitempty"`
	Failures   []validate.Result `json:"failures,omitempty"`
	Detail     string            `json:"detail,omitempty"`
}

// PersonaReport is written only by the goroutine running that persona.
type PersonaReport struct {
	Persona actor.Persona `json:"persona"`
	Status  Status        `json:"status"`
	Steps   []StepResult  `json:"steps"`
}

// Report is the outcome of a whole run. Persona slots are allocated up front
// so concurrent personas never touch shared slices.
type Report struct {
	Plan       string           `json:"plan"`
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Personas   []*PersonaReport `json:"personas"`
}

func New(plan, runID string, startedAt time.Time, personas []actor.Persona) *Report {
	r := &Report{
		Plan:      plan,
		RunID:     runID,
		StartedAt: startedAt.UTC(),
		Personas:  make([]*PersonaReport, 0, len(personas)),
	}
	for _, p := range personas {
		r.Personas = append(r.Personas, &PersonaReport{Persona: p, Status: StatusPassed, Steps: []StepResult{}})
	}
	return r
}

// For returns the persona's report, or nil when the persona is not part of the run.
func (r *Report) For(p actor.Persona) *PersonaReport {
	for _, pr := range r.Personas {
		if pr.Persona == p {
			return pr
		}
	}
	return nil
}

func (r *Report) Finish(at time.Time) {
	r.FinishedAt = at.UTC()
}

func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Counts returns how many personas passed and failed.
func (r *Report) Counts() (passed, failed int) {
	for _, pr := range r.Personas {
		if pr.Status == StatusFailed {
			failed++
		} else {
			passed++
		}
	}
	return passed, failed
}

func (r *Report) Passed() bool {
	_, failed := r.Counts()
	return failed == 0
}

// Record appends a step outcome. A non-nil err marks the step, and the
// persona, as failed. batch may be nil for steps without field checks.
func (pr *PersonaReport) Record(step string, elapsed time.Duration, batch *validate.Batch, err error) {
	res := StepResult{
		Step:       step,
		Status:     StatusPassed,
		DurationMS: elapsed.Milliseconds(),
	}
	if batch != nil {
		sum := batch.Summary()
		res.Checks = &sum
		res.Failures = batch.Failures()
	}
	if err != nil {
		res.Status = StatusFailed
		res.Detail = err.Error()
		pr.Status = StatusFailed
	}
	pr.Steps = append(pr.Steps, res)
}

func (pr *PersonaReport) Skip(step, reason string) {
	pr.Steps = append(pr.Steps, StepResult{Step: step, Status: StatusSkipped, Detail: reason})
}
