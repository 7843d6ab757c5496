package journey

import (
	"context"
	"fmt"
	"strings"

	"github.com/cucumber/godog"

	"diagflow/internal/actor"
	"diagflow/internal/report"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	SetParallel(p bool)
	RunSuite(ctx context.Context) error
	PersonaReport(name string) (*report.PersonaReport, error)
	Field(persona string, field actor.Field) (string, error)
}

// RegisterSteps registers run and report step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &journeySteps{tc: tc}

	ctx.Step(`^personas run in parallel$`, steps.runInParallel)
	ctx.Step(`^I run the suite$`, steps.runSuite)
	ctx.Step(`^persona "([^"]*)" (passes|fails)$`, steps.personaOutcome)
	ctx.Step(`^persona "([^"]*)" step "([^"]*)" is (PASSED|FAILED|SKIPPED)$`, steps.stepStatus)
	ctx.Step(`^persona "([^"]*)" fails at step "([^"]*)" with "([^"]*)"$`, steps.failsWith)
	ctx.Step(`^personas "([^"]*)" share one slot$`, steps.shareSlot)
	ctx.Step(`^persona "([^"]*)" has a recorded "([^"]*)"$`, steps.hasField)
}

type journeySteps struct {
	tc TestContext
}

func (s *journeySteps) runInParallel(context.Context) error {
	s.tc.SetParallel(true)
	return nil
}

func (s *journeySteps) runSuite(ctx context.Context) error {
	return s.tc.RunSuite(ctx)
}

func (s *journeySteps) personaOutcome(_ context.Context, persona, outcome string) error {
	pr, err := s.tc.PersonaReport(persona)
	if err != nil {
		return err
	}
	want := report.StatusPassed
	if outcome == "fails" {
		want = report.StatusFailed
	}
	if pr.Status != want {
		return fmt.Errorf("persona %s is %s, want %s; steps: %s", persona, pr.Status, want, describe(pr))
	}
	return nil
}

func (s *journeySteps) stepStatus(_ context.Context, persona, step, status string) error {
	st, err := s.find(persona, step)
	if err != nil {
		return err
	}
	if string(st.Status) != status {
		return fmt.Errorf("persona %s step %s is %s, want %s (%s)", persona, step, st.Status, status, st.Detail)
	}
	return nil
}

func (s *journeySteps) failsWith(_ context.Context, persona, step, fragment string) error {
	st, err := s.find(persona, step)
	if err != nil {
		return err
	}
	if st.Status != report.StatusFailed || !strings.Contains(st.Detail, fragment) {
		return fmt.Errorf("persona %s step %s: status %s detail %q, want FAILED containing %q",
			persona, step, st.Status, st.Detail, fragment)
	}
	return nil
}

func (s *journeySteps) shareSlot(_ context.Context, list string) error {
	var first string
	for i, p := range strings.Split(list, ",") {
		guid, err := s.tc.Field(strings.TrimSpace(p), actor.SlotGUID)
		if err != nil {
			return err
		}
		if i == 0 {
			first = guid
			continue
		}
		if guid != first {
			return fmt.Errorf("persona %s holds slot %s, want %s", p, guid, first)
		}
	}
	return nil
}

func (s *journeySteps) hasField(_ context.Context, persona, field string) error {
	v, err := s.tc.Field(persona, actor.Field(field))
	if err != nil {
		return err
	}
	if v == "" {
		return fmt.Errorf("persona %s has an empty %s", persona, field)
	}
	return nil
}

func (s *journeySteps) find(persona, step string) (report.StepResult, error) {
	pr, err := s.tc.PersonaReport(persona)
	if err != nil {
		return report.StepResult{}, err
	}
	for _, st := range pr.Steps {
		if st.Step == step {
			return st, nil
		}
	}
	return report.StepResult{}, fmt.Errorf("persona %s never reached step %s; steps: %s", persona, step, describe(pr))
}

func describe(pr *report.PersonaReport) string {
	parts := make([]string, 0, len(pr.Steps))
	for _, st := range pr.Steps {
		parts = append(parts, st.Step+"="+string(st.Status))
	}
	return strings.Join(parts, ", ")
}
