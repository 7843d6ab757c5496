package backend

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"

	"diagflow/internal/fakebackend"
	"diagflow/internal/platform/config"
	"diagflow/internal/scenario"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GetBackend() *fakebackend.Backend
	GetPlan() *scenario.Plan
	GetSettings() config.Static
}

// RegisterSteps registers backend-state step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &backendSteps{tc: tc}

	ctx.Step(`^the test "([^"]*)" is not available for home collection$`, steps.notHomeCollectable)
	ctx.Step(`^the test "([^"]*)" reports home collection as "([^"]*)"$`, steps.homeCollectionAs)
	ctx.Step(`^the test "([^"]*)" is marked "([^"]*)" in the catalog$`, steps.testStatus)
	ctx.Step(`^slots open (\d+) days? from today$`, steps.slotsOpenAfter)
	ctx.Step(`^no mobile is configured for "([^"]*)"$`, steps.unsetMobile)
	ctx.Step(`^the plan searches for "([^"]*)"$`, steps.planSearches)
}

type backendSteps struct {
	tc TestContext
}

func (s *backendSteps) notHomeCollectable(_ context.Context, name string) error {
	return s.homeCollectionAs(context.Background(), name, "NOT_AVAILABLE")
}

func (s *backendSteps) homeCollectionAs(_ context.Context, name, value string) error {
	if !s.tc.GetBackend().SetHomeCollection(name, value) {
		return fmt.Errorf("no seeded test named %q", name)
	}
	return nil
}

func (s *backendSteps) testStatus(_ context.Context, name, status string) error {
	if !s.tc.GetBackend().SetTestStatus(name, status) {
		return fmt.Errorf("no seeded test named %q", name)
	}
	return nil
}

func (s *backendSteps) slotsOpenAfter(_ context.Context, days int) error {
	s.tc.GetBackend().SetFirstOpenDay(days)
	return nil
}

func (s *backendSteps) unsetMobile(_ context.Context, setting string) error {
	settings := s.tc.GetSettings()
	if _, ok := settings[setting]; !ok {
		return fmt.Errorf("setting %q is not part of the run configuration", setting)
	}
	delete(settings, setting)
	return nil
}

func (s *backendSteps) planSearches(_ context.Context, names string) error {
	s.tc.GetPlan().Tests = []string{names}
	return nil
}
