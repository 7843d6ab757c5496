package e2e

import (
	"github.com/cucumber/godog"

	"diagflow/e2e/steps/backend"
	"diagflow/e2e/steps/journey"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Backend state: catalog flags, slot calendar, configured mobiles
	backend.RegisterSteps(ctx, tc)

	// Running the suite and asserting on its report
	journey.RegisterSteps(ctx, tc)
}
