package e2e

import (
	"github.com/cucumber/godog"

	"github.com/eshbtc/travelcheck-sub000/e2e/steps/common"
	"github.com/eshbtc/travelcheck-sub000/e2e/steps/evidence"
	"github.com/eshbtc/travelcheck-sub000/e2e/steps/presence"
	"github.com/eshbtc/travelcheck-sub000/e2e/steps/report"
)

// RegisterSteps registers all step definitions from the modular packages.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Generic request and assertion steps
	common.RegisterSteps(ctx, tc)

	// Feature-specific steps
	evidence.RegisterSteps(ctx, tc)
	presence.RegisterSteps(ctx, tc)
	report.RegisterSteps(ctx, tc)
}
