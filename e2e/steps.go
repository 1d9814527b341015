package e2e

import (
	"github.com/cucumber/godog"

	"rollcall/e2e/steps/attendance"
	"rollcall/e2e/steps/common"
	"rollcall/e2e/steps/session"
)

// RegisterSteps registers all step definitions from the step packages.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	session.RegisterSteps(ctx, tc)
	attendance.RegisterSteps(ctx, tc)
}
