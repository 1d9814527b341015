// Package common holds background and assertion steps shared by every feature.
package common

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cucumber/godog"
)

type TestContext interface {
	AddActor(name, role, year, section string) error
	ActAs(name string) error
	GET(path string) error
	LastResponseStatus() int
	LastResponseBody() []byte
	ResponseField(field string) (any, error)
}

func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}
	ctx.Step(`^a faculty member "([^"]*)"$`, steps.facultyMember)
	ctx.Step(`^a department admin "([^"]*)"$`, steps.departmentAdmin)
	ctx.Step(`^a student "([^"]*)" in year "([^"]*)" section "([^"]*)"$`, steps.student)
	ctx.Step(`^I am "([^"]*)"$`, steps.iAm)
	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the error code should be "([^"]*)"$`, steps.errorCodeShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be (\d+(?:\.\d+)?)$`, steps.numericFieldShouldBe)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) facultyMember(_ context.Context, name string) error {
	return s.tc.AddActor(name, "faculty", "", "")
}

func (s *commonSteps) departmentAdmin(_ context.Context, name string) error {
	return s.tc.AddActor(name, "department_admin", "", "")
}

func (s *commonSteps) student(_ context.Context, name, year, section string) error {
	if err := s.tc.AddActor(name, "student", year, section); err != nil {
		return err
	}
	// Students enter the roster the first time they call the API.
	if err := s.tc.ActAs(name); err != nil {
		return err
	}
	return s.tc.GET("/auth/me")
}

func (s *commonSteps) iAm(_ context.Context, name string) error {
	return s.tc.ActAs(name)
}

func (s *commonSteps) responseStatusShouldBe(_ context.Context, expected int) error {
	if got := s.tc.LastResponseStatus(); got != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, got, s.tc.LastResponseBody())
	}
	return nil
}

func (s *commonSteps) errorCodeShouldBe(_ context.Context, code string) error {
	v, err := s.tc.ResponseField("error")
	if err != nil {
		return err
	}
	if v != code {
		return fmt.Errorf("expected error %q, got %v", code, v)
	}
	return nil
}

func (s *commonSteps) numericFieldShouldBe(_ context.Context, field string, expected float64) error {
	v, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	got, ok := v.(float64)
	if !ok {
		raw, _ := json.Marshal(v)
		return fmt.Errorf("field %q is not a number: %s", field, raw)
	}
	if got != expected {
		return fmt.Errorf("expected %s=%v, got %v", field, expected, got)
	}
	return nil
}
