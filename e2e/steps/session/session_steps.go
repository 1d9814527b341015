// Package session holds steps that open, close and inspect sessions.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"
)

type TestContext interface {
	POST(path string, body any) error
	PUT(path string, body any) error
	GET(path string) error
	ResponseField(field string) (any, error)
	LastResponseStatus() int
	LastResponseBody() []byte
	SetValue(key, value string)
	Value(key string) string
}

func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &sessionSteps{tc: tc}
	ctx.Step(`^I open a "([^"]*)" session for year "([^"]*)" section "([^"]*)"$`, steps.openSession)
	ctx.Step(`^I open another "([^"]*)" session for year "([^"]*)" section "([^"]*)"$`, steps.openSession)
	ctx.Step(`^I close the session$`, steps.closeSession)
	ctx.Step(`^the response should carry a redemption token$`, steps.shouldCarryToken)
	ctx.Step(`^the session should be inactive$`, steps.sessionShouldBeInactive)
}

type sessionSteps struct {
	tc TestContext
}

func (s *sessionSteps) openSession(_ context.Context, kind, year, section string) error {
	err := s.tc.POST("/sessions", map[string]string{
		"session_type": kind,
		"year":         year,
		"section":      section,
		"subject":      "e2e",
		"session_date": time.Now().UTC().Format("2006-01-02"),
	})
	if err != nil {
		return err
	}
	if s.tc.LastResponseStatus() != 201 {
		return nil
	}
	for _, field := range []string{"id", "token"} {
		v, err := s.tc.ResponseField(field)
		if err != nil {
			return err
		}
		s.tc.SetValue("session_"+field, fmt.Sprint(v))
	}
	return nil
}

func (s *sessionSteps) closeSession(_ context.Context) error {
	return s.tc.PUT("/sessions/"+s.tc.Value("session_id")+"/end", nil)
}

func (s *sessionSteps) shouldCarryToken(_ context.Context) error {
	if s.tc.Value("session_token") == "" {
		return fmt.Errorf("no token in open response: %s", s.tc.LastResponseBody())
	}
	return nil
}

func (s *sessionSteps) sessionShouldBeInactive(_ context.Context) error {
	v, err := s.tc.ResponseField("is_active")
	if err != nil {
		return err
	}
	if v != false {
		return fmt.Errorf("expected closed session, got is_active=%v", v)
	}
	return nil
}
