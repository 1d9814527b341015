// Package attendance holds marking, listing and analytics steps.
package attendance

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cucumber/godog"
)

type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	LastResponseStatus() int
	LastResponseBody() []byte
	Value(key string) string
	ActorID(name string) string
}

func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &attendanceSteps{tc: tc}
	ctx.Step(`^I mark attendance with the session token$`, steps.markWithToken)
	ctx.Step(`^I mark attendance with token "([^"]*)"$`, steps.markWithLiteralToken)
	ctx.Step(`^I mark attendance with a wrong token (\d+) times$`, steps.markWrongTokenTimes)
	ctx.Step(`^I list attendance records$`, steps.listRecords)
	ctx.Step(`^I should see (\d+) records?$`, steps.shouldSeeRecords)
	ctx.Step(`^I request attendance analytics$`, steps.requestAnalytics)
	ctx.Step(`^"([^"]*)" should be flagged for low attendance$`, steps.shouldBeFlagged)
}

type attendanceSteps struct {
	tc TestContext
}

func (s *attendanceSteps) mark(token string) error {
	return s.tc.POST("/attendance/mark", map[string]string{
		"session_id": s.tc.Value("session_id"),
		"method":     "qr",
		"qr_token":   token,
	})
}

func (s *attendanceSteps) markWithToken(_ context.Context) error {
	return s.mark(s.tc.Value("session_token"))
}

func (s *attendanceSteps) markWithLiteralToken(_ context.Context, token string) error {
	return s.mark(token)
}

func (s *attendanceSteps) markWrongTokenTimes(_ context.Context, times int) error {
	for range times {
		if err := s.mark("not-the-token"); err != nil {
			return err
		}
	}
	return nil
}

func (s *attendanceSteps) listRecords(_ context.Context) error {
	return s.tc.GET("/attendance/records")
}

func (s *attendanceSteps) shouldSeeRecords(_ context.Context, n int) error {
	var body struct {
		Records []json.RawMessage `json:"records"`
	}
	if err := json.Unmarshal(s.tc.LastResponseBody(), &body); err != nil {
		return err
	}
	if len(body.Records) != n {
		return fmt.Errorf("expected %d records, got %d", n, len(body.Records))
	}
	return nil
}

func (s *attendanceSteps) requestAnalytics(_ context.Context) error {
	return s.tc.GET("/attendance/analytics")
}

func (s *attendanceSteps) shouldBeFlagged(_ context.Context, name string) error {
	var body struct {
		Low []struct {
			StudentID string `json:"student_id"`
		} `json:"low_attendance_students"`
	}
	if err := json.Unmarshal(s.tc.LastResponseBody(), &body); err != nil {
		return err
	}
	want := s.tc.ActorID(name)
	for _, st := range body.Low {
		if st.StudentID == want {
			return nil
		}
	}
	return fmt.Errorf("%s not in low attendance list: %s", name, s.tc.LastResponseBody())
}
