package analytics

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	attendancemodels "rollcall/internal/attendance/models"
	identitymodels "rollcall/internal/identity/models"
	sessionmodels "rollcall/internal/session/models"
	id "rollcall/pkg/domain"
)

var update = flag.Bool("update", false, "rewrite golden files")

func pid(suffix string) id.PrincipalID {
	return id.PrincipalID(uuid.MustParse("00000000-0000-4000-8000-0000000000" + suffix))
}

func sessions(n int) []*sessionmodels.Session {
	out := make([]*sessionmodels.Session, n)
	for i := range out {
		out[i] = &sessionmodels.Session{ID: id.NewSessionID(), Status: sessionmodels.StatusClosed}
	}
	return out
}

func attend(session *sessionmodels.Session, principal id.PrincipalID) *attendancemodels.Record {
	return &attendancemodels.Record{ID: id.NewRecordID(), SessionID: session.ID, PrincipalID: principal, RecordedAt: time.Now()}
}

func member(principal id.PrincipalID, name string) *identitymodels.Member {
	return &identitymodels.Member{Principal: id.Principal{ID: principal, Name: name, Role: id.RoleStudent}}
}

func TestCompute_Golden(t *testing.T) {
	s := sessions(4)
	alice, bob, carol, dave := pid("0a"), pid("0b"), pid("0c"), pid("0d")
	in := Input{
		Sessions: s,
		Records: []*attendancemodels.Record{
			attend(s[0], alice), attend(s[1], alice), attend(s[2], alice),
			attend(s[0], bob),
			attend(s[3], dave),
			// outside the caller's sessions
			attend(&sessionmodels.Session{ID: id.NewSessionID()}, carol),
		},
		Roster: []*identitymodels.Member{member(alice, "alice"), member(bob, "bob"), member(carol, "carol")},
	}

	got, err := json.MarshalIndent(Compute(in, DefaultThresholds()), "", "  ")
	require.NoError(t, err)

	golden := filepath.Join("testdata", "snapshot.golden.json")
	if *update {
		require.NoError(t, os.WriteFile(golden, got, 0o600))
	}
	want, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))
}

func TestCompute_Deterministic(t *testing.T) {
	s := sessions(3)
	in := Input{Sessions: s}
	for i := 0; i < 20; i++ {
		p := id.PrincipalID(uuid.New())
		in.Roster = append(in.Roster, member(p, "student"))
		if i%2 == 0 {
			in.Records = append(in.Records, attend(s[0], p))
		}
	}
	first := Compute(in, DefaultThresholds())
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Compute(in, DefaultThresholds()))
	}
}

func TestCompute_NoSessions(t *testing.T) {
	snap := Compute(Input{Roster: []*identitymodels.Member{member(pid("01"), "ada")}}, DefaultThresholds())

	assert.Equal(t, 0, snap.TotalSessions)
	assert.Equal(t, 0.0, snap.AverageAttendancePerSession)
	assert.Empty(t, snap.LowAttendance, "no sessions means nobody is flagged")
	assert.Equal(t, 1, snap.TotalStudents)
	require.Len(t, snap.Insights, 3)
	assert.Equal(t, InsightSuccess, snap.Insights[2].Type)
}

func TestCompute_TotalStudentsCountsRosterOnly(t *testing.T) {
	s := sessions(2)
	listed, walkIn := pid("01"), pid("02")
	in := Input{
		Sessions: s,
		Records:  []*attendancemodels.Record{attend(s[0], listed), attend(s[0], walkIn), attend(s[1], walkIn)},
		Roster:   []*identitymodels.Member{member(listed, "ada")},
	}
	snap := Compute(in, DefaultThresholds())

	assert.Equal(t, 1, snap.TotalStudents)
	assert.Equal(t, 2, snap.StudentStats[walkIn.String()], "off-roster attendees keep their counts")
	require.Len(t, snap.LowAttendance, 1)
	assert.Equal(t, listed, snap.LowAttendance[0].PrincipalID)
}

func TestCompute_LowAttendanceIsStrict(t *testing.T) {
	s := sessions(4)
	exact, below := pid("01"), pid("02")
	in := Input{
		Sessions: s,
		Records: []*attendancemodels.Record{
			attend(s[0], exact), attend(s[1], exact), attend(s[2], exact),
			attend(s[0], below), attend(s[1], below),
		},
	}
	snap := Compute(in, DefaultThresholds())

	require.Len(t, snap.LowAttendance, 1, "3/4 = 0.75 is not below 0.75")
	assert.Equal(t, below, snap.LowAttendance[0].PrincipalID)
	assert.Equal(t, 50.0, snap.LowAttendance[0].Percentage)
}

func TestCompute_Percentages(t *testing.T) {
	s := sessions(3)
	p := pid("01")
	snap := Compute(Input{Sessions: s, Records: []*attendancemodels.Record{attend(s[0], p)}}, DefaultThresholds())

	require.Len(t, snap.LowAttendance, 1)
	assert.Equal(t, 33.33, snap.LowAttendance[0].Percentage)
}

func TestInsights_AverageBands(t *testing.T) {
	s := sessions(10)
	full := func(n int) Input {
		in := Input{Sessions: s}
		p := pid("01")
		for i := 0; i < n; i++ {
			in.Records = append(in.Records, attend(s[i], p))
		}
		return in
	}
	cases := []struct {
		attended int
		want     Insight
	}{
		{9, Insight{Type: InsightSuccess, Message: "Average attendance is 90%, at or above 90%"}},
		{8, Insight{Type: InsightInfo, Message: "Average attendance is 80%"}},
		{7, Insight{Type: InsightWarning, Message: "Average attendance is 70%, below the 75% target"}},
	}
	for _, tc := range cases {
		snap := Compute(full(tc.attended), DefaultThresholds())
		require.Len(t, snap.Insights, 4)
		assert.Equal(t, tc.want, snap.Insights[3])
	}
}

func TestInsights_CustomThreshold(t *testing.T) {
	th := DefaultThresholds()
	th.LowAttendance = 0.8
	snap := Compute(Input{}, th)
	assert.Equal(t, "All students have good attendance (>=80%)", snap.Insights[2].Message)
}
