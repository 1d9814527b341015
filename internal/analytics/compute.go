// Package analytics derives attendance statistics and insights. Snapshots are
// computed per request and never stored.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	attendancemodels "rollcall/internal/attendance/models"
	identitymodels "rollcall/internal/identity/models"
	sessionmodels "rollcall/internal/session/models"
	id "rollcall/pkg/domain"
)

// Thresholds tune what counts as low attendance and how the average is judged.
type Thresholds struct {
	// LowAttendance flags a student whose rate is strictly below it.
	LowAttendance float64
	// LowAverage and HighAverage bound the "average" insight.
	LowAverage  float64
	HighAverage float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{LowAttendance: 0.75, LowAverage: 0.75, HighAverage: 0.9}
}

type InsightType string

const (
	InsightInfo    InsightType = "info"
	InsightWarning InsightType = "warning"
	InsightSuccess InsightType = "success"
)

type Insight struct {
	Type    InsightType `json:"type"`
	Message string      `json:"message"`
}

type StudentStat struct {
	PrincipalID id.PrincipalID `json:"student_id"`
	Name        string         `json:"name"`
	Attended    int            `json:"attendance"`
	Percentage  float64        `json:"percentage"`
}

// Input is everything in the caller's scope. Records whose session is not in
// Sessions are ignored.
type Input struct {
	Sessions []*sessionmodels.Session
	Records  []*attendancemodels.Record
	Roster   []*identitymodels.Member
}

type Snapshot struct {
	TotalSessions               int            `json:"total_sessions"`
	TotalAttendance             int            `json:"total_attendance"`
	AverageAttendancePerSession float64        `json:"average_attendance_per_session"`
	TotalStudents               int            `json:"total_students"`
	AverageAttendanceRate       float64        `json:"average_attendance_rate"`
	LowAttendance               []StudentStat  `json:"low_attendance_students"`
	StudentStats                map[string]int `json:"student_stats"`
	Insights                    []Insight      `json:"insights"`
}

// Compute is a pure function of its input: the same sessions, records and
// roster always produce the same snapshot.
func Compute(in Input, th Thresholds) Snapshot {
	inScope := make(map[id.SessionID]struct{}, len(in.Sessions))
	for _, s := range in.Sessions {
		inScope[s.ID] = struct{}{}
	}

	attended := make(map[id.PrincipalID]int)
	totalAttendance := 0
	for _, r := range in.Records {
		if _, ok := inScope[r.SessionID]; !ok {
			continue
		}
		attended[r.PrincipalID]++
		totalAttendance++
	}

	names := make(map[id.PrincipalID]string, len(in.Roster))
	for _, m := range in.Roster {
		names[m.ID] = m.Name
	}
	rosterSize := len(names)
	// Students who attended but are missing from the roster still get stats;
	// total_students counts the roster only.
	for pid := range attended {
		if _, ok := names[pid]; !ok {
			names[pid] = ""
		}
	}

	totalSessions := len(in.Sessions)
	snap := Snapshot{
		TotalSessions:   totalSessions,
		TotalAttendance: totalAttendance,
		TotalStudents:   rosterSize,
		LowAttendance:   make([]StudentStat, 0),
		StudentStats:    make(map[string]int, len(names)),
	}
	if totalSessions > 0 {
		snap.AverageAttendancePerSession = float64(totalAttendance) / float64(totalSessions)
	}

	attendedSum := 0
	for pid, name := range names {
		count := attended[pid]
		snap.StudentStats[pid.String()] = count
		if totalSessions == 0 {
			continue
		}
		attendedSum += count
		rate := float64(count) / float64(totalSessions)
		if rate < th.LowAttendance {
			snap.LowAttendance = append(snap.LowAttendance, StudentStat{
				PrincipalID: pid,
				Name:        name,
				Attended:    count,
				Percentage:  round2(rate * 100),
			})
		}
	}
	if totalSessions > 0 && len(names) > 0 {
		snap.AverageAttendanceRate = float64(attendedSum) / float64(totalSessions*len(names))
	}
	sort.Slice(snap.LowAttendance, func(i, j int) bool {
		a, b := snap.LowAttendance[i], snap.LowAttendance[j]
		if a.Attended != b.Attended {
			return a.Attended < b.Attended
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.PrincipalID.String() < b.PrincipalID.String()
	})

	snap.Insights = insights(snap, th)
	return snap
}

func insights(snap Snapshot, th Thresholds) []Insight {
	out := []Insight{
		{Type: InsightInfo, Message: fmt.Sprintf("Total sessions conducted: %d", snap.TotalSessions)},
		{Type: InsightInfo, Message: fmt.Sprintf("Total attendance records: %d", snap.TotalAttendance)},
	}

	cutoff := percent(th.LowAttendance)
	if n := len(snap.LowAttendance); n > 0 {
		out = append(out, Insight{Type: InsightWarning, Message: fmt.Sprintf("%d students have attendance below %s%%", n, cutoff)})
	} else {
		out = append(out, Insight{Type: InsightSuccess, Message: fmt.Sprintf("All students have good attendance (>=%s%%)", cutoff)})
	}

	if snap.TotalSessions == 0 || len(snap.StudentStats) == 0 {
		return out
	}
	avg := percent(snap.AverageAttendanceRate)
	switch {
	case snap.AverageAttendanceRate < th.LowAverage:
		out = append(out, Insight{Type: InsightWarning, Message: fmt.Sprintf("Average attendance is %s%%, below the %s%% target", avg, percent(th.LowAverage))})
	case snap.AverageAttendanceRate >= th.HighAverage:
		out = append(out, Insight{Type: InsightSuccess, Message: fmt.Sprintf("Average attendance is %s%%, at or above %s%%", avg, percent(th.HighAverage))})
	default:
		out = append(out, Insight{Type: InsightInfo, Message: fmt.Sprintf("Average attendance is %s%%", avg)})
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// percent renders a ratio as a percentage with at most two decimals.
func percent(ratio float64) string {
	return strconv.FormatFloat(round2(ratio*100), 'f', -1, 64)
}
