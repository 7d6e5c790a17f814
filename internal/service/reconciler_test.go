package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolpulse/insights-api/internal/models"
)

func strPtr(s string) *string {
	return &s
}

func floatPtr(v float64) *float64 {
	return &v
}

func riskPtr(level models.RiskLevel) *models.RiskLevel {
	return &level
}

func TestGroupCountMap(t *testing.T) {
	rows := []models.GroupCount{{Key: "class-1", Count: 4}, {Key: "class-2", Count: 9}}
	out := groupCountMap(rows)
	assert.Equal(t, map[string]int{"class-1": 4, "class-2": 9}, out)
	assert.Empty(t, groupCountMap(nil))
}

func TestExpectedCountsScopes(t *testing.T) {
	expected := expectedCounts{
		schoolWideAssessments: 2,
		assessmentsByClass:    map[string]int{"class-1": 3},
		assignmentsByClass:    map[string]int{"class-1": 5},
	}

	assert.Equal(t, 2, expected.assessmentsFor(nil))
	assert.Equal(t, 5, expected.assessmentsFor(strPtr("class-1")))
	assert.Equal(t, 2, expected.assessmentsFor(strPtr("class-9")))

	assert.Equal(t, 0, expected.activitiesFor(nil))
	assert.Equal(t, 5, expected.activitiesFor(strPtr("class-1")))
	assert.Equal(t, 0, expected.activitiesFor(strPtr("class-9")))
}

func TestParseClassIDs(t *testing.T) {
	assert.Nil(t, parseClassIDs(nil))
	assert.Nil(t, parseClassIDs([]byte("null")))
	assert.Nil(t, parseClassIDs([]byte("{not json")))
	assert.Empty(t, parseClassIDs([]byte("[]")))
	assert.Equal(t, []string{"class-1", "class-2"}, parseClassIDs([]byte(`["class-1","class-2"]`)))
}

func TestBuildWebinarInvitesMovedStudentStaysInvited(t *testing.T) {
	// Webinar scoped to class-a; the attendee has since moved to class-b. The
	// invited set is the union of the current roster and past attendees, so
	// attended can never exceed invited.
	scheduled := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	regs := []models.RegistrationRow{
		{RegistrationID: "reg-1", WebinarID: "web-1", Title: "Exam stress", ScheduledAt: scheduled, ClassIDs: []byte(`["class-a"]`)},
	}
	pairs := []models.StudentClassPair{
		{StudentID: "stu-1", ClassID: strPtr("class-b")},
		{StudentID: "stu-2", ClassID: strPtr("class-a")},
		{StudentID: "stu-3", ClassID: strPtr("class-a")},
	}
	attendance := []models.AttendancePair{
		{WebinarID: "web-1", StudentID: "stu-1", Attended: true},
	}

	invites := buildWebinarInvites(regs, pairs, attendance)

	require.Len(t, invites.stats, 1)
	stat := invites.stats[0]
	assert.Equal(t, "web-1", stat.WebinarID)
	assert.Equal(t, "Exam stress", stat.Title)
	assert.False(t, stat.SchoolWide)
	assert.Equal(t, 3, stat.Invited)
	assert.Equal(t, 1, stat.Attended)
	assert.LessOrEqual(t, stat.Attended, stat.Invited)

	assert.Equal(t, 1, invites.perStudent["stu-1"])
	assert.Equal(t, 1, invites.perStudent["stu-2"])
	assert.Equal(t, 1, invites.perStudent["stu-3"])
	assert.Equal(t, 2, invites.perClass["class-a"])
	assert.Equal(t, 1, invites.perClass["class-b"])
}

func TestBuildWebinarInvitesSchoolWideScope(t *testing.T) {
	regs := []models.RegistrationRow{
		{RegistrationID: "reg-1", WebinarID: "web-1", Title: "Mindfulness", ScheduledAt: time.Now(), ClassIDs: nil},
	}
	pairs := []models.StudentClassPair{
		{StudentID: "stu-1", ClassID: strPtr("class-a")},
		{StudentID: "stu-2", ClassID: strPtr("class-a")},
		{StudentID: "stu-3", ClassID: nil},
	}

	invites := buildWebinarInvites(regs, pairs, nil)

	require.Len(t, invites.stats, 1)
	assert.True(t, invites.stats[0].SchoolWide)
	assert.Equal(t, 3, invites.stats[0].Invited)
	assert.Equal(t, 0, invites.stats[0].Attended)
	assert.Equal(t, 2, invites.perClass["class-a"])
	assert.Equal(t, 1, invites.perStudent["stu-3"])
}

func TestBuildWebinarInvitesMergesDuplicateRegistrations(t *testing.T) {
	scheduled := time.Date(2026, 4, 2, 14, 0, 0, 0, time.UTC)
	regs := []models.RegistrationRow{
		{RegistrationID: "reg-1", WebinarID: "web-1", Title: "Study skills", ScheduledAt: scheduled, ClassIDs: []byte(`["class-a"]`)},
		{RegistrationID: "reg-2", WebinarID: "web-1", Title: "Study skills", ScheduledAt: scheduled, ClassIDs: []byte(`["class-b"]`)},
	}
	pairs := []models.StudentClassPair{
		{StudentID: "stu-1", ClassID: strPtr("class-a")},
		{StudentID: "stu-2", ClassID: strPtr("class-b")},
		{StudentID: "stu-3", ClassID: strPtr("class-c")},
	}

	invites := buildWebinarInvites(regs, pairs, nil)

	require.Len(t, invites.stats, 1)
	assert.Equal(t, 2, invites.stats[0].Invited)
	assert.False(t, invites.stats[0].SchoolWide)
	assert.Equal(t, 0, invites.perStudent["stu-3"])
}

func TestBuildWebinarInvitesUnregisteredAttendance(t *testing.T) {
	// Attendance may reference a webinar the school never registered. It stays
	// out of the report list but its attendees still count as invited, or their
	// personal attendance rates would exceed 100%.
	pairs := []models.StudentClassPair{
		{StudentID: "stu-1", ClassID: strPtr("class-a")},
	}
	attendance := []models.AttendancePair{
		{WebinarID: "web-ghost", StudentID: "stu-1", Attended: true},
	}

	invites := buildWebinarInvites(nil, pairs, attendance)

	assert.Empty(t, invites.stats)
	assert.Equal(t, 1, invites.perStudent["stu-1"])
	assert.Equal(t, 1, invites.perClass["class-a"])
}

func TestBuildWebinarInvitesIgnoresNonAttendedRows(t *testing.T) {
	regs := []models.RegistrationRow{
		{RegistrationID: "reg-1", WebinarID: "web-1", Title: "Sleep", ScheduledAt: time.Now(), ClassIDs: []byte(`[]`)},
	}
	pairs := []models.StudentClassPair{
		{StudentID: "stu-1", ClassID: strPtr("class-a")},
	}
	attendance := []models.AttendancePair{
		{WebinarID: "web-1", StudentID: "stu-1", Attended: false},
	}

	invites := buildWebinarInvites(regs, pairs, attendance)

	require.Len(t, invites.stats, 1)
	assert.Equal(t, 0, invites.stats[0].Attended)
	assert.Equal(t, 1, invites.stats[0].Invited)
}

func TestStudentInvitedWebinars(t *testing.T) {
	regs := []models.RegistrationRow{
		{WebinarID: "web-wide", ClassIDs: nil},
		{WebinarID: "web-mine", ClassIDs: []byte(`["class-a"]`)},
		{WebinarID: "web-other", ClassIDs: []byte(`["class-b"]`)},
	}
	attended := map[string]struct{}{
		"web-other": {},
		"web-extra": {},
	}

	// School-wide + own class + both attended ones; web-other is not double
	// counted.
	assert.Equal(t, 4, studentInvitedWebinars(regs, strPtr("class-a"), attended))

	// No class: only school-wide registrations and attended webinars apply.
	assert.Equal(t, 3, studentInvitedWebinars(regs, nil, attended))

	// No attendance at all.
	assert.Equal(t, 2, studentInvitedWebinars(regs, strPtr("class-a"), nil))
}
