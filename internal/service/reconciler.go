package service

import (
	"encoding/json"
	"time"

	"github.com/schoolpulse/insights-api/internal/models"
)

// groupCountMap indexes grouped COUNT rows by their group key.
func groupCountMap(rows []models.GroupCount) map[string]int {
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Key] = row.Count
	}
	return out
}

// expectedCounts carries the per-class assigned totals behind count-based
// denominators. Assessments can target the whole school or one class;
// activity assignments always target one class.
type expectedCounts struct {
	schoolWideAssessments int
	assessmentsByClass    map[string]int
	assignmentsByClass    map[string]int
}

func (e expectedCounts) assessmentsFor(classID *string) int {
	total := e.schoolWideAssessments
	if classID != nil {
		total += e.assessmentsByClass[*classID]
	}
	return total
}

func (e expectedCounts) activitiesFor(classID *string) int {
	if classID == nil {
		return 0
	}
	return e.assignmentsByClass[*classID]
}

// parseClassIDs decodes a registration's stored class-id scope. Null, empty
// and undecodable payloads all read as school-wide, matching how historical
// rows were written.
func parseClassIDs(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil
	}
	return ids
}

// webinarInviteStat is one webinar with its reconciled invite numbers.
type webinarInviteStat struct {
	WebinarID   string
	Title       string
	ScheduledAt time.Time
	SchoolWide  bool
	Invited     int
	Attended    int
}

// webinarInvites holds the reconciled invite sets for one school, built once
// per request from roster and attendance snapshots. perStudent and perClass
// count invited webinars per student and per class respectively.
type webinarInvites struct {
	stats      []webinarInviteStat
	perStudent map[string]int
	perClass   map[string]int
}

// buildWebinarInvites reconciles each webinar's invited set as the union of
// currently assigned students and historical attendees. A student who moved
// classes after attending therefore stays invited, keeping attended within
// invited at every granularity.
func buildWebinarInvites(regs []models.RegistrationRow, pairs []models.StudentClassPair, attendance []models.AttendancePair) webinarInvites {
	allStudents := make([]string, 0, len(pairs))
	byClass := make(map[string][]string)
	classOf := make(map[string]*string, len(pairs))
	for i := range pairs {
		p := pairs[i]
		allStudents = append(allStudents, p.StudentID)
		classOf[p.StudentID] = p.ClassID
		if p.ClassID != nil {
			byClass[*p.ClassID] = append(byClass[*p.ClassID], p.StudentID)
		}
	}

	attendedBy := make(map[string][]string)
	for _, a := range attendance {
		if a.Attended {
			attendedBy[a.WebinarID] = append(attendedBy[a.WebinarID], a.StudentID)
		}
	}

	// A webinar may carry several registration rows; merge their scopes while
	// preserving first-seen order.
	order := make([]string, 0, len(regs))
	metas := make(map[string]webinarInviteStat, len(regs))
	classScope := make(map[string]map[string]struct{})
	schoolWide := make(map[string]bool)
	for _, reg := range regs {
		if _, seen := metas[reg.WebinarID]; !seen {
			order = append(order, reg.WebinarID)
			metas[reg.WebinarID] = webinarInviteStat{
				WebinarID:   reg.WebinarID,
				Title:       reg.Title,
				ScheduledAt: reg.ScheduledAt,
			}
			classScope[reg.WebinarID] = make(map[string]struct{})
		}
		ids := parseClassIDs(reg.ClassIDs)
		if len(ids) == 0 {
			schoolWide[reg.WebinarID] = true
			continue
		}
		for _, id := range ids {
			classScope[reg.WebinarID][id] = struct{}{}
		}
	}

	out := webinarInvites{
		stats:      make([]webinarInviteStat, 0, len(order)),
		perStudent: make(map[string]int),
		perClass:   make(map[string]int),
	}

	addInvite := func(invited map[string]struct{}, studentID string) {
		if _, dup := invited[studentID]; dup {
			return
		}
		invited[studentID] = struct{}{}
		out.perStudent[studentID]++
		if classID := classOf[studentID]; classID != nil {
			out.perClass[*classID]++
		}
	}

	for _, webinarID := range order {
		invited := make(map[string]struct{})
		if schoolWide[webinarID] {
			for _, id := range allStudents {
				addInvite(invited, id)
			}
		} else {
			for classID := range classScope[webinarID] {
				for _, id := range byClass[classID] {
					addInvite(invited, id)
				}
			}
		}
		for _, id := range attendedBy[webinarID] {
			addInvite(invited, id)
		}

		stat := metas[webinarID]
		stat.SchoolWide = schoolWide[webinarID]
		stat.Invited = len(invited)
		stat.Attended = len(attendedBy[webinarID])
		out.stats = append(out.stats, stat)
	}

	// Attendance can reference webinars that were never registered for this
	// school. They do not surface in the report list, but their attendees must
	// still count as invited or per-student rates would exceed 100%.
	for webinarID, attendees := range attendedBy {
		if _, registered := metas[webinarID]; registered {
			continue
		}
		invited := make(map[string]struct{})
		for _, id := range attendees {
			addInvite(invited, id)
		}
	}

	return out
}

// studentInvitedWebinars counts the webinars one student was invited to:
// school-wide registrations, registrations scoping their current class, and
// any webinar they attended regardless of current scope.
func studentInvitedWebinars(regs []models.RegistrationRow, classID *string, attended map[string]struct{}) int {
	invited := make(map[string]struct{})
	for _, reg := range regs {
		ids := parseClassIDs(reg.ClassIDs)
		if len(ids) == 0 {
			invited[reg.WebinarID] = struct{}{}
			continue
		}
		if classID == nil {
			continue
		}
		for _, id := range ids {
			if id == *classID {
				invited[reg.WebinarID] = struct{}{}
				break
			}
		}
	}
	for webinarID := range attended {
		invited[webinarID] = struct{}{}
	}
	return len(invited)
}
