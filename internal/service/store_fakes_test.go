package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/course-scheduling-api/internal/models"
	"github.com/noah-isme/course-scheduling-api/internal/repository"
	"github.com/noah-isme/course-scheduling-api/pkg/database"
)

// memStore is an in-memory stand-in for the scheduling tables. Each view
// type below exposes the subset one repository interface needs.
type memStore struct {
	mu          sync.Mutex
	seq         int
	users       map[string]*models.User
	courses     map[string]*models.Course
	semesters   map[string]*models.Semester
	sections    map[string]*models.Section
	meetings    map[string][]models.SectionMeeting
	assignments map[string]*models.Assignment
	grades      map[string]*models.Grade
	gradeWrites int
	failGrades  error
}

func newMemStore() *memStore {
	return &memStore{
		users:       map[string]*models.User{},
		courses:     map[string]*models.Course{},
		semesters:   map[string]*models.Semester{},
		sections:    map[string]*models.Section{},
		meetings:    map[string][]models.SectionMeeting{},
		assignments: map[string]*models.Assignment{},
		grades:      map[string]*models.Grade{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%03d", prefix, m.seq)
}

func (m *memStore) addUser(id string, role models.UserRole) {
	m.users[id] = &models.User{ID: id, Role: role, FullName: id, Active: true}
}

func (m *memStore) addCourse(id string, credits int) {
	m.courses[id] = &models.Course{ID: id, Code: "C" + id, Name: "Course " + id, Credits: credits}
}

func (m *memStore) addSemester(id string, start, end time.Time) *models.Semester {
	s := &models.Semester{ID: id, Name: "Semester " + id, AcademicYear: "2025/2026", StartDate: start, EndDate: end}
	m.semesters[id] = s
	return s
}

// addSection stores a section whose meetings are given as day/start/end triples.
func (m *memStore) addSection(id, courseID, instructorID, semesterID string, capacity int, meetings ...[3]string) {
	m.sections[id] = &models.Section{ID: id, CourseID: courseID, InstructorID: instructorID, SemesterID: semesterID, Capacity: capacity}
	for _, mt := range meetings {
		m.meetings[id] = append(m.meetings[id], models.SectionMeeting{
			ID: m.nextID("mt"), SectionID: id, DayOfWeek: mt[0], StartTime: mt[1], EndTime: mt[2],
		})
	}
}

func (m *memStore) enroll(id, studentID, sectionID string) {
	sec := m.sections[sectionID]
	m.assignments[id] = &models.Assignment{ID: id, StudentID: studentID, SectionID: sectionID, CourseID: sec.CourseID, SemesterID: sec.SemesterID}
}

func (m *memStore) grade(assignmentID string, numeric *float64, letter string, placeholder bool) {
	a := m.assignments[assignmentID]
	g := &models.Grade{ID: "g-" + assignmentID, AssignmentID: assignmentID, SemesterID: a.SemesterID, NumericGrade: numeric, LetterGrade: letter, IsPlaceholder: placeholder}
	if numeric != nil {
		_, pts := LetterFor(*numeric)
		g.Points = &pts
	}
	m.grades[assignmentID] = g
}

func (m *memStore) countFor(sectionID string) int {
	n := 0
	for _, a := range m.assignments {
		if a.SectionID == sectionID {
			n++
		}
	}
	return n
}

type userView struct{ *memStore }

func (v userView) FindByID(ctx context.Context, id string) (*models.User, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if u, ok := v.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (v userView) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.User, error) {
	return v.FindByID(ctx, id)
}

type courseView struct{ *memStore }

func (v courseView) FindByID(ctx context.Context, id string) (*models.Course, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if c, ok := v.courses[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type semesterView struct{ *memStore }

func (v semesterView) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if s, ok := v.semesters[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (v semesterView) MarkClosed(ctx context.Context, id string, at time.Time) (time.Time, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	s, ok := v.semesters[id]
	if !ok {
		return time.Time{}, sql.ErrNoRows
	}
	if s.ClosedAt == nil {
		s.ClosedAt = &at
	}
	return *s.ClosedAt, nil
}

type sectionView struct{ *memStore }

func (v sectionView) FindDetail(ctx context.Context, id string) (*models.SectionDetail, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	sec, ok := v.sections[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	detail := &models.SectionDetail{Section: *sec, Enrolled: v.countFor(id)}
	if c, ok := v.courses[sec.CourseID]; ok {
		detail.CourseCode, detail.CourseName, detail.Credits = c.Code, c.Name, c.Credits
	}
	detail.Meetings = append([]models.SectionMeeting(nil), v.meetings[id]...)
	return detail, nil
}

func (v sectionView) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Section, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if sec, ok := v.sections[id]; ok {
		cp := *sec
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (v sectionView) CountAssignments(ctx context.Context, exec sqlx.ExtContext, sectionID string) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.countFor(sectionID), nil
}

func (v sectionView) Create(ctx context.Context, exec sqlx.ExtContext, section *models.Section) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if section.ID == "" {
		section.ID = v.nextID("sec")
	}
	cp := *section
	v.sections[section.ID] = &cp
	return nil
}

func (v sectionView) UpdateInstructor(ctx context.Context, exec sqlx.ExtContext, sectionID, instructorID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	sec, ok := v.sections[sectionID]
	if !ok {
		return sql.ErrNoRows
	}
	sec.InstructorID = instructorID
	return nil
}

func (v sectionView) ReplaceMeetings(ctx context.Context, exec sqlx.ExtContext, sectionID string, meetings []models.SectionMeeting) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	stored := make([]models.SectionMeeting, 0, len(meetings))
	for _, mt := range meetings {
		mt.ID = v.nextID("mt")
		mt.SectionID = sectionID
		stored = append(stored, mt)
	}
	v.meetings[sectionID] = stored
	return nil
}

func (v sectionView) Delete(ctx context.Context, id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.sections[id]; !ok {
		return sql.ErrNoRows
	}
	if v.countFor(id) > 0 {
		return repository.ErrSectionInUse
	}
	delete(v.sections, id)
	delete(v.meetings, id)
	return nil
}

type assignmentView struct{ *memStore }

func (v assignmentView) Exists(ctx context.Context, exec sqlx.ExtContext, studentID, sectionID string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, a := range v.assignments {
		if a.StudentID == studentID && a.SectionID == sectionID {
			return true, nil
		}
	}
	return false, nil
}

func (v assignmentView) Create(ctx context.Context, exec sqlx.ExtContext, assignment *models.Assignment) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, a := range v.assignments {
		if a.StudentID == assignment.StudentID && a.SectionID == assignment.SectionID {
			return repository.ErrDuplicateAssignment
		}
	}
	if assignment.ID == "" {
		assignment.ID = v.nextID("asg")
	}
	cp := *assignment
	v.assignments[assignment.ID] = &cp
	return nil
}

func (v assignmentView) Delete(ctx context.Context, exec sqlx.ExtContext, studentID, sectionID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for id, a := range v.assignments {
		if a.StudentID == studentID && a.SectionID == sectionID {
			delete(v.assignments, id)
			delete(v.grades, id)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (v assignmentView) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if a, ok := v.assignments[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (v assignmentView) ListForFinalize(ctx context.Context, semesterID, afterID string, limit int) ([]models.FinalizeCandidate, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	ids := make([]string, 0, len(v.assignments))
	for id, a := range v.assignments {
		if a.SemesterID == semesterID && id > afterID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]models.FinalizeCandidate, 0, len(ids))
	for _, id := range ids {
		a := v.assignments[id]
		c := models.FinalizeCandidate{AssignmentID: id, StudentID: a.StudentID, SemesterID: a.SemesterID}
		if sem, ok := v.semesters[a.SemesterID]; ok {
			c.AcademicYear = sem.AcademicYear
		}
		if g, ok := v.grades[id]; ok {
			gid, letter, placeholder := g.ID, g.LetterGrade, g.IsPlaceholder
			c.GradeID, c.LetterGrade, c.IsPlaceholder = &gid, &letter, &placeholder
			c.NumericGrade = g.NumericGrade
		}
		out = append(out, c)
	}
	return out, nil
}

type gradeView struct{ *memStore }

func (v gradeView) Upsert(ctx context.Context, exec sqlx.ExtContext, grade *models.Grade) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.failGrades != nil {
		return v.failGrades
	}
	if existing, ok := v.grades[grade.AssignmentID]; ok {
		grade.ID = existing.ID
	} else if grade.ID == "" {
		grade.ID = "g-" + grade.AssignmentID
	}
	cp := *grade
	v.grades[grade.AssignmentID] = &cp
	v.gradeWrites++
	return nil
}

func (v gradeView) InsertPlaceholder(ctx context.Context, exec sqlx.ExtContext, grade *models.Grade) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.failGrades != nil {
		return false, v.failGrades
	}
	if _, ok := v.grades[grade.AssignmentID]; ok {
		return false, nil
	}
	v.grades[grade.AssignmentID] = &models.Grade{
		ID: "g-" + grade.AssignmentID, AssignmentID: grade.AssignmentID, SemesterID: grade.SemesterID,
		AcademicYear: grade.AcademicYear, LetterGrade: models.LetterPlaceholder, IsPlaceholder: true,
	}
	v.gradeWrites++
	return true, nil
}

func (v gradeView) ApplyScale(ctx context.Context, exec sqlx.ExtContext, gradeID, letter string, points *float64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.failGrades != nil {
		return v.failGrades
	}
	for _, g := range v.grades {
		if g.ID == gradeID && g.NumericGrade != nil {
			g.LetterGrade, g.Points, g.IsPlaceholder = letter, points, false
			v.gradeWrites++
			return nil
		}
	}
	return nil
}

func (v gradeView) entries(match func(*models.Assignment) bool) []models.TranscriptEntry {
	ids := make([]string, 0)
	for id, a := range v.assignments {
		if _, graded := v.grades[id]; graded && match(a) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	out := make([]models.TranscriptEntry, 0, len(ids))
	for _, id := range ids {
		a, g := v.assignments[id], v.grades[id]
		e := models.TranscriptEntry{
			AssignmentID: id, StudentID: a.StudentID, SemesterID: a.SemesterID, CourseID: a.CourseID,
			NumericGrade: g.NumericGrade, LetterGrade: g.LetterGrade, Points: g.Points, IsPlaceholder: g.IsPlaceholder,
		}
		if c, ok := v.courses[a.CourseID]; ok {
			e.CourseCode, e.CourseName, e.Credits = c.Code, c.Name, c.Credits
		}
		out = append(out, e)
	}
	return out
}

func (v gradeView) ListByStudent(ctx context.Context, studentID, semesterID string) ([]models.TranscriptEntry, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.entries(func(a *models.Assignment) bool {
		return a.StudentID == studentID && (semesterID == "" || a.SemesterID == semesterID)
	}), nil
}

func (v gradeView) ListBySemester(ctx context.Context, semesterID string) ([]models.TranscriptEntry, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.entries(func(a *models.Assignment) bool { return a.SemesterID == semesterID }), nil
}

type commitmentView struct{ *memStore }

func (v commitmentView) ForParty(ctx context.Context, exec sqlx.ExtContext, party models.Party, filter repository.CommitmentFilter) ([]models.Commitment, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	sectionIDs := make([]string, 0)
	switch party.Kind {
	case models.PartyStudent:
		for _, a := range v.assignments {
			if a.StudentID == party.ID {
				sectionIDs = append(sectionIDs, a.SectionID)
			}
		}
	case models.PartyInstructor:
		for id, s := range v.sections {
			if s.InstructorID == party.ID {
				sectionIDs = append(sectionIDs, id)
			}
		}
	}
	sort.Strings(sectionIDs)
	out := make([]models.Commitment, 0)
	for _, id := range sectionIDs {
		sec := v.sections[id]
		if filter.SemesterID != "" && sec.SemesterID != filter.SemesterID {
			continue
		}
		if filter.ExcludeSectionID != "" && id == filter.ExcludeSectionID {
			continue
		}
		course := v.courses[sec.CourseID]
		for _, mt := range v.meetings[id] {
			c := models.Commitment{
				SectionID: id, CourseID: sec.CourseID, SemesterID: sec.SemesterID, Room: sec.Room,
				DayOfWeek: mt.DayOfWeek, StartTime: mt.StartTime, EndTime: mt.EndTime,
			}
			if course != nil {
				c.CourseCode, c.CourseName = course.Code, course.Name
			}
			out = append(out, c)
		}
	}
	return out, nil
}

// serialTx runs one unit of work at a time, which is what the row locks
// taken inside the gate transactions guarantee against Postgres.
type serialTx struct {
	mu    sync.Mutex
	calls int
}

func (t *serialTx) RunInTx(ctx context.Context, fn database.TxFunc) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	return fn(nil)
}

func ptrFloat(v float64) *float64 { return &v }

func ptrString(v string) *string { return &v }
