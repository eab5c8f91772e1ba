package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-scheduling-api/internal/dto"
	"github.com/noah-isme/course-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/course-scheduling-api/pkg/errors"
)

func TestLetterForBands(t *testing.T) {
	cases := []struct {
		score  float64
		letter string
		points float64
	}{
		{100, "A+", 5.0},
		{95, "A+", 5.0},
		{94.99, "A", 4.75},
		{90, "A", 4.75},
		{85, "B+", 4.5},
		{80, "B", 4.0},
		{75, "C+", 3.5},
		{70, "C", 3.0},
		{65, "D+", 2.5},
		{60, "D", 2.0},
		{59.9, "F", 0},
		{0, "F", 0},
	}
	for _, tc := range cases {
		letter, points := LetterFor(tc.score)
		assert.Equal(t, tc.letter, letter, "score %v", tc.score)
		assert.Equal(t, tc.points, points, "score %v", tc.score)
	}
}

func TestComputeGPAExcludesPlaceholders(t *testing.T) {
	entries := []models.TranscriptEntry{
		{Credits: 3, Points: ptrFloat(4.75), LetterGrade: "A"},
		{Credits: 4, LetterGrade: models.LetterPlaceholder, IsPlaceholder: true},
	}

	summary := ComputeGPA("stu", "s1", entries)
	assert.Equal(t, 4.75, summary.GPA)
	assert.Equal(t, 3, summary.Credits)
	assert.Equal(t, 1, summary.Graded)
	assert.Equal(t, 1, summary.Placeholders)
}

func TestComputeGPAWeightsByCredits(t *testing.T) {
	entries := []models.TranscriptEntry{
		{Credits: 3, Points: ptrFloat(4.0)},
		{Credits: 1, Points: ptrFloat(2.0)},
		{Credits: 2, Points: ptrFloat(3.5)},
	}

	summary := ComputeGPA("stu", "", entries)
	// (12 + 2 + 7) / 6 = 3.5
	assert.Equal(t, 3.5, summary.GPA)

	assert.Zero(t, ComputeGPA("stu", "", nil).GPA)
}

func newGradeFixture() (*memStore, *GradeService) {
	store := newMemStore()
	store.addUser("stu", models.RoleStudent)
	store.addUser("ins", models.RoleInstructor)
	store.addCourse("c1", 3)
	store.addCourse("c2", 4)
	store.addSemester("s1", time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC))
	store.addSection("sec-1", "c1", "ins", "s1", 0)
	store.addSection("sec-2", "c2", "ins", "s1", 0)
	store.enroll("asg-1", "stu", "sec-1")
	store.enroll("asg-2", "stu", "sec-2")

	svc := NewGradeService(assignmentView{store}, sectionView{store}, semesterView{store}, userView{store}, gradeView{store}, nil, nil)
	return store, svc
}

func TestSaveGradeDerivesLetterAndOverwrites(t *testing.T) {
	store, svc := newGradeFixture()
	ctx := context.Background()

	grade, err := svc.SaveGrade(ctx, "asg-1", dto.SaveGradeRequest{NumericGrade: ptrFloat(91)})
	require.NoError(t, err)
	assert.Equal(t, "A", grade.LetterGrade)
	assert.Equal(t, 4.75, *grade.Points)
	assert.Equal(t, "2025/2026", grade.AcademicYear)

	_, err = svc.SaveGrade(ctx, "asg-1", dto.SaveGradeRequest{NumericGrade: ptrFloat(72)})
	require.NoError(t, err)
	assert.Equal(t, "C", store.grades["asg-1"].LetterGrade)
	assert.Len(t, store.grades, 1)
}

func TestSaveGradeRejections(t *testing.T) {
	_, svc := newGradeFixture()
	ctx := context.Background()

	_, err := svc.SaveGrade(ctx, "asg-1", dto.SaveGradeRequest{NumericGrade: ptrFloat(101)})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = svc.SaveGrade(ctx, "asg-1", dto.SaveGradeRequest{})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = svc.SaveGrade(ctx, "ghost", dto.SaveGradeRequest{NumericGrade: ptrFloat(50)})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
}

func TestSaveGradeChecksInstructorTeachesSection(t *testing.T) {
	store, svc := newGradeFixture()
	store.addUser("ins-2", models.RoleInstructor)
	ctx := context.Background()
	score := ptrFloat(84)

	_, err := svc.SaveGrade(ctx, "asg-1", dto.SaveGradeRequest{NumericGrade: score, GradedBy: "ins-2", GraderRole: models.RoleInstructor})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden.Code))
	assert.Empty(t, store.grades)

	grade, err := svc.SaveGrade(ctx, "asg-1", dto.SaveGradeRequest{NumericGrade: score, GradedBy: "ins", GraderRole: models.RoleInstructor})
	require.NoError(t, err)
	assert.Equal(t, "B", grade.LetterGrade)

	_, err = svc.SaveGrade(ctx, "asg-2", dto.SaveGradeRequest{NumericGrade: score, GradedBy: "com-1", GraderRole: models.RoleCommittee})
	require.NoError(t, err)
	assert.Len(t, store.grades, 2)
}

func TestStudentGPAWithPlaceholder(t *testing.T) {
	store, svc := newGradeFixture()
	store.grade("asg-1", ptrFloat(92), "A", false)
	store.grade("asg-2", nil, models.LetterPlaceholder, true)

	summary, err := svc.StudentGPA(context.Background(), "stu", "s1")
	require.NoError(t, err)
	assert.Equal(t, 4.75, summary.GPA)
	assert.Equal(t, 3, summary.Credits)
	assert.Equal(t, 1, summary.Placeholders)

	entries, err := svc.Transcript(context.Background(), "stu")
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, err = svc.StudentGPA(context.Background(), "ins", "")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrWrongRole.Code))
}
