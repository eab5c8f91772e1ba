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

func newSectionFixture() (*memStore, *SectionService, *serialTx) {
	store := newMemStore()
	store.addUser("ins", models.RoleInstructor)
	store.addUser("ins-2", models.RoleInstructor)
	store.addUser("stu", models.RoleStudent)
	store.addCourse("c1", 3)
	store.addCourse("c2", 3)
	store.addSemester("s1", time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC))
	store.addSection("busy", "c2", "ins-2", "s1", 0, [3]string{"Monday", "10:00", "10:50"})

	tx := &serialTx{}
	conflicts := NewConflictService(commitmentView{store}, sectionView{store}, userView{store}, nil, nil, nil, nil)
	svc := NewSectionService(sectionView{store}, courseView{store}, semesterView{store}, userView{store}, conflicts, nil, tx, nil, nil, nil)
	return store, svc, tx
}

func TestCreateSectionPersistsMeetings(t *testing.T) {
	store, svc, _ := newSectionFixture()

	detail, err := svc.CreateSection(context.Background(), dto.CreateSectionRequest{
		CourseID:     "c1",
		InstructorID: "ins",
		SemesterID:   "s1",
		Capacity:     30,
		Meetings: []dto.MeetingInput{
			{DayOfWeek: "sunday", StartTime: "08:00", EndTime: "08:50"},
			{DayOfWeek: "Tuesday", StartTime: "08:00", EndTime: "08:50"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "ins", detail.InstructorID)
	require.Len(t, detail.Meetings, 2)
	assert.Equal(t, "Sunday", detail.Meetings[0].DayOfWeek)
	assert.Len(t, store.meetings[detail.ID], 2)
}

func TestCreateSectionRejectsDuplicateMeetingsWithoutWriting(t *testing.T) {
	store, svc, tx := newSectionFixture()

	_, err := svc.CreateSection(context.Background(), dto.CreateSectionRequest{
		CourseID:     "c1",
		InstructorID: "ins",
		SemesterID:   "s1",
		Meetings: []dto.MeetingInput{
			{DayOfWeek: "Sunday", StartTime: "08:00", EndTime: "08:50"},
			{DayOfWeek: "Sunday", StartTime: "08:00", EndTime: "08:50"},
		},
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrDuplicateMeeting.Code))
	assert.Zero(t, tx.calls)
	assert.Len(t, store.sections, 1)
}

func TestCreateSectionRejectsInvalidSlotAndInstructorConflict(t *testing.T) {
	store, svc, _ := newSectionFixture()
	ctx := context.Background()

	_, err := svc.CreateSection(ctx, dto.CreateSectionRequest{
		CourseID: "c1", InstructorID: "ins", SemesterID: "s1",
		Meetings: []dto.MeetingInput{{DayOfWeek: "Friday", StartTime: "08:00", EndTime: "08:50"}},
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidSlot.Code))

	_, err = svc.CreateSection(ctx, dto.CreateSectionRequest{
		CourseID: "c1", InstructorID: "ins-2", SemesterID: "s1",
		Meetings: []dto.MeetingInput{{DayOfWeek: "Monday", StartTime: "10:30", EndTime: "11:20"}},
	})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflictsDetected.Code))

	_, err = svc.CreateSection(ctx, dto.CreateSectionRequest{CourseID: "c1", InstructorID: "stu", SemesterID: "s1"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrWrongRole.Code))

	_, err = svc.CreateSection(ctx, dto.CreateSectionRequest{CourseID: "nope", InstructorID: "ins", SemesterID: "s1"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))
	assert.Len(t, store.sections, 1)
}

func TestAssignInstructorChecksNewInstructorWeek(t *testing.T) {
	store, svc, _ := newSectionFixture()
	ctx := context.Background()
	store.addSection("free", "c1", "ins", "s1", 0, [3]string{"Monday", "10:00", "10:50"})

	_, err := svc.AssignInstructor(ctx, "free", dto.AssignInstructorRequest{InstructorID: "ins-2"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflictsDetected.Code))
	assert.Equal(t, "ins", store.sections["free"].InstructorID)

	detail, err := svc.AssignInstructor(ctx, "free", dto.AssignInstructorRequest{
		InstructorID: "ins-2",
		Meetings:     []dto.MeetingInput{{DayOfWeek: "Wednesday", StartTime: "14:00", EndTime: "14:50"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "ins-2", detail.InstructorID)
	require.Len(t, detail.Meetings, 1)
	assert.Equal(t, "Wednesday", detail.Meetings[0].DayOfWeek)
}

func TestAssignInstructorIgnoresSectionsOwnMeetings(t *testing.T) {
	_, svc, _ := newSectionFixture()

	detail, err := svc.AssignInstructor(context.Background(), "busy", dto.AssignInstructorRequest{
		InstructorID: "ins-2",
		Meetings:     []dto.MeetingInput{{DayOfWeek: "Monday", StartTime: "10:30", EndTime: "11:20"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "10:30", detail.Meetings[0].StartTime)
}

func TestDeleteSection(t *testing.T) {
	store, svc, _ := newSectionFixture()
	ctx := context.Background()
	store.addSection("taken", "c1", "ins", "s1", 0)
	store.enroll("asg-1", "stu", "taken")

	err := svc.DeleteSection(ctx, "taken")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrPreconditionFailed.Code))

	err = svc.DeleteSection(ctx, "ghost")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))

	require.NoError(t, svc.DeleteSection(ctx, "busy"))
	_, ok := store.sections["busy"]
	assert.False(t, ok)
}
