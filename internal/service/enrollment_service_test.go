package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-scheduling-api/internal/dto"
	"github.com/noah-isme/course-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/course-scheduling-api/pkg/errors"
)

func newEnrollmentFixture(cfg EnrollmentConfig) (*memStore, *EnrollmentService, *MetricsService) {
	store := newMemStore()
	store.addUser("stu", models.RoleStudent)
	store.addUser("stu-2", models.RoleStudent)
	store.addUser("ins", models.RoleInstructor)
	store.addCourse("c1", 3)
	store.addCourse("c2", 4)
	store.addSemester("s1", time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC))
	store.addSection("sec-1", "c1", "ins", "s1", 0, [3]string{"Sunday", "09:00", "09:50"}, [3]string{"Tuesday", "09:00", "09:50"})
	store.addSection("sec-2", "c2", "ins", "s1", 0, [3]string{"Tuesday", "09:30", "10:20"})
	store.addSection("sec-3", "c2", "ins", "s1", 1, [3]string{"Monday", "13:00", "13:50"})

	metrics := NewMetricsService()
	conflicts := NewConflictService(commitmentView{store}, sectionView{store}, userView{store}, nil, nil, metrics, nil)
	svc := NewEnrollmentService(sectionView{store}, userView{store}, assignmentView{store}, semesterView{store}, conflicts, &serialTx{}, nil, metrics, nil, cfg)
	return store, svc, metrics
}

func TestEnrollCreatesAssignment(t *testing.T) {
	store, svc, _ := newEnrollmentFixture(EnrollmentConfig{})

	assignment, err := svc.Enroll(context.Background(), dto.EnrollmentRequest{StudentID: "stu", SectionID: "sec-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, assignment.ID)
	assert.Equal(t, "c1", assignment.CourseID)
	assert.Equal(t, "s1", assignment.SemesterID)
	assert.Equal(t, 1, store.countFor("sec-1"))
}

func TestEnrollRejectsDuplicate(t *testing.T) {
	_, svc, _ := newEnrollmentFixture(EnrollmentConfig{})
	ctx := context.Background()
	req := dto.EnrollmentRequest{StudentID: "stu", SectionID: "sec-1"}

	_, err := svc.Enroll(ctx, req)
	require.NoError(t, err)

	_, err = svc.Enroll(ctx, req)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrAlreadyEnrolled.Code))
}

func TestEnrollRejectsConflictWithDetails(t *testing.T) {
	store, svc, _ := newEnrollmentFixture(EnrollmentConfig{})
	ctx := context.Background()

	_, err := svc.Enroll(ctx, dto.EnrollmentRequest{StudentID: "stu", SectionID: "sec-1"})
	require.NoError(t, err)

	_, err = svc.Enroll(ctx, dto.EnrollmentRequest{StudentID: "stu", SectionID: "sec-2"})
	require.True(t, appErrors.HasCode(err, appErrors.ErrConflictsDetected.Code))
	conflicts, ok := appErrors.FromError(err).Details.([]models.MeetingConflict)
	require.True(t, ok)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "sec-1", conflicts[0].ExistingSectionID)
	assert.Equal(t, "Tuesday", conflicts[0].DayOfWeek)
	assert.Equal(t, 0, store.countFor("sec-2"))
}

func TestEnrollRejectsWrongRoleAndMissingRecords(t *testing.T) {
	_, svc, _ := newEnrollmentFixture(EnrollmentConfig{})
	ctx := context.Background()

	_, err := svc.Enroll(ctx, dto.EnrollmentRequest{StudentID: "ins", SectionID: "sec-1"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrWrongRole.Code))

	_, err = svc.Enroll(ctx, dto.EnrollmentRequest{StudentID: "nobody", SectionID: "sec-1"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))

	_, err = svc.Enroll(ctx, dto.EnrollmentRequest{StudentID: "stu", SectionID: "nowhere"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))

	_, err = svc.Enroll(ctx, dto.EnrollmentRequest{StudentID: "stu"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestEnrollCapacity(t *testing.T) {
	_, svc, _ := newEnrollmentFixture(EnrollmentConfig{EnforceCapacity: true})
	ctx := context.Background()

	_, err := svc.Enroll(ctx, dto.EnrollmentRequest{StudentID: "stu", SectionID: "sec-3"})
	require.NoError(t, err)

	_, err = svc.Enroll(ctx, dto.EnrollmentRequest{StudentID: "stu-2", SectionID: "sec-3"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrSectionFull.Code))
}

func TestEnrollRegistrationWindow(t *testing.T) {
	store, svc, _ := newEnrollmentFixture(EnrollmentConfig{EnforceWindow: true})
	opens := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	closes := time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC)
	store.semesters["s1"].RegistrationOpensAt = &opens
	store.semesters["s1"].RegistrationClosesAt = &closes
	ctx := context.Background()

	svc.now = func() time.Time { return time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC) }
	_, err := svc.Enroll(ctx, dto.EnrollmentRequest{StudentID: "stu", SectionID: "sec-1"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrRegistrationClosed.Code))

	svc.now = func() time.Time { return time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC) }
	_, err = svc.Enroll(ctx, dto.EnrollmentRequest{StudentID: "stu", SectionID: "sec-1"})
	require.NoError(t, err)

	closed := time.Date(2025, 8, 11, 0, 0, 0, 0, time.UTC)
	store.semesters["s1"].ClosedAt = &closed
	err = svc.Drop(ctx, dto.EnrollmentRequest{StudentID: "stu", SectionID: "sec-1"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrRegistrationClosed.Code))
}

func TestDrop(t *testing.T) {
	store, svc, _ := newEnrollmentFixture(EnrollmentConfig{})
	ctx := context.Background()
	req := dto.EnrollmentRequest{StudentID: "stu", SectionID: "sec-1"}

	err := svc.Drop(ctx, req)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound.Code))

	_, err = svc.Enroll(ctx, req)
	require.NoError(t, err)
	require.NoError(t, svc.Drop(ctx, req))
	assert.Equal(t, 0, store.countFor("sec-1"))

	_, err = svc.Enroll(ctx, req)
	assert.NoError(t, err)
}

func TestEnrollConcurrentRequestsAdmitExactlyOne(t *testing.T) {
	store, svc, _ := newEnrollmentFixture(EnrollmentConfig{})
	const workers = 16

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		success  int
		rejected int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.Enroll(context.Background(), dto.EnrollmentRequest{StudentID: "stu", SectionID: "sec-1"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				success++
				return
			}
			if appErrors.HasCode(err, appErrors.ErrAlreadyEnrolled.Code) {
				rejected++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, workers-1, rejected)
	assert.Equal(t, 1, store.countFor("sec-1"))
}
