package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-scheduling-api/internal/models"
)

func TestAssignmentRepositoryCreateMapsUniqueViolation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO assignments")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "uq_assignments_student_section"})

	err := repo.Create(context.Background(), nil, &models.Assignment{StudentID: "stu-1", SectionID: "sec-1", CourseID: "c-1", SemesterID: "sem-1"})
	require.ErrorIs(t, err, ErrDuplicateAssignment)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryExists(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM assignments WHERE student_id = $1 AND section_id = $2)")).
		WithArgs("stu-1", "sec-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.Exists(context.Background(), nil, "stu-1", "sec-1")
	require.NoError(t, err)
	assert.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryListForFinalizeUsesKeyset(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	score := 91.0
	mock.ExpectQuery(regexp.QuoteMeta("WHERE a.semester_id = $1 AND a.id > $2")).
		WithArgs("sem-1", "a-010", 2).
		WillReturnRows(sqlmock.NewRows([]string{"assignment_id", "student_id", "semester_id", "academic_year", "grade_id", "numeric_grade", "letter_grade", "is_placeholder"}).
			AddRow("a-011", "stu-1", "sem-1", "2025/2026", "g-1", score, "A", false).
			AddRow("a-012", "stu-2", "sem-1", "2025/2026", nil, nil, nil, nil))

	rows, err := repo.ListForFinalize(context.Background(), "sem-1", "a-010", 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NotNil(t, rows[0].NumericGrade)
	assert.Equal(t, 91.0, *rows[0].NumericGrade)
	assert.Nil(t, rows[1].GradeID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM assignments WHERE id = $1")).
		WithArgs("a-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "section_id", "course_id", "semester_id", "created_at"}).
			AddRow("a-1", "stu-1", "sec-1", "c-1", "sem-1", time.Now()))

	assignment, err := repo.FindByID(context.Background(), "a-1")
	require.NoError(t, err)
	assert.Equal(t, "sec-1", assignment.SectionID)
	require.NoError(t, mock.ExpectationsWereMet())
}
