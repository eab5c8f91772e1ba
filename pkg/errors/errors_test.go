package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorWrapsUnknownAsStorageFailure(t *testing.T) {
	err := FromError(fmt.Errorf("dial tcp: refused"))
	require.NotNil(t, err)
	assert.Equal(t, ErrStorageFailure.Code, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
}

func TestCloneMatchesSentinel(t *testing.T) {
	err := Clone(ErrAlreadyEnrolled, "student s1 already in section sec1")
	assert.True(t, stdErrors.Is(err, ErrAlreadyEnrolled))
	assert.False(t, stdErrors.Is(err, ErrNotFound))
	assert.Equal(t, "student s1 already in section sec1", err.Message)
	assert.Equal(t, "student already enrolled in section", ErrAlreadyEnrolled.Message)
}

func TestWithDetailsKeepsPayload(t *testing.T) {
	err := WithDetails(ErrConflictsDetected, "", []string{"a", "b"})
	assert.Equal(t, []string{"a", "b"}, err.Details)
	assert.Nil(t, ErrConflictsDetected.Details)
	assert.True(t, HasCode(fmt.Errorf("outer: %w", err), ErrConflictsDetected.Code))
}
