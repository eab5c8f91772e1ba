package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/course-scheduling-api/pkg/errors"
)

func TestErrorCarriesDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, appErrors.WithDetails(appErrors.ErrInvalidSlot, "meeting must last exactly 50 minutes", map[string]string{"rule": "DURATION"}))

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Error struct {
			Code    string            `json:"code"`
			Message string            `json:"message"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INVALID_SLOT", body.Error.Code)
	assert.Equal(t, "DURATION", body.Error.Details["rule"])
	assert.Empty(t, c.Errors)
}

func TestErrorRecordsServerFaults(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, fmt.Errorf("query sections: connection reset"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "STORAGE_FAILURE")
	assert.Len(t, c.Errors, 1)
}

func TestListRecordsCountAndDisablesCaching(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	List(c, []string{"sec-1", "sec-2"}, 2)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	var body struct {
		Data []string `json:"data"`
		Meta Meta     `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"sec-1", "sec-2"}, body.Data)
	assert.EqualValues(t, 2, body.Meta["count"])
	assert.NotContains(t, w.Body.String(), "error")
}
