package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccessPaginated_TotalPages(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		total    int64
		pageSize int
		want     int
	}{
		{0, 50, 0},
		{1, 50, 1},
		{50, 50, 1},
		{51, 50, 2},
		{10, 0, 0},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		SuccessPaginated(c, []int{}, tt.total, 1, tt.pageSize)

		var resp struct {
			Data Page `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, tt.want, resp.Data.TotalPages, "total=%d size=%d", tt.total, tt.pageSize)
	}
}

func TestFailAborts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Conflict(c, "taken")

	assert.True(t, c.IsAborted())
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"code":-1004,"message":"taken"}`, w.Body.String())
}
