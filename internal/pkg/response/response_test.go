package response

import (
	"Storefront/internal/api/dto"
	"Storefront/internal/pkg/util"
	"Storefront/internal/service"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, err error) dto.Response {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	Error(c, err)

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestErrorMapsWrappedSentinels(t *testing.T) {
	resp := run(t, errors.Wrap(service.ErrForbidden, "get history"))
	assert.Equal(t, Forbidden, resp.Code)
	assert.Equal(t, service.ErrForbidden.Error(), resp.Message)

	resp = run(t, service.ErrConversationNotFound)
	assert.Equal(t, NotFound, resp.Code)

	resp = run(t, service.ErrEmptyText)
	assert.Equal(t, BadRequest, resp.Code)
}

func TestErrorHidesUnexpected(t *testing.T) {
	resp := run(t, errors.New("dial tcp 10.0.0.1:3306: connection refused"))
	assert.Equal(t, InternalServerError, resp.Code)
	assert.Equal(t, service.UnExpectedError.Error(), resp.Message)
}

func TestErrorReportsFieldValidation(t *testing.T) {
	resp := run(t, &util.FieldError{Field: "email", Rule: "email"})
	assert.Equal(t, BadRequest, resp.Code)
	assert.Contains(t, resp.Message, "email")
}
