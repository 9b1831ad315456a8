package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kudos-controlplane/pkg/errutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
	gin.SetMode(gin.TestMode)
}

type statusErr struct{}

func (statusErr) Error() string              { return "gone fishing" }
func (statusErr) Status() errutil.CoreStatus { return errutil.StatusServiceUnavailable }

func serve(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	r.Use(Error())
	r.GET("/", func(c *gin.Context) {
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec
}

func TestErrorMiddleware(t *testing.T) {
	rec := serve(t, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(t, errutil.NotFound("identity not found", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":{"code":"not_found","message":"identity not found","details":null}}`, rec.Body.String())

	rec = serve(t, statusErr{})
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "gone fishing")

	rec = serve(t, errors.New("db exploded"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "db exploded")
}
