package intake

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"kudos-controlplane/pkg/middleware"
	"kudos-controlplane/services/contribution"
)

func submit(t *testing.T, svc *Service, body any) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Error())
	NewHandler(svc).Register(r.Group("/v1"))

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, "/v1/intake/issues", &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandlerSubmit(t *testing.T) {
	svc := newService(t, `"bounty" in labels`, &approverMock{})

	rec := submit(t, svc, Issue{Number: 3, Author: "bobby", Labels: []string{"bounty"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.JSONEq(t, `{"contribution_id":"3","handle":"bobby","approved":true}`, rec.Body.String())

	rec = submit(t, svc, Issue{Number: 4, Author: "bobby"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"contribution_id":"4","handle":"bobby","approved":false}`, rec.Body.String())
}

func TestHandlerSubmitErrors(t *testing.T) {
	svc := newService(t, "true", &approverMock{err: contribution.ErrContributionAlreadyApproved})

	rec := submit(t, svc, Issue{Number: 3, Author: "bobby"})
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), `"kind":"ContributionAlreadyApproved"`)

	rec = submit(t, svc, map[string]any{"author": "bobby"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
