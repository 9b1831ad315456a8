package caller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kudos-controlplane/pkg/config"
	"kudos-controlplane/pkg/errutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
	gin.SetMode(gin.TestMode)
}

func newVerifier(secret, issuer string) *Verifier {
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = secret
	cfg.Auth.Issuer = issuer
	return NewVerifier(cfg)
}

func TestFromContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	require.False(t, ok)

	_, err := Require(context.Background())
	require.Equal(t, errutil.StatusUnauthorized, errutil.StatusOf(err))

	ctx := WithAccount(context.Background(), "alice")
	account, err := Require(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice", account)

	_, ok = FromContext(WithAccount(context.Background(), ""))
	require.False(t, ok)
}

func TestVerifyRoundTrip(t *testing.T) {
	v := newVerifier("s3cret", "kudos")

	token, err := v.Sign("alice", time.Minute)
	require.NoError(t, err)

	account, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "alice", account)
}

func TestVerifyRejects(t *testing.T) {
	v := newVerifier("s3cret", "kudos")

	expired, err := v.Sign("alice", -time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(expired)
	require.ErrorIs(t, err, ErrInvalidToken)

	other, err := newVerifier("other", "kudos").Sign("alice", time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(other)
	require.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer, err := newVerifier("s3cret", "someone-else").Sign("alice", time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(wrongIssuer)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = newVerifier("", "").Verify(expired)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	v := newVerifier("s3cret", "")

	r := gin.New()
	r.Use(Middleware(v))
	r.GET("/whoami", func(c *gin.Context) {
		account, ok := FromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"account": account, "ok": ok})
	})

	token, err := v.Sign("alice", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{name: "anonymous", status: http.StatusOK, body: `{"account":"","ok":false}`},
		{name: "valid", header: "Bearer " + token, status: http.StatusOK, body: `{"account":"alice","ok":true}`},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer abc", status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				require.JSONEq(t, tt.body, rec.Body.String())
			}
		})
	}
}
