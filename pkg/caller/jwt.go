package caller

import (
	"errors"
	"strings"
	"time"

	"kudos-controlplane/pkg/config"
	"kudos-controlplane/pkg/errutil"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("caller", fx.Provide(NewVerifier))

var ErrInvalidToken = errors.New("invalid bearer token")

// Verifier validates HS256 bearer tokens whose subject is the account id.
type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(cfg *config.Config) *Verifier {
	if cfg.Auth.JWTSecret == "" {
		zap.L().Warn("AUTH.JWT_SECRET not set, bearer tokens will be rejected")
	}
	return &Verifier{secret: []byte(cfg.Auth.JWTSecret), issuer: cfg.Auth.Issuer}
}

// Verify parses token and returns its subject.
func (v *Verifier) Verify(token string) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims jwt.RegisteredClaims
	if _, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...); err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Sign issues a token for account. Used by operators and tests.
func (v *Verifier) Sign(account string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   account,
		Issuer:    v.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Middleware attaches the bearer token subject to the request context.
// Requests without an Authorization header pass through anonymously; a
// malformed or invalid token is rejected with 401.
func Middleware(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			abort(c, "authorization header must use the Bearer scheme")
			return
		}

		account, err := v.Verify(strings.TrimSpace(token))
		if err != nil {
			zap.L().Debug("rejected bearer token", zap.Error(err))
			abort(c, "invalid bearer token")
			return
		}

		c.Request = c.Request.WithContext(WithAccount(c.Request.Context(), account))
		c.Next()
	}
}

func abort(c *gin.Context, msg string) {
	be := errutil.BaseError{Code: errutil.StatusUnauthorized, Message: msg}
	c.AbortWithStatusJSON(be.Code.HTTPStatus(), be.JSON())
}
