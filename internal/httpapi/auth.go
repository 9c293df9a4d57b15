package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/p-n-ai/pai-study/internal/apperr"
)

type ctxKey int

const studentKey ctxKey = iota

// Authenticator verifies HS256 bearer tokens whose subject is the student's
// UUID. Tokens are issued elsewhere.
type Authenticator struct {
	secret []byte
	issuer string
}

// NewAuthenticator creates a verifier. An empty issuer accepts any issuer.
func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer}
}

// Verify parses the token and returns the student ID it was issued for.
func (a *Authenticator) Verify(token string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return "", unauthorized(fmt.Errorf("parsing token: %w", err))
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return "", unauthorized(errors.New("token subject is not a student id"))
	}
	return id.String(), nil
}

// Sign issues a token for a student. It exists for tooling and tests.
func (a *Authenticator) Sign(studentID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   studentID,
		Issuer:    a.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// require rejects requests without a valid bearer token and stores the
// student ID in the request context. WebSocket clients that cannot set
// headers may pass the token as the access_token query parameter.
func (a *Authenticator) require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			token = r.URL.Query().Get("access_token")
		}
		if token == "" {
			writeError(w, r, unauthorized(errors.New("missing bearer token")))
			return
		}
		studentID, err := a.Verify(strings.TrimSpace(token))
		if err != nil {
			writeError(w, r, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), studentKey, studentID)))
	}
}

// studentID returns the authenticated student of a request.
func studentID(r *http.Request) string {
	id, _ := r.Context().Value(studentKey).(string)
	return id
}

func unauthorized(err error) error {
	return &apperr.Error{Op: "httpapi.auth", Kind: apperr.ErrUnauthorized, Message: "invalid or missing bearer token", Err: err}
}
