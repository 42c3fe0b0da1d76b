package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTokenValidator accepts a fixed set of tokens.
type testTokenValidator struct {
	validTokens map[string]string
}

func (v *testTokenValidator) ValidateToken(tokenString string) (SubjectGetter, error) {
	subject, ok := v.validTokens[tokenString]
	if !ok {
		return nil, fmt.Errorf("invalid token")
	}
	return testClaims(subject), nil
}

type testClaims string

func (c testClaims) GetSubject() (string, error) {
	return string(c), nil
}

func newValidator() *testTokenValidator {
	return &testTokenValidator{validTokens: map[string]string{
		"good-token":  "ci-bot",
		"empty-token": "",
	}}
}

func serve(t *testing.T, header string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	var seen string
	handler := AuthMiddleware(newValidator())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = Subject(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/upload", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name        string
		header      string
		wantStatus  int
		wantSubject string
	}{
		{"valid token", "Bearer good-token", http.StatusOK, "ci-bot"},
		{"lowercase scheme", "bearer good-token", http.StatusOK, "ci-bot"},
		{"extra spaces", "Bearer    good-token  ", http.StatusOK, "ci-bot"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic good-token", http.StatusUnauthorized, ""},
		{"no token", "Bearer", http.StatusUnauthorized, ""},
		{"too many parts", "Bearer good-token extra", http.StatusUnauthorized, ""},
		{"unknown token", "Bearer forged", http.StatusUnauthorized, ""},
		{"empty subject", "Bearer empty-token", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, subject := serve(t, tt.header)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantSubject, subject)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), "unauthorized")
				assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestSubject(t *testing.T) {
	_, ok := Subject(context.Background())
	assert.False(t, ok)

	ctx := context.WithValue(context.Background(), subjectKey, 42)
	_, ok = Subject(ctx)
	assert.False(t, ok, "wrong type is ignored")

	ctx = context.WithValue(context.Background(), subjectKey, "alice")
	s, ok := Subject(ctx)
	require.True(t, ok)
	assert.Equal(t, "alice", s)
}
