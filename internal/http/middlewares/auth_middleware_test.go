package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rmendes/userhub/internal/auth"
	"github.com/rmendes/userhub/internal/http/middlewares"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func protectedRouter(tokens *auth.Manager) *gin.Engine {
	r := gin.New()

	guard := middlewares.NewAuthMiddleware(tokens)

	r.GET("/me", guard.RequireAuth(), func(c *gin.Context) {
		id, _ := middlewares.UserIDFromContext(c)
		email, _ := middlewares.EmailFromContext(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "email": email})
	})

	return r
}

func TestRequireAuth(t *testing.T) {
	tokens := auth.NewManager("test-secret")
	other := auth.NewManager("other-secret")

	session, err := tokens.Issue(7, "Alice", "alice@example.com", auth.SessionScope)

	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	reset, err := tokens.Issue(7, "Alice", "alice@example.com", auth.ResetScope)

	if err != nil {
		t.Fatalf("issue reset: %v", err)
	}

	expired, err := tokens.Issue(7, "Alice", "alice@example.com", auth.Scope{
		Issuer:   auth.SessionScope.Issuer,
		Audience: auth.SessionScope.Audience,
		TTL:      -time.Minute,
	})

	if err != nil {
		t.Fatalf("issue expired: %v", err)
	}

	foreign, err := other.Issue(7, "Alice", "alice@example.com", auth.SessionScope)

	if err != nil {
		t.Fatalf("issue foreign: %v", err)
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "valid_session", header: "Bearer " + session, wantStatus: http.StatusOK},
		{name: "missing_header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "not_bearer", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "prefix_without_space", header: "Bearer" + session, wantStatus: http.StatusUnauthorized},
		{name: "empty_token", header: "Bearer ", wantStatus: http.StatusUnauthorized},
		{name: "reset_token_rejected", header: "Bearer " + reset, wantStatus: http.StatusUnauthorized},
		{name: "expired_token", header: "Bearer " + expired, wantStatus: http.StatusUnauthorized},
		{name: "wrong_key", header: "Bearer " + foreign, wantStatus: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer not.a.jwt", wantStatus: http.StatusUnauthorized},
	}

	r := protectedRouter(tokens)

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)

			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}
