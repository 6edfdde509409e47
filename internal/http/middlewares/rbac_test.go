package middlewares_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/rmendes/userhub/internal/auth"
	"github.com/rmendes/userhub/internal/domain/user"
	"github.com/rmendes/userhub/internal/http/middlewares"
)

// fakeRoleReader returns a configurable user record per id.
type fakeRoleReader struct {
	getFn func(ctx context.Context, id int64) (user.User, error)
}

func (f *fakeRoleReader) GetByID(ctx context.Context, id int64) (user.User, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}

	return user.User{}, user.ErrNotFound
}

func adminRouter(tokens *auth.Manager, users *fakeRoleReader) *gin.Engine {
	r := gin.New()

	authGuard := middlewares.NewAuthMiddleware(tokens)
	roleGuard := middlewares.NewRoleGuard(users)

	r.GET("/admin", authGuard.RequireAuth(), roleGuard.RequireRole(user.RoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	return r
}

func TestRequireRole(t *testing.T) {
	tokens := auth.NewManager("test-secret")

	session, err := tokens.Issue(7, "Alice", "alice@example.com", auth.SessionScope)

	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tests := []struct {
		name       string
		getFn      func(ctx context.Context, id int64) (user.User, error)
		wantStatus int
	}{
		{
			name: "admin_allowed",
			getFn: func(_ context.Context, id int64) (user.User, error) {
				return user.User{ID: id, Role: user.RoleAdmin}, nil
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "plain_user_forbidden",
			getFn: func(_ context.Context, id int64) (user.User, error) {
				return user.User{ID: id, Role: user.RoleUser}, nil
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name: "subject_deleted",
			getFn: func(_ context.Context, _ int64) (user.User, error) {
				return user.User{}, user.ErrNotFound
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "store_error",
			getFn: func(_ context.Context, _ int64) (user.User, error) {
				return user.User{}, errors.New("db down")
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			r := adminRouter(tokens, &fakeRoleReader{getFn: tt.getFn})

			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+session)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

// A role change between requests must take effect immediately: the guard
// reads the store on every request instead of trusting the token.
func TestRequireRoleReadsFreshRole(t *testing.T) {
	tokens := auth.NewManager("test-secret")

	session, err := tokens.Issue(7, "Alice", "alice@example.com", auth.SessionScope)

	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	role := user.RoleAdmin

	users := &fakeRoleReader{
		getFn: func(_ context.Context, id int64) (user.User, error) {
			return user.User{ID: id, Role: role}, nil
		},
	}

	r := adminRouter(tokens, users)

	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+session)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		return w.Code
	}

	if got := do(); got != http.StatusOK {
		t.Fatalf("admin request: got %d", got)
	}

	// demote without reissuing the token
	role = user.RoleUser

	if got := do(); got != http.StatusForbidden {
		t.Fatalf("after demotion: got %d, want 403", got)
	}
}
