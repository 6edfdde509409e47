package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/rmendes/userhub/internal/auth"
	"github.com/rmendes/userhub/internal/http/handlers"
	"github.com/rmendes/userhub/internal/http/middlewares"
	"github.com/rmendes/userhub/internal/jobs"
	"github.com/rmendes/userhub/internal/repo/memory"
	"github.com/rmendes/userhub/internal/service"
	"github.com/rmendes/userhub/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// discardQueue satisfies the enqueuer without delivering anything.
type discardQueue struct{}

func (discardQueue) Enqueue(_ context.Context, _ jobs.Job) error { return nil }

// authTestEnv wires the real credential service over the memory repo so the
// handler tests exercise the full login/register/reset path in-process.
type authTestEnv struct {
	router  *gin.Engine
	users   *memory.UsersRepo
	tokens  *auth.Manager
	tempDir string
}

func newAuthEnv(t *testing.T) *authTestEnv {
	t.Helper()

	users := memory.NewUsersRepo()
	tokens := auth.NewManager("test-secret")
	creds := service.NewCredentialService(users, tokens, discardQueue{}, quietLogger())

	dir := t.TempDir()
	files := storage.NewStorage(storage.NewFSBackend(dir))

	h := handlers.NewAuthHandler(creds, files)
	guard := middlewares.NewAuthMiddleware(tokens)

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.POST("/auth/register", h.Register)
	r.POST("/auth/forget", h.Forget)
	r.POST("/auth/reset", h.Reset)
	r.GET("/auth/me", guard.RequireAuth(), h.Me)
	r.POST("/auth/photo", guard.RequireAuth(), h.UploadPhoto)

	return &authTestEnv{router: r, users: users, tokens: tokens, tempDir: dir}
}

func postJSON(t *testing.T, r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func accessToken(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var resp struct {
		AccessToken string `json:"accessToken"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v, body=%s", err, w.Body.String())
	}

	if resp.AccessToken == "" {
		t.Fatalf("empty access token, body=%s", w.Body.String())
	}

	return resp.AccessToken
}

func TestRegisterLoginMe(t *testing.T) {
	env := newAuthEnv(t)

	w := postJSON(t, env.router, "/auth/register", `{
		"email": "alice@example.com",
		"password": "s3carefully",
		"name": "Alice",
		"birthDate": "1990-04-21"
	}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body=%s", w.Code, w.Body.String())
	}

	w = postJSON(t, env.router, "/auth/login", `{
		"email": "alice@example.com",
		"password": "s3carefully"
	}`)

	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body=%s", w.Code, w.Body.String())
	}

	token := accessToken(t, w)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d, body=%s", rec.Code, rec.Body.String())
	}

	var me struct {
		User struct {
			ID    int64  `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"user"`
	}

	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}

	if me.User.Email != "alice@example.com" || me.User.Name != "Alice" {
		t.Fatalf("me = %+v", me.User)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	env := newAuthEnv(t)

	postJSON(t, env.router, "/auth/register", `{
		"email": "alice@example.com",
		"password": "s3carefully",
		"name": "Alice"
	}`)

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "wrong_password", body: `{"email":"alice@example.com","password":"nope-nope"}`, want: http.StatusUnauthorized},
		{name: "unknown_email", body: `{"email":"bob@example.com","password":"s3carefully"}`, want: http.StatusUnauthorized},
		{name: "not_an_email", body: `{"email":"not-an-email","password":"s3carefully"}`, want: http.StatusBadRequest},
		{name: "missing_password", body: `{"email":"alice@example.com"}`, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, env.router, "/auth/login", tt.body)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d, body=%s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newAuthEnv(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "short_password", body: `{"email":"a@b.com","password":"short","name":"Al"}`, want: http.StatusBadRequest},
		{name: "bad_birth_date", body: `{"email":"a@b.com","password":"longenough","name":"Al","birthDate":"21-04-1990"}`, want: http.StatusBadRequest},
		{name: "short_name", body: `{"email":"a@b.com","password":"longenough","name":"A"}`, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, env.router, "/auth/register", tt.body)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d, body=%s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	env := newAuthEnv(t)

	body := `{"email":"alice@example.com","password":"s3carefully","name":"Alice"}`

	if w := postJSON(t, env.router, "/auth/register", body); w.Code != http.StatusCreated {
		t.Fatalf("first register: %d", w.Code)
	}

	w := postJSON(t, env.router, "/auth/register", body)

	if w.Code != http.StatusConflict {
		t.Fatalf("second register = %d, want 409, body=%s", w.Code, w.Body.String())
	}
}

func TestForgetRevealsUnknownEmail(t *testing.T) {
	env := newAuthEnv(t)

	w := postJSON(t, env.router, "/auth/forget", `{"email":"nobody@example.com"}`)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401, body=%s", w.Code, w.Body.String())
	}
}

func TestResetWithIssuedToken(t *testing.T) {
	env := newAuthEnv(t)

	postJSON(t, env.router, "/auth/register", `{"email":"alice@example.com","password":"s3carefully","name":"Alice"}`)

	u, err := env.users.GetByEmail(context.Background(), "alice@example.com")

	if err != nil {
		t.Fatalf("fetch user: %v", err)
	}

	reset, err := env.tokens.Issue(u.ID, u.Name, u.Email, auth.ResetScope)

	if err != nil {
		t.Fatalf("issue reset token: %v", err)
	}

	w := postJSON(t, env.router, "/auth/reset", `{"password":"brand-new-pass","token":"`+reset+`"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("reset status = %d, body=%s", w.Code, w.Body.String())
	}

	accessToken(t, w)

	// new password works
	w = postJSON(t, env.router, "/auth/login", `{"email":"alice@example.com","password":"brand-new-pass"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("login after reset = %d, body=%s", w.Code, w.Body.String())
	}
}

func TestResetRejectsSessionScopedToken(t *testing.T) {
	env := newAuthEnv(t)

	postJSON(t, env.router, "/auth/register", `{"email":"alice@example.com","password":"s3carefully","name":"Alice"}`)

	w := postJSON(t, env.router, "/auth/login", `{"email":"alice@example.com","password":"s3carefully"}`)
	session := accessToken(t, w)

	w = postJSON(t, env.router, "/auth/reset", `{"password":"brand-new-pass","token":"`+session+`"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400, body=%s", w.Code, w.Body.String())
	}
}

func TestUploadPhoto(t *testing.T) {
	env := newAuthEnv(t)

	postJSON(t, env.router, "/auth/register", `{"email":"alice@example.com","password":"s3carefully","name":"Alice"}`)

	w := postJSON(t, env.router, "/auth/login", `{"email":"alice@example.com","password":"s3carefully"}`)
	token := accessToken(t, w)

	buildUpload := func(field, contentType string, size int) (*bytes.Buffer, string) {
		body := &bytes.Buffer{}
		mw := multipart.NewWriter(body)

		hdr := make(map[string][]string)
		hdr["Content-Disposition"] = []string{`form-data; name="` + field + `"; filename="photo.jpeg"`}
		hdr["Content-Type"] = []string{contentType}

		part, err := mw.CreatePart(hdr)

		if err != nil {
			t.Fatalf("create part: %v", err)
		}

		if _, err := part.Write(bytes.Repeat([]byte{0xFF}, size)); err != nil {
			t.Fatalf("write part: %v", err)
		}

		mw.Close()

		return body, mw.FormDataContentType()
	}

	doUpload := func(field, contentType string, size int, bearer string) *httptest.ResponseRecorder {
		body, ct := buildUpload(field, contentType, size)

		req := httptest.NewRequest(http.MethodPost, "/auth/photo", body)
		req.Header.Set("Content-Type", ct)

		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		return rec
	}

	t.Run("success", func(t *testing.T) {
		rec := doUpload("file", "image/jpeg", 512, token)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body=%s", rec.Code, rec.Body.String())
		}

		// the fs backend must have the object on disk
		matches, err := filepath.Glob(filepath.Join(env.tempDir, "photos", "*"))

		if err != nil || len(matches) != 1 {
			t.Fatalf("stored files = %v (err=%v)", matches, err)
		}

		info, err := os.Stat(matches[0])

		if err != nil || info.Size() != 512 {
			t.Fatalf("stored size = %v (err=%v)", info, err)
		}
	})

	t.Run("too_large", func(t *testing.T) {
		rec := doUpload("file", "image/jpeg", 11*1024, token)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, body=%s", rec.Code, rec.Body.String())
		}
	})

	t.Run("wrong_mime", func(t *testing.T) {
		rec := doUpload("file", "image/png", 512, token)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, body=%s", rec.Code, rec.Body.String())
		}
	})

	t.Run("missing_field", func(t *testing.T) {
		rec := doUpload("wrong_field", "image/jpeg", 512, token)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, body=%s", rec.Code, rec.Body.String())
		}
	})

	t.Run("no_auth", func(t *testing.T) {
		rec := doUpload("file", "image/jpeg", 512, "")

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, body=%s", rec.Code, rec.Body.String())
		}
	})
}
