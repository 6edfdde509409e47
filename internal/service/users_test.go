package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rmendes/userhub/internal/domain/user"
	"github.com/rmendes/userhub/internal/repo/memory"
	"github.com/rmendes/userhub/internal/service"
)

func newUsersService(t *testing.T) (*service.UsersService, *memory.UsersRepo) {
	t.Helper()

	repo := memory.NewUsersRepo()

	return service.NewUsersService(repo, quietLogger()), repo
}

func seedUsers(t *testing.T, s *service.UsersService, n int) []user.User {
	t.Helper()

	out := make([]user.User, 0, n)

	for i := 0; i < n; i++ {
		u, err := s.Create(context.Background(), service.CreateInput{
			Email:    fmt.Sprintf("user%02d@example.com", i),
			Name:     fmt.Sprintf("User %02d", i),
			Password: "password1",
		})

		if err != nil {
			t.Fatalf("seed user %d: %v", i, err)
		}

		out = append(out, u)
	}

	return out
}

func TestCreateDefaultsRole(t *testing.T) {
	s, _ := newUsersService(t)

	u, err := s.Create(context.Background(), service.CreateInput{
		Email:    "alice@example.com",
		Name:     "Alice",
		Password: "password1",
	})

	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if u.Role != user.RoleUser {
		t.Fatalf("role = %q, want %q", u.Role, user.RoleUser)
	}

	if u.PasswordHash == "password1" {
		t.Fatal("password stored in plaintext")
	}
}

func TestCreateDuplicateEmail(t *testing.T) {
	s, _ := newUsersService(t)

	seedUsers(t, s, 1)

	_, err := s.Create(context.Background(), service.CreateInput{
		Email:    "user00@example.com",
		Name:     "Dup",
		Password: "password1",
	})

	if !errors.Is(err, service.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestListPagination(t *testing.T) {
	s, _ := newUsersService(t)

	seeded := seedUsers(t, s, 5)

	page1, next, err := s.List(context.Background(), 2, "")

	if err != nil {
		t.Fatalf("list page 1: %v", err)
	}

	if len(page1) != 2 || next == "" {
		t.Fatalf("page 1: %d items, next=%q", len(page1), next)
	}

	page2, next2, err := s.List(context.Background(), 2, next)

	if err != nil {
		t.Fatalf("list page 2: %v", err)
	}

	if len(page2) != 2 {
		t.Fatalf("page 2: %d items", len(page2))
	}

	// pages must not overlap
	seen := map[int64]bool{}

	for _, u := range append(page1, page2...) {
		if seen[u.ID] {
			t.Fatalf("user %d appeared twice across pages", u.ID)
		}
		seen[u.ID] = true
	}

	page3, next3, err := s.List(context.Background(), 2, next2)

	if err != nil {
		t.Fatalf("list page 3: %v", err)
	}

	if len(page3) != 1 {
		t.Fatalf("page 3: %d items, want 1", len(page3))
	}

	// a short page ends the iteration
	if next3 != "" {
		t.Fatalf("page 3 next = %q, want empty", next3)
	}

	if len(seen)+len(page3) != len(seeded) {
		t.Fatalf("paged through %d users, want %d", len(seen)+len(page3), len(seeded))
	}
}

func TestListBadCursor(t *testing.T) {
	s, _ := newUsersService(t)

	_, _, err := s.List(context.Background(), 10, "!!not-base64!!")

	if !errors.Is(err, service.ErrBadCursor) {
		t.Fatalf("err = %v, want ErrBadCursor", err)
	}
}

func TestShowNotFound(t *testing.T) {
	s, _ := newUsersService(t)

	_, err := s.Show(context.Background(), 42)

	if !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateReplacesRecord(t *testing.T) {
	s, _ := newUsersService(t)

	seeded := seedUsers(t, s, 1)

	u, err := s.Update(context.Background(), seeded[0].ID, service.UpdateInput{
		Email:    "renamed@example.com",
		Name:     "Renamed",
		Password: "newpassword1",
		Role:     user.RoleAdmin,
	})

	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if u.Email != "renamed@example.com" || u.Role != user.RoleAdmin {
		t.Fatalf("updated user = %+v", u)
	}
}

func TestUpdateMissingUser(t *testing.T) {
	s, _ := newUsersService(t)

	_, err := s.Update(context.Background(), 99, service.UpdateInput{
		Email:    "ghost@example.com",
		Name:     "Ghost",
		Password: "password1",
		Role:     user.RoleUser,
	})

	if !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdatePartialKeepsPassword(t *testing.T) {
	s, repo := newUsersService(t)

	seeded := seedUsers(t, s, 1)

	before, err := repo.GetByID(context.Background(), seeded[0].ID)

	if err != nil {
		t.Fatalf("get before: %v", err)
	}

	name := "Patched"
	u, err := s.UpdatePartial(context.Background(), seeded[0].ID, service.PatchInput{Name: &name})

	if err != nil {
		t.Fatalf("patch: %v", err)
	}

	if u.Name != "Patched" {
		t.Fatalf("name = %q", u.Name)
	}

	after, err := repo.GetByID(context.Background(), seeded[0].ID)

	if err != nil {
		t.Fatalf("get after: %v", err)
	}

	if after.PasswordHash != before.PasswordHash {
		t.Fatal("password hash changed on a patch without a password")
	}
}

func TestUpdatePartialRehashesPassword(t *testing.T) {
	s, repo := newUsersService(t)

	seeded := seedUsers(t, s, 1)

	before, _ := repo.GetByID(context.Background(), seeded[0].ID)

	pw := "rotated-pass1"
	_, err := s.UpdatePartial(context.Background(), seeded[0].ID, service.PatchInput{Password: &pw})

	if err != nil {
		t.Fatalf("patch: %v", err)
	}

	after, _ := repo.GetByID(context.Background(), seeded[0].ID)

	if after.PasswordHash == before.PasswordHash {
		t.Fatal("password hash unchanged after patch with password")
	}

	if after.PasswordHash == pw {
		t.Fatal("password stored in plaintext")
	}
}

func TestDelete(t *testing.T) {
	s, _ := newUsersService(t)

	seeded := seedUsers(t, s, 1)

	if err := s.Delete(context.Background(), seeded[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if err := s.Delete(context.Background(), seeded[0].ID); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}
