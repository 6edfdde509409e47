package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rmendes/userhub/internal/cache"
	"github.com/rmendes/userhub/internal/domain/user"
	"github.com/rmendes/userhub/internal/service"
	"github.com/rmendes/userhub/internal/utils"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type UsersManager interface {
	Create(ctx context.Context, in service.CreateInput) (user.User, error)
	List(ctx context.Context, limit int, cursor string) ([]user.User, string, error)
	Show(ctx context.Context, id int64) (user.User, error)
	Update(ctx context.Context, id int64, in service.UpdateInput) (user.User, error)
	UpdatePartial(ctx context.Context, id int64, in service.PatchInput) (user.User, error)
	Delete(ctx context.Context, id int64) error
}

type listPage struct {
	Items      []user.User `json:"items"`
	Count      int         `json:"count"`
	NextCursor string      `json:"nextCursor,omitempty"`
}

// UsersHandler is the admin CRUD surface. List pages are cached briefly;
// any write drops every cached page.
type UsersHandler struct {
	users UsersManager
	cache *cache.Cache
}

func NewUsersHandler(users UsersManager, c *cache.Cache) *UsersHandler {
	return &UsersHandler{users: users, cache: c}
}

func parseUserID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)

	if err != nil || id <= 0 {
		RespondBadRequest(ctx, "Invalid user id", nil)
		return 0, false
	}

	return id, true
}

func (h *UsersHandler) invalidateLists() {
	if h.cache != nil {
		h.cache.DeletePrefix(utils.UsersListCachePrefix())
	}
}

func (h *UsersHandler) Create(ctx *gin.Context) {
	var req user.CreateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	birth, err := user.ParseBirthDate(req.BirthDate)

	if err != nil {
		RespondBadRequest(ctx, "Invalid birth date", nil)
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), opTimeout)
	defer cancel()

	u, err := h.users.Create(cctx, service.CreateInput{
		Email:     req.Email,
		Name:      req.Name,
		Password:  req.Password,
		Role:      req.Role,
		BirthDate: birth,
	})

	if err != nil {
		if errors.Is(err, service.ErrConflict) {
			RespondConflict(ctx, "email_taken", "Email is already in use.")
			return
		}

		RespondInternal(ctx, "Could not create user")
		return
	}

	h.invalidateLists()

	ctx.JSON(http.StatusCreated, u)
}

func (h *UsersHandler) List(ctx *gin.Context) {
	limit := defaultListLimit

	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)

		if err != nil || n <= 0 || n > maxListLimit {
			RespondBadRequest(ctx, "Invalid limit", nil)
			return
		}

		limit = n
	}

	cursor := ctx.Query("cursor")
	cacheKey := utils.BuildUsersListCacheKey(limit, cursor)

	if h.cache != nil {
		if v, ok := h.cache.Get(cacheKey); ok {
			if page, ok := v.(listPage); ok {
				RespondJSONWithETag(ctx, http.StatusOK, page)
				return
			}
		}
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), opTimeout)
	defer cancel()

	items, next, err := h.users.List(cctx, limit, cursor)

	if err != nil {
		if errors.Is(err, service.ErrBadCursor) {
			RespondBadRequest(ctx, "Invalid cursor", nil)
			return
		}

		RespondInternal(ctx, "Could not list users")
		return
	}

	if items == nil {
		items = []user.User{}
	}

	page := listPage{
		Items:      items,
		Count:      len(items),
		NextCursor: next,
	}

	if h.cache != nil {
		h.cache.Set(cacheKey, page)
	}

	RespondJSONWithETag(ctx, http.StatusOK, page)
}

func (h *UsersHandler) Show(ctx *gin.Context) {
	id, ok := parseUserID(ctx)

	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), opTimeout)
	defer cancel()

	u, err := h.users.Show(cctx, id)

	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not fetch user")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, u)
}

func (h *UsersHandler) Update(ctx *gin.Context) {
	id, ok := parseUserID(ctx)

	if !ok {
		return
	}

	var req user.UpdateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	birth, err := user.ParseBirthDate(req.BirthDate)

	if err != nil {
		RespondBadRequest(ctx, "Invalid birth date", nil)
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), opTimeout)
	defer cancel()

	u, err := h.users.Update(cctx, id, service.UpdateInput{
		Email:     req.Email,
		Name:      req.Name,
		Password:  req.Password,
		Role:      req.Role,
		BirthDate: birth,
	})

	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			RespondNotFound(ctx, "User not found")
		case errors.Is(err, service.ErrConflict):
			RespondConflict(ctx, "email_taken", "Email is already in use.")
		default:
			RespondInternal(ctx, "Could not update user")
		}
		return
	}

	h.invalidateLists()

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) UpdatePartial(ctx *gin.Context) {
	id, ok := parseUserID(ctx)

	if !ok {
		return
	}

	var req user.PatchUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	in := service.PatchInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     req.Role,
	}

	if req.BirthDate != nil {
		birth, err := user.ParseBirthDate(*req.BirthDate)

		if err != nil {
			RespondBadRequest(ctx, "Invalid birth date", nil)
			return
		}

		in.BirthDate = birth
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), opTimeout)
	defer cancel()

	u, err := h.users.UpdatePartial(cctx, id, in)

	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			RespondNotFound(ctx, "User not found")
		case errors.Is(err, service.ErrConflict):
			RespondConflict(ctx, "email_taken", "Email is already in use.")
		default:
			RespondInternal(ctx, "Could not update user")
		}
		return
	}

	h.invalidateLists()

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) Delete(ctx *gin.Context) {
	id, ok := parseUserID(ctx)

	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), opTimeout)
	defer cancel()

	if err := h.users.Delete(cctx, id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}

		RespondInternal(ctx, "Could not delete user")
		return
	}

	h.invalidateLists()

	ctx.Status(http.StatusNoContent)
}
