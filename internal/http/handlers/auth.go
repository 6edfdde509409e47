package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rmendes/userhub/internal/domain/user"
	"github.com/rmendes/userhub/internal/http/middlewares"
	"github.com/rmendes/userhub/internal/service"
	"github.com/rmendes/userhub/internal/storage"
)

const (
	maxPhotoBytes  = 10 * 1024
	photoMIME      = "image/jpeg"
	opTimeout      = 3 * time.Second
	photoKeyFormat = "photos/photo-%d.jpeg"
)

// Credentials is the slice of the credential service the handler needs.
type Credentials interface {
	Login(ctx context.Context, email, password string) (string, error)
	Register(ctx context.Context, in service.RegisterInput) (user.User, string, error)
	Forget(ctx context.Context, email string) error
	Reset(ctx context.Context, newPassword, token string) (string, error)
}

type AuthHandler struct {
	creds Credentials
	files *storage.Storage
}

func NewAuthHandler(creds Credentials, files *storage.Storage) *AuthHandler {
	return &AuthHandler{creds: creds, files: files}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Name      string `json:"name" binding:"required,min=2"`
	BirthDate string `json:"birthDate" binding:"omitempty,datetime=2006-01-02"`
}

type ForgetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetRequest struct {
	Password string `json:"password" binding:"required,min=8"`
	Token    string `json:"token" binding:"required"`
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), opTimeout)
	defer cancel()

	token, err := h.creds.Login(cctx, req.Email, req.Password)

	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
			return
		}

		RespondInternal(ctx, "Could not log in")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": token,
	})
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

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

	_, token, err := h.creds.Register(cctx, service.RegisterInput{
		Email:     req.Email,
		Name:      req.Name,
		Password:  req.Password,
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

	ctx.JSON(http.StatusCreated, gin.H{
		"accessToken": token,
	})
}

// Forget kicks off the reset flow. Success means the email is queued, not
// delivered. An unknown address gets a 401, so this endpoint does reveal
// whether an email is registered.
func (h *AuthHandler) Forget(ctx *gin.Context) {
	var req ForgetRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), opTimeout)
	defer cancel()

	err := h.creds.Forget(cctx, req.Email)

	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			RespondUnAuthorized(ctx, "unknown_email", "Email is incorrect.")
			return
		}

		RespondInternal(ctx, "Could not start password reset")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}

func (h *AuthHandler) Reset(ctx *gin.Context) {
	var req ResetRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), opTimeout)
	defer cancel()

	token, err := h.creds.Reset(cctx, req.Password, req.Token)

	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			RespondBadRequest(ctx, "Invalid or expired reset token", nil)
			return
		}

		RespondInternal(ctx, "Could not reset password")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"accessToken": token,
	})
}

// Me echoes the identity claims the access guard attached.
func (h *AuthHandler) Me(ctx *gin.Context) {
	id, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	name, _ := middlewares.NameFromContext(ctx)
	email, _ := middlewares.EmailFromContext(ctx)

	ctx.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":    id,
			"name":  name,
			"email": email,
		},
	})
}

// UploadPhoto stores the caller's profile photo. JPEG only, 10 KiB cap,
// keyed by user id so a re-upload overwrites the previous one.
func (h *AuthHandler) UploadPhoto(ctx *gin.Context) {
	id, ok := middlewares.UserIDFromContext(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	file, err := ctx.FormFile("file")

	if err != nil {
		RespondBadRequest(ctx, "Missing file field", nil)
		return
	}

	if file.Size > maxPhotoBytes {
		RespondBadRequest(ctx, "File too large (max 10KiB)", nil)
		return
	}

	src, err := file.Open()

	if err != nil {
		RespondInternal(ctx, "Could not read upload")
		return
	}
	defer src.Close()

	if ct := file.Header.Get("Content-Type"); ct != photoMIME {
		RespondBadRequest(ctx, "Only image/jpeg is accepted", nil)
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), opTimeout)
	defer cancel()

	key := fmt.Sprintf(photoKeyFormat, id)

	if err := h.files.Put(cctx, key, src, file.Size, photoMIME); err != nil {
		RespondInternal(ctx, "Could not store photo")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"key":     key,
	})
}
