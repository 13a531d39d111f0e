package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"recipebox/internal/account"
	"recipebox/internal/api/middleware"
	"recipebox/internal/model"
	"recipebox/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// TokenIssuer 签发与撤销不透明令牌。
type TokenIssuer interface {
	Issue(ctx context.Context, userID uint) (string, error)
	Revoke(ctx context.Context, userID uint) error
}

// Handler 提供用户注册、令牌签发与个人资料接口。
type Handler struct {
	accounts account.Store
	tokens   TokenIssuer
	logger   *slog.Logger
}

// NewHandler 创建 Auth Handler。
func NewHandler(accounts account.Store, tokens TokenIssuer, logger *slog.Logger) *Handler {
	return &Handler{
		accounts: accounts,
		tokens:   tokens,
		logger:   logger,
	}
}

type createUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=5"`
	Name     string `json:"name"`
}

type tokenRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type updateMeRequest struct {
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

// userResponse 对外的用户表示；密码永不序列化。
type userResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Name: u.Name}
}

// CreateUser 创建新用户。
//
// POST /user/create
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.accounts.CreateUser(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrEmailTaken),
			errors.Is(err, account.ErrEmailRequired),
			errors.Is(err, account.ErrPasswordTooShort):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			if h.logger != nil {
				h.logger.Error("create user failed", slog.String("error", err.Error()))
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "create user failed"})
		}
		return
	}

	metrics.UserRegisteredTotal.Inc()
	if h.logger != nil {
		h.logger.Info("user registered", slog.String("email", user.Email))
	}
	c.JSON(http.StatusCreated, newUserResponse(user))
}

// Token 校验邮箱与密码并返回不透明令牌。
//
// POST /user/token
func (h *Handler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		if h.logger != nil {
			h.logger.Error("authenticate failed", slog.String("error", err.Error()))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authenticate failed"})
		return
	}

	tok, err := h.tokens.Issue(c.Request.Context(), user.ID)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("issue token failed", slog.String("email", user.Email), slog.String("error", err.Error()))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}

	metrics.TokenIssuedTotal.Inc()
	if h.logger != nil {
		h.logger.Info("token issued", slog.String("email", user.Email))
	}
	c.JSON(http.StatusOK, tokenResponse{Token: tok})
}

// Me 返回当前用户的资料。
//
// GET /user/me
func (h *Handler) Me(c *gin.Context) {
	userID := middleware.UserID(c)
	user, err := h.accounts.GetByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load profile failed"})
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

// UpdateMe 更新当前用户的名称或密码（部分更新）。
//
// PATCH /user/me
func (h *Handler) UpdateMe(c *gin.Context) {
	userID := middleware.UserID(c)
	var req updateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.accounts.UpdateProfile(c.Request.Context(), userID, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, account.ErrPasswordTooShort) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if h.logger != nil {
			h.logger.Error("update profile failed", slog.String("error", err.Error()))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update profile failed"})
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user))
}

// Logout 撤销当前用户的令牌。
//
// POST /user/logout
func (h *Handler) Logout(c *gin.Context) {
	userID := middleware.UserID(c)
	if err := h.tokens.Revoke(c.Request.Context(), userID); err != nil {
		if h.logger != nil {
			h.logger.Error("revoke token failed", slog.String("error", err.Error()))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "revoke token failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
