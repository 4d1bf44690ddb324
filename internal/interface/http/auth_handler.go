package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/linkstack/referral-api/config"
	"github.com/linkstack/referral-api/internal/application"
	"github.com/linkstack/referral-api/internal/domain/entity"
	"github.com/linkstack/referral-api/pkg/helpers"
	"github.com/linkstack/referral-api/pkg/mailer"
	tpl "github.com/linkstack/referral-api/pkg/mailer/templates"
	"github.com/linkstack/referral-api/pkg/response"
	"github.com/linkstack/referral-api/pkg/validation"
)

type AuthHandler struct {
	Svc    *application.Service
	Logger *logrus.Logger
	Cfg    *config.Config
	Pub    *helpers.RabbitPublisher
}

func NewAuthHandler(svc *application.Service, logger *logrus.Logger, cfg *config.Config, pub *helpers.RabbitPublisher) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cfg: cfg, Pub: pub}
}

func clientIP(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	return c.ClientIP()
}

type registerRequest struct {
	Username     string `json:"username" binding:"required,min=3,max=50"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,pwd"`
	ReferralCode string `json:"referral_code"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,pwd"`
}

// userPayload shapes a user for API responses; the credential hash never
// leaves the service.
func userPayload(u *entity.User) gin.H {
	return gin.H{
		"id":            u.ID,
		"username":      u.Username,
		"email":         u.Email,
		"referral_code": u.ReferralCode,
		"referred_by":   u.ReferredBy,
		"created_at":    u.CreatedAt,
	}
}

// Register POST /api/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.Register(c.Request.Context(), application.RegisterInput{
		Username:     req.Username,
		Email:        req.Email,
		Password:     req.Password,
		ReferralCode: req.ReferralCode,
	})
	switch {
	case errors.Is(err, application.ErrDuplicateIdentity):
		response.Error[any](c, http.StatusBadRequest, "email or username already registered", nil)
		return
	case errors.Is(err, application.ErrInvalidReferralCode):
		response.Error[any](c, http.StatusBadRequest, "invalid referral code", nil)
		return
	case err != nil:
		if h.Logger != nil {
			h.Logger.WithError(err).Error("register failed")
		}
		response.Error[any](c, http.StatusInternalServerError, "registration failed", nil)
		return
	}
	response.Success(c, http.StatusCreated, userPayload(u), "user registered")
}

// Login POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	token, exp, err := h.Svc.Login(c.Request.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, application.ErrAuthenticationFailed):
		if h.Logger != nil {
			h.Logger.WithFields(logrus.Fields{
				"username": req.Username,
				"ip":       clientIP(c),
			}).Warn("login failed")
		}
		response.Error[any](c, http.StatusUnauthorized, "incorrect username or password", nil)
		return
	case err != nil:
		if h.Logger != nil {
			h.Logger.WithError(err).Error("login failed")
		}
		response.Error[any](c, http.StatusInternalServerError, "login failed", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"expires_at":   exp,
	}, "login successful")
}

// ForgotPassword POST /api/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	token, exp, err := h.Svc.RequestPasswordReset(c.Request.Context(), req.Email)
	switch {
	case errors.Is(err, application.ErrNotFound):
		response.Error[any](c, http.StatusNotFound, "email not found", nil)
		return
	case err != nil:
		if h.Logger != nil {
			h.Logger.WithError(err).Error("password reset request failed")
		}
		response.Error[any](c, http.StatusInternalServerError, "password reset request failed", nil)
		return
	}

	h.deliverResetToken(c, req.Email, token, exp)
	response.Success[any](c, http.StatusOK, nil, "password reset instructions sent")
}

// deliverResetToken enqueues the reset email when mailing is enabled and
// otherwise surfaces the token in the log for out-of-band delivery.
func (h *AuthHandler) deliverResetToken(c *gin.Context, email, token string, exp time.Time) {
	expiresIn := time.Until(exp).Round(time.Minute)
	if h.Pub != nil && h.Cfg != nil && h.Cfg.MailSendEnabled {
		job := mailer.EmailJob{
			To:       email,
			Template: tpl.ResetPassword,
			Data: map[string]any{
				"Username":  email,
				"Token":     token,
				"ExpiresIn": expiresIn.String(),
			},
		}
		if err := h.Pub.PublishJSON(c.Request.Context(), job); err == nil {
			return
		} else if h.Logger != nil {
			h.Logger.WithError(err).Warn("failed to enqueue reset email, falling back to log")
		}
	}
	if h.Logger != nil {
		h.Logger.WithFields(logrus.Fields{"email": email, "token": token}).Info("password reset token issued")
	}
}

// ResetPassword POST /api/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	err := h.Svc.ConfirmPasswordReset(c.Request.Context(), req.Token, req.NewPassword)
	switch {
	case errors.Is(err, application.ErrInvalidToken):
		response.Error[any](c, http.StatusBadRequest, "invalid or expired token", nil)
		return
	case errors.Is(err, application.ErrNotFound):
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
		return
	case err != nil:
		if h.Logger != nil {
			h.Logger.WithError(err).Error("password reset failed")
		}
		response.Error[any](c, http.StatusInternalServerError, "password reset failed", nil)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "password updated successfully")
}
