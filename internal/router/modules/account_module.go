package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/linkstack/referral-api/internal/interface/http"
)

// AccountModule wires the public account-lifecycle endpoints:
// POST /api/register, /api/login, /api/forgot-password, /api/reset-password.
type AccountModule struct {
	Handler *handlers.AuthHandler
}

func NewAccountModule(h *handlers.AuthHandler) *AccountModule {
	return &AccountModule{Handler: h}
}

func (m *AccountModule) Register(rg *gin.RouterGroup) {
	rg.POST("/register", m.Handler.Register)
	rg.POST("/login", m.Handler.Login)
	rg.POST("/forgot-password", m.Handler.ForgotPassword)
	rg.POST("/reset-password", m.Handler.ResetPassword)
}
