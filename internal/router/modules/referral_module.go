package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/linkstack/referral-api/internal/application"
	handlers "github.com/linkstack/referral-api/internal/interface/http"
	"github.com/linkstack/referral-api/internal/interface/middleware"
	"github.com/linkstack/referral-api/pkg/helpers"
)

// ReferralModule wires the authenticated referral endpoints:
// GET /api/referrals, GET /api/referral-stats.
type ReferralModule struct {
	Handler *handlers.ReferralHandler
	Svc     *application.Service
	Tokens  *helpers.TokenManager
}

func NewReferralModule(h *handlers.ReferralHandler, svc *application.Service, tokens *helpers.TokenManager) *ReferralModule {
	return &ReferralModule{Handler: h, Svc: svc, Tokens: tokens}
}

func (m *ReferralModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Svc, m.Tokens))
	{
		auth.GET("/referrals", m.Handler.List)
		auth.GET("/referral-stats", m.Handler.Stats)
	}
}
