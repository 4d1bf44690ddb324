package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/linkstack/referral-api/internal/application"
	"github.com/linkstack/referral-api/internal/domain/entity"
	"github.com/linkstack/referral-api/pkg/response"
)

type ReferralHandler struct {
	Svc    *application.Service
	Logger *logrus.Logger
}

func NewReferralHandler(svc *application.Service, logger *logrus.Logger) *ReferralHandler {
	return &ReferralHandler{Svc: svc, Logger: logger}
}

func referralPayload(r entity.Referral) gin.H {
	return gin.H{
		"id":               r.ID,
		"referrer_id":      r.ReferrerID,
		"referred_user_id": r.ReferredUserID,
		"date_referred":    r.DateReferred,
		"status":           r.Status,
	}
}

// List GET /api/referrals (auth required)
func (h *ReferralHandler) List(c *gin.Context) {
	uid := c.GetInt64("userID")
	refs, err := h.Svc.ListReferrals(c.Request.Context(), uid)
	if err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).WithField("user_id", uid).Error("list referrals failed")
		}
		response.Error[any](c, http.StatusInternalServerError, "failed to list referrals", nil)
		return
	}
	out := make([]gin.H, 0, len(refs))
	for _, r := range refs {
		out = append(out, referralPayload(r))
	}
	response.Success(c, http.StatusOK, out, "referrals")
}

// Stats GET /api/referral-stats (auth required)
func (h *ReferralHandler) Stats(c *gin.Context) {
	uid := c.GetInt64("userID")
	stats, err := h.Svc.ReferralStats(c.Request.Context(), uid)
	if err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).WithField("user_id", uid).Error("referral stats failed")
		}
		response.Error[any](c, http.StatusInternalServerError, "failed to load referral stats", nil)
		return
	}
	response.Success(c, http.StatusOK, stats, "referral stats")
}
