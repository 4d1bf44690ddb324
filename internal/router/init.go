package router

import (
	"github.com/linkstack/referral-api/internal/application"
	"github.com/linkstack/referral-api/internal/container"
	pginfra "github.com/linkstack/referral-api/internal/infrastructure/postgres"
	handlers "github.com/linkstack/referral-api/internal/interface/http"
	"github.com/linkstack/referral-api/internal/router/modules"
	"github.com/linkstack/referral-api/pkg/helpers"
)

// InitModules initializes all application modules and registers them with
// the router registry. Called once during startup.
func InitModules(r *Registry) {
	users := pginfra.NewUserRepository(container.GetPGPool())
	referrals := pginfra.NewReferralRepository(container.GetPGPool())

	var ledger application.ResetTokenLedger
	if rdb := container.GetRedis(); rdb != nil {
		ledger = helpers.NewRedisResetLedger(rdb)
	}

	svc := application.NewService(
		users,
		referrals,
		container.GetTokens(),
		ledger,
		container.GetLogger(),
	)

	authHandler := handlers.NewAuthHandler(
		svc,
		container.GetLogger(),
		container.GetConfig(),
		container.GetRabbitPub(),
	)
	referralHandler := handlers.NewReferralHandler(svc, container.GetLogger())

	r.Add(modules.NewHealthModule())
	r.Add(modules.NewAccountModule(authHandler))
	r.Add(modules.NewReferralModule(referralHandler, svc, container.GetTokens()))
}
