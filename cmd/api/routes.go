package main

import (
	"log/slog"
	"net/http"

	"github.com/devlinkgh/backend/internal/admin"
	"github.com/devlinkgh/backend/internal/auth"
	"github.com/devlinkgh/backend/internal/escrow"
	"github.com/devlinkgh/backend/internal/gateway"
	"github.com/devlinkgh/backend/internal/handlers"
	"github.com/devlinkgh/backend/internal/ledger"
	"github.com/devlinkgh/backend/internal/middleware"
	"github.com/devlinkgh/backend/internal/models"
	"github.com/devlinkgh/backend/internal/reconcile"
	"github.com/devlinkgh/backend/internal/repository"
)

type routeDeps struct {
	AuthSvc     auth.Service
	AuthHandler *auth.Handler
	Engine      *escrow.Engine
	Gateway     *gateway.Client
	Store       *ledger.PG
	Users       *repository.UserRepo
	Projects    *repository.ProjectRepo
	Tasks       *repository.TaskRepo
	Queue       *reconcile.Queue
	Logger      *slog.Logger
}

// registerRoutes adds all /v1/ endpoints to the mux.
// Middleware chain: JWTAuth -> (RequireRole on admin/payout routes) -> handler.
func registerRoutes(mux *http.ServeMux, d routeDeps) error {
	wh := &handlers.WalletHandler{
		Gateway: d.Gateway,
		Engine:  d.Engine,
		Ledger:  d.Store,
		Users:   d.Users,
		Logger:  d.Logger,
	}
	ph := &handlers.ProjectHandler{
		Projects: d.Projects,
		Engine:   d.Engine,
		Logger:   d.Logger,
	}
	th := &handlers.TaskHandler{
		Tasks:    d.Tasks,
		Projects: d.Projects,
		Engine:   d.Engine,
		Logger:   d.Logger,
	}
	webhook, err := handlers.NewWebhookHandler(d.Queue, d.Logger)
	if err != nil {
		return err
	}
	adminHandler := admin.NewHandler(d.Store, d.Logger)

	authn := middleware.JWTAuth(d.AuthSvc)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	// Public
	mux.HandleFunc("POST /v1/auth/register", d.AuthHandler.Register)
	mux.HandleFunc("POST /v1/auth/login", d.AuthHandler.Login)
	mux.HandleFunc("POST /v1/gateway/webhook", webhook.Handle)

	// Wallet. The verify redirect carries no session when the processor
	// sends the user back, so it is public; the reference alone cannot
	// credit anyone twice.
	mux.Handle("POST /v1/wallet/deposits", authn(http.HandlerFunc(wh.InitiateDeposit)))
	mux.HandleFunc("GET /v1/wallet/deposits/verify", wh.VerifyDeposit)
	mux.Handle("GET /v1/wallet", authn(http.HandlerFunc(wh.GetWallet)))

	// Projects
	mux.Handle("POST /v1/projects", authn(http.HandlerFunc(ph.CreateProject)))
	mux.Handle("GET /v1/projects", authn(http.HandlerFunc(ph.ListProjects)))
	mux.Handle("POST /v1/projects/{id}/fund", authn(http.HandlerFunc(ph.FundEscrow)))

	// Tasks
	mux.Handle("POST /v1/tasks", authn(http.HandlerFunc(th.CreateTask)))
	mux.Handle("POST /v1/tasks/{id}/assign", authn(http.HandlerFunc(th.AssignTask)))
	mux.Handle("POST /v1/tasks/{id}/payout", authn(adminOnly(http.HandlerFunc(th.Payout))))

	// Admin ledger review
	mux.Handle("GET /v1/admin/transactions", authn(adminOnly(http.HandlerFunc(adminHandler.ListTransactions))))
	mux.Handle("GET /v1/admin/transactions/export", authn(adminOnly(http.HandlerFunc(adminHandler.ExportTransactions))))

	return nil
}
