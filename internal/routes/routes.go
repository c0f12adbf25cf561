package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/saeid-a/FitOnboardBack/internal/config"
	"github.com/saeid-a/FitOnboardBack/internal/handlers"
	"github.com/saeid-a/FitOnboardBack/internal/middleware"
	"github.com/saeid-a/FitOnboardBack/internal/onboarding"
	"github.com/saeid-a/FitOnboardBack/internal/repository"
	"github.com/saeid-a/FitOnboardBack/internal/services"
	"github.com/saeid-a/FitOnboardBack/internal/snapshot"
	statews "github.com/saeid-a/FitOnboardBack/internal/websocket"
	"go.uber.org/zap"
)

type Dependencies struct {
	Config    *config.Config
	DB        *pgxpool.Pool
	Snapshots snapshot.Store
	Steps     onboarding.StepTable
	Logger    *zap.Logger
	// Registry is nil when metrics are disabled.
	Registry *prometheus.Registry
}

// RegisterRoutes wires repositories, services and handlers onto app. The
// returned hub is already running; callers stop it on shutdown.
func RegisterRoutes(app *fiber.App, deps Dependencies) *statews.Hub {
	cfg := deps.Config
	log := deps.Logger

	userRepo := repository.NewUserRepository(deps.DB)
	userInfoRepo := repository.NewUserInfoRepository(deps.DB)
	planRepo := repository.NewPlanRepository(deps.DB)
	subscriptionRepo := repository.NewSubscriptionRepository(deps.DB)
	catalogRepo := repository.NewCatalogRepository(deps.DB)

	stateHub := statews.NewHub(log.Named("hub"))
	go stateHub.Run()

	wizardService := services.NewWizardService(deps.Snapshots, deps.Steps, userInfoRepo, stateHub, log.Named("wizard"))
	authService := services.NewAuthService(userRepo, userInfoRepo, wizardService, cfg.JWTSecret, log.Named("auth"))
	gateway := services.NewStripeGateway(cfg.StripeBaseURL, cfg.StripeAPIKey)
	subscriptionService := services.NewSubscriptionService(planRepo, subscriptionRepo, userRepo, gateway, log.Named("subscriptions"))

	authHandler := handlers.NewAuthHandler(authService)
	onboardingHandler := handlers.NewOnboardingHandler(wizardService, stateHub)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService)
	catalogHandler := handlers.NewCatalogHandler(catalogRepo)

	if deps.Registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	requireAuth := middleware.AuthRequired(cfg.JWTSecret)
	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/social-login", authHandler.SocialLogin)
	auth.Get("/me", requireAuth, authHandler.Me)
	auth.Post("/logout", requireAuth, authHandler.Logout)

	v1 := api.Group("/v1")
	v1.Get("/catalog/:kind", catalogHandler.List)
	v1.Get("/subscriptions/plans", subscriptionHandler.ListPlans)

	onboardingRoutes := v1.Group("/onboarding", requireAuth)
	onboardingRoutes.Get("/state", onboardingHandler.State)
	onboardingRoutes.Delete("/state", onboardingHandler.Reset)
	onboardingRoutes.Patch("/fields", onboardingHandler.UpdateFields)
	onboardingRoutes.Patch("/fields/:name", onboardingHandler.UpdateField)
	onboardingRoutes.Put("/step", onboardingHandler.SetStep)
	onboardingRoutes.Post("/navigate", onboardingHandler.Navigate)
	onboardingRoutes.Post("/advance", onboardingHandler.Advance)
	onboardingRoutes.Post("/back", onboardingHandler.Back)
	onboardingRoutes.Put("/date-of-birth", onboardingHandler.SetDateOfBirth)
	onboardingRoutes.Post("/units/toggle", onboardingHandler.ToggleUnits)
	onboardingRoutes.Put("/measurements", onboardingHandler.SetMeasurement)
	onboardingRoutes.Get("/steps/:step/validity", onboardingHandler.StepValidity)
	onboardingRoutes.Get("/payload", onboardingHandler.Payload)
	onboardingRoutes.Post("/submit", onboardingHandler.Submit)
	onboardingRoutes.Use("/ws", onboardingHandler.WebSocketUpgrade)
	onboardingRoutes.Get("/ws", websocket.New(onboardingHandler.HandleWebSocket))

	subscriptions := v1.Group("/subscriptions", requireAuth)
	subscriptions.Post("/purchase", subscriptionHandler.Purchase)
	subscriptions.Post("/:id/confirm", subscriptionHandler.Confirm)

	return stateHub
}
