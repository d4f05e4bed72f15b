package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/seatsweep/seatsweep/app/controllers"
	"github.com/seatsweep/seatsweep/app/repository"
	"github.com/seatsweep/seatsweep/internal/pkg/audit"
	"github.com/seatsweep/seatsweep/internal/pkg/billing"
	"github.com/seatsweep/seatsweep/internal/pkg/cache"
	"github.com/seatsweep/seatsweep/internal/pkg/config"
	"github.com/seatsweep/seatsweep/internal/pkg/cryptobox"
	"github.com/seatsweep/seatsweep/internal/pkg/database"
	"github.com/seatsweep/seatsweep/internal/pkg/directory"
	"github.com/seatsweep/seatsweep/internal/pkg/env"
	"github.com/seatsweep/seatsweep/internal/pkg/jobqueue"
	"github.com/seatsweep/seatsweep/internal/pkg/router"
	"github.com/seatsweep/seatsweep/internal/pkg/scoring"
)

func main() {
	app, cfg := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", cfg.AppHost, cfg.AppPort))
	log.Fatal(err)
}

// NewApplication assembles the full service: validated config, database,
// cache, explicitly constructed clients, and the HTTP surface. Clients are
// built here and injected downward, never reached for as globals by the
// core packages, so tests can substitute doubles.
func NewApplication() (*fiber.App, *config.Config) {
	env.SetupEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	if err := database.SetupDatabase(cfg); err != nil {
		log.Fatal(err)
	}
	cache.SetupCache(cfg)
	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalFactory().GetRepositories()

	box, err := cryptobox.New(cfg.CredentialKeyHex)
	if err != nil {
		log.Fatal(err)
	}

	dirClient := directory.NewClient(cfg.DirectoryBaseURL)
	scorer, err := scoring.NewScorer(
		dirClient,
		scoring.DefaultWeights(),
		time.Duration(cfg.LookbackDays)*24*time.Hour,
		cfg.GuestConcurrency,
	)
	if err != nil {
		log.Fatal(err)
	}

	orchestrator := audit.NewOrchestrator(
		repos.Tenant,
		repos.GuestAudit,
		dirClient,
		scorer,
		box,
		cfg.TenantBatchSize,
	)

	claims := billing.NewClaimManager(repos.EventClaim, cfg.ClaimStaleness)
	processor := billing.NewProcessorClient(cfg.PaymentBaseURL, cfg.PaymentAPIKey)
	reconciler := billing.NewReconciler(repos.Tenant, repos.Subscription, processor)

	controllers.InitializeWebhookController(cfg.WebhookSecret, claims, reconciler)
	controllers.InitializeInteractionController(cfg.DirectorySigningSecret, repos.Tenant, repos.GuestAudit)
	controllers.InitializeAuditController(repos.Tenant, repos.GuestAudit)

	queue := jobqueue.NewQueue(orchestrator, repos.GuestAudit, 2)
	jobqueue.InitializeManager(queue).Start()

	app := fiber.New(fiber.Config{
		AppName: "seatsweep",
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	router.InstallRouter(app, cfg.InternalSecret)

	return app, cfg
}
