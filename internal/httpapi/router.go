// Package httpapi wires the gateway's HTTP surface: the ask endpoint, the
// upload echo, the billing routes and operational endpoints.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"ask_gateway/internal/billing"
	"ask_gateway/internal/completion"
	"ask_gateway/internal/config"
	"ask_gateway/internal/middleware"
	"ask_gateway/internal/profile"
	"ask_gateway/internal/quota"
	"ask_gateway/internal/storage"
	"ask_gateway/internal/utils"
)

// Dependencies aggregates the services the HTTP handlers need. Billing and
// Completion are nil when their provider keys are not configured; handlers
// answer 500 for routes that need them.
type Dependencies struct {
	Cfg        *config.Config
	DB         *storage.DB
	Redis      *storage.RedisClient
	Profiles   profile.Store
	Gate       *quota.Gate
	Billing    *billing.Service
	Completion *completion.Gateway

	logger *utils.Logger
}

// NewRouter builds the full handler chain and its dependencies.
func NewRouter(cfg *config.Config) (http.Handler, *Dependencies, error) {
	logger := utils.NewLogger("httpapi")

	db, err := storage.NewDB(storage.DBConfig{
		DSN:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	quotaRepo := storage.NewQuotaRepository(db)
	schemaCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := quotaRepo.EnsureSchema(schemaCtx); err != nil {
		db.Close()
		return nil, nil, err
	}

	deps := &Dependencies{
		Cfg:      cfg,
		DB:       db,
		Profiles: profile.NewNoopStore(),
		Gate:     quota.NewGate(quotaRepo),
		logger:   logger,
	}

	// The profile datastore is optional. A missing or unreachable Redis
	// degrades to the no-op store; billing state then lives only at the
	// provider and the ask path meters everyone.
	if cfg.Redis.Address != "" {
		redisClient, err := storage.NewRedisClient(storage.RedisConfig{
			Address:      cfg.Redis.Address,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			logger.Warn("profile datastore unavailable, continuing without it", "error", err)
		} else {
			deps.Redis = redisClient
			deps.Profiles = profile.NewRedisStore(redisClient.Client())
		}
	}

	if cfg.Stripe.SecretKey != "" {
		api := billing.NewStripeAPI(cfg.Stripe.SecretKey)
		billingLogger := utils.NewLogger("billing")
		directory := billing.NewDirectory(api, deps.Profiles, billingLogger)
		deps.Billing = billing.NewService(api, directory, deps.Profiles,
			cfg.Stripe.PriceID, cfg.Stripe.PublishableKey, billingLogger)
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, billing routes disabled")
	}

	if cfg.OpenAI.APIKey != "" {
		prompt, err := completion.LoadSystemPrompt(cfg.OpenAI.SystemPromptFile)
		if err != nil {
			logger.Warn("system prompt load failed, using default", "error", err)
			prompt = completion.DefaultSystemPrompt
		}
		client := openai.NewClient(cfg.OpenAI.APIKey)
		deps.Completion = completion.NewGateway(client, cfg.OpenAI.Model, prompt)
	} else {
		logger.Warn("OPENAI_API_KEY not set, ask completions disabled")
	}

	mux := http.NewServeMux()

	askHandler := NewAskHandler(deps)
	uploadHandler := NewUploadHandler(deps)
	billingHandler := NewBillingHandler(deps)

	routes := []struct {
		pattern string
		handler http.Handler
	}{
		{"POST /ask", askHandler},
		{"POST /upload", uploadHandler},
		{"GET /billing/config", http.HandlerFunc(billingHandler.Config)},
		{"POST /billing/create-setup-intent", http.HandlerFunc(billingHandler.SetupIntent)},
		{"POST /billing/subscribe", http.HandlerFunc(billingHandler.Subscribe)},
		{"POST /billing/cancel", http.HandlerFunc(billingHandler.Cancel)},
		{"POST /billing/status", http.HandlerFunc(billingHandler.Status)},
		{"GET /health", http.HandlerFunc(deps.handleHealth)},
		{"GET /{$}", http.HandlerFunc(deps.handleIndex)},
	}
	for _, route := range routes {
		mux.Handle(route.pattern, route.handler)
		logger.Debug("route registered", "pattern", route.pattern)
	}
	logger.Info("routes registered", "count", len(routes))

	handler := middleware.CORS(cfg.AllowedOrigins)(middleware.Identity(mux))
	return handler, deps, nil
}

// Close releases the connections held by the dependencies.
func (d *Dependencies) Close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.logger.Warn("failed to close Redis", "error", err)
		}
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			d.logger.Warn("failed to close database", "error", err)
		}
	}
}
