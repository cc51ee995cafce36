package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/nikhilbhutani/promptlab/internal/api/handlers"
	"github.com/nikhilbhutani/promptlab/internal/api/middleware"
	"github.com/nikhilbhutani/promptlab/internal/config"
	"github.com/nikhilbhutani/promptlab/internal/crypto"
	"github.com/nikhilbhutani/promptlab/internal/evaluation"
	"github.com/nikhilbhutani/promptlab/internal/llm"
	"github.com/nikhilbhutani/promptlab/internal/modelconfig"
	"github.com/nikhilbhutani/promptlab/internal/project"
	"github.com/nikhilbhutani/promptlab/internal/prompt"
	"github.com/nikhilbhutani/promptlab/internal/store"
	"github.com/nikhilbhutani/promptlab/internal/template"
	"github.com/nikhilbhutani/promptlab/pkg/tokenizer"
)

type Router struct {
	mux    *chi.Mux
	store  store.Store
	cfg    *config.Config
	llmGW  llm.Gateway
	cipher crypto.Cipher
	tokens tokenizer.Counter
	logger *zap.Logger
}

func NewRouter(st store.Store, gw llm.Gateway, cipher crypto.Cipher, tokens tokenizer.Counter, cfg *config.Config, logger *zap.Logger) *Router {
	return &Router{
		mux:    chi.NewRouter(),
		store:  st,
		cfg:    cfg,
		llmGW:  gw,
		cipher: cipher,
		tokens: tokens,
		logger: logger,
	}
}

// Setup mounts every route. ctx bounds background work started by
// middleware.
func (rt *Router) Setup(ctx context.Context) http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(rt.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(rt.cfg.CORS))

	if rt.cfg.RateLimit.RPS > 0 {
		rl := middleware.NewRateLimiter(ctx, rt.cfg.RateLimit.RPS, rt.cfg.RateLimit.Burst)
		r.Use(rl.Limit)
	}

	health := handlers.NewHealthHandler(rt.store)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// Initialize services
	projectSvc := project.NewService(rt.store, rt.logger)
	templateSvc := template.NewService(rt.store, rt.logger)
	modelSvc := modelconfig.NewService(rt.store, rt.cipher, rt.llmGW, rt.logger)
	promptSvc := prompt.NewService(rt.store, rt.logger)
	evalSvc := evaluation.NewService(rt.store, rt.llmGW, rt.cipher, rt.tokens, rt.logger)

	r.Route("/api/v1", func(r chi.Router) {
		projectH := handlers.NewProjectHandler(projectSvc, rt.logger)
		r.Post("/project", projectH.Create)
		r.Get("/projects", projectH.List)
		r.Get("/project/{id}", projectH.Get)
		r.Put("/project/{id}", projectH.Update)
		r.Delete("/project/{id}", projectH.Delete)

		templateH := handlers.NewTemplateHandler(templateSvc, rt.logger)
		r.Post("/prompt-template", templateH.Create)
		r.Get("/prompt-templates/{project_id}", templateH.ListByProject)
		r.Get("/prompt-template/{id}", templateH.Get)
		r.Put("/prompt-template/{id}", templateH.Update)
		r.Delete("/prompt-template/{id}", templateH.Delete)

		llmH := handlers.NewLLMHandler(modelSvc, rt.logger)
		r.Post("/llms", llmH.Create)
		r.Get("/llms", llmH.List)
		r.Post("/llm/converse", llmH.Converse)
		r.Post("/llm/converse-image", llmH.ConverseImage)
		r.Get("/llm/{id}", llmH.Get)
		r.Put("/llm/{id}", llmH.Update)
		r.Delete("/llm/{id}", llmH.Delete)

		promptH := handlers.NewPromptHandler(promptSvc, rt.logger)
		r.Post("/prompt", promptH.Create)
		r.Get("/prompts/{template_id}", promptH.ListByTemplate)
		r.Get("/prompt/{id}", promptH.Get)
		r.Put("/prompt/{id}", promptH.Update)
		r.Delete("/prompt/{id}", promptH.Delete)

		// /test/{id} and /tests/{id} share one wildcard name per segment;
		// on GET /tests/{id} the id is a prompt id.
		testH := handlers.NewTestHandler(evalSvc, rt.logger)
		r.Post("/test/text", testH.CreateText)
		r.Post("/test/image", testH.CreateImage)
		r.Get("/test/{id}", testH.Get)
		r.Delete("/test/{id}/prompt/{prompt_id}", testH.DeleteAssociation)
		r.Put("/tests/{id}", testH.Update)
		r.Get("/tests/{id}", testH.ListByPrompt)
	})

	return r
}
