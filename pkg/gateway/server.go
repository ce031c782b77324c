// Package gateway exposes the evaluation pipeline over HTTP. Channel
// adapters submit payloads to POST /v1/evaluate and act on the returned
// decision; they never see a raw payload again after submission.
package gateway

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v3"

	"github.com/moltbot/rampart/pkg/config"
	"github.com/moltbot/rampart/pkg/content"
	"github.com/moltbot/rampart/pkg/httputil"
	"github.com/moltbot/rampart/pkg/pipeline"
	"github.com/moltbot/rampart/pkg/policy"
	"github.com/moltbot/rampart/pkg/signature"
	"github.com/moltbot/rampart/pkg/telemetry"
)

const Version = "0.1.0"

// EvaluateRequest is the submission contract for channel adapters.
type EvaluateRequest struct {
	Text          string `json:"text"`
	DeclaredType  string `json:"declared_type,omitempty"`
	SourceChannel string `json:"source_channel"`
	SourceClass   string `json:"source_class,omitempty"` // chat (default), webhook, email
	TrustTier     string `json:"trust_tier,omitempty"`   // unauthenticated (default), signed, paired
}

// EvaluateResponse carries the decision. AnnotatedPayload is absent on
// block; a blocked payload never leaves the gateway.
type EvaluateResponse struct {
	Action            string   `json:"action"`
	RiskScore         int      `json:"risk_score"`
	MatchedCategories []string `json:"matched_categories"`
	Penalties         []string `json:"penalties,omitempty"`
	AnnotatedPayload  string   `json:"annotated_payload,omitempty"`
	RecordID          string   `json:"record_id"`
}

// Server wires the pipeline behind the HTTP surface with admission
// control in front.
type Server struct {
	app      *fiber.App
	pipeline *pipeline.Pipeline
	registry *signature.Registry
	limiter  *httputil.Limiter
	counters *telemetry.Counters
	cfg      *config.Config
}

func NewServer(cfg *config.Config, pl *pipeline.Pipeline, reg *signature.Registry, counters *telemetry.Counters) *Server {
	s := &Server{
		app: fiber.New(fiber.Config{
			AppName:   "Rampart",
			BodyLimit: cfg.MaxBytesFor(config.SourceWebhook) + 64*1024,
		}),
		pipeline: pl,
		registry: reg,
		limiter:  httputil.NewLimiter(cfg.MaxConcurrent),
		counters: counters,
		cfg:      cfg,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/health", s.handleHealth)
	s.app.Post("/v1/evaluate", s.handleEvaluate)
	s.app.Get("/v1/registry", s.handleRegistry)
}

func (s *Server) handleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":           "ok",
		"version":          Version,
		"registry_version": s.registry.Snapshot().Version(),
		"counters":         s.counters.Snapshot(),
		"limiter":          s.limiter.Stats(),
	})
}

func (s *Server) handleEvaluate(c fiber.Ctx) error {
	if !s.limiter.TryAcquire() {
		s.counters.ObserveRejected()
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error": "evaluation capacity exhausted, retry later",
		})
	}
	defer s.limiter.Release()

	var req EvaluateRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	// Empty text is valid input: it normalizes cleanly and scores zero.
	if req.SourceChannel == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "source_channel field is required"})
	}

	class := config.SourceClass(req.SourceClass)
	switch class {
	case config.SourceChat, config.SourceWebhook, config.SourceEmail:
	case "":
		class = config.SourceChat
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown source_class"})
	}

	out, err := s.pipeline.Evaluate(c.Context(), content.Input{
		RawBytes:      []byte(req.Text),
		DeclaredType:  req.DeclaredType,
		SourceChannel: req.SourceChannel,
		SourceClass:   class,
		Tier:          content.ParseTier(req.TrustTier),
	})
	if err != nil {
		var sizeErr *content.SizeError
		if errors.As(err, &sizeErr) {
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
				"error": sizeErr.Error(),
			})
		}
		if errors.Is(err, content.ErrInvalidEncoding) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		log.Printf("[GATEWAY] evaluation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "evaluation failed"})
	}

	resp := EvaluateResponse{
		Action:            string(out.Decision.Action),
		RiskScore:         out.Assessment.Score,
		MatchedCategories: out.Assessment.Categories,
		Penalties:         out.Assessment.Penalties,
		RecordID:          out.Record.RecordID,
	}
	if out.Decision.Action != policy.ActionBlock && out.Decision.Content != nil {
		resp.AnnotatedPayload = out.Decision.Content.Annotated()
	}
	return c.JSON(resp)
}

func (s *Server) handleRegistry(c fiber.Ctx) error {
	snap := s.registry.Snapshot()
	counts := fiber.Map{}
	for _, cat := range signature.Categories {
		counts[string(cat)] = len(snap.ByCategory(cat))
	}
	return c.JSON(fiber.Map{
		"version":    snap.Version(),
		"signatures": snap.Len(),
		"categories": counts,
	})
}

// Listen blocks serving HTTP on the configured address.
func (s *Server) Listen() error {
	log.Printf("[GATEWAY] listening on %s", s.cfg.ListenAddr)
	return s.app.Listen(s.cfg.ListenAddr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
