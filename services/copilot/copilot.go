// Copyright (C) 2026 PeakWatt AI (dev@peakwatt.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package copilot provides the decision co-pilot service for PeakWatt.
//
// This package contains the main Service type that coordinates all
// components: HTTP routing, the reasoning loop, the LLM backend, and
// observability infrastructure.
//
// # Usage
//
//	cfg := copilot.Config{Port: 12310, LLMBackend: "ollama"}
//	svc, err := copilot.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package copilot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/PeakWattAI/PeakWattFOSS/services/copilot/agent"
	"github.com/PeakWattAI/PeakWattFOSS/services/copilot/handlers"
	"github.com/PeakWattAI/PeakWattFOSS/services/copilot/observability"
	"github.com/PeakWattAI/PeakWattFOSS/services/copilot/routes"
	"github.com/PeakWattAI/PeakWattFOSS/services/llm"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the co-pilot service.
//
// # Description
//
// Service abstracts the service lifecycle, enabling testing and
// alternative implementations. Run() blocks and should only be called
// once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	//
	// # Limitations
	//
	//   - Should not be used to modify routes after construction
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds co-pilot service configuration options.
//
// All fields are optional; zero values get defaults applied by New().
type Config struct {
	// Port is the HTTP server port. Default: 12310
	Port int

	// LLMBackend specifies the reasoning provider.
	// Valid values: "ollama", "openai", "claude", "anthropic"
	// Default: "ollama"
	LLMBackend string

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "peakwatt-otel-collector:4317"
	OTelEndpoint string

	// EnableMetrics enables the Prometheus metrics endpoint.
	// Default: true
	EnableMetrics bool

	// GinMode sets the Gin framework mode.
	// Valid values: "debug", "release", "test"
	// Default: uses GIN_MODE env var or "debug"
	GinMode string

	// AuthToken protects the /v1 API when set. Empty disables auth.
	AuthToken string

	// MaxConcurrentSessions caps sessions running at once across the
	// process. Zero or negative means unlimited.
	MaxConcurrentSessions int

	// GateMode controls behavior at the concurrency cap.
	// Valid values: "reject", "queue". Default: "reject"
	GateMode string

	// MaxIterations is the default thinking-step cap per session.
	// Default: 5
	MaxIterations int

	// SessionTimeout bounds each session's thinking phase.
	// Default: 5 minutes
	SessionTimeout time.Duration

	// ConfidenceTarget is the default confidence at which a session
	// proceeds to execution early. Default: 0.75
	ConfidenceTarget float64

	// CreateSessionsPerSecond throttles session creation.
	// Zero disables rate limiting.
	CreateSessionsPerSecond float64
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// Thread-safe after construction. All fields are read-only after New()
// returns.
type service struct {
	config        Config
	router        *gin.Engine
	llmClient     llm.LLMClient
	loop          *agent.DefaultCopilotLoop
	tracerCleanup func(context.Context)
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a co-pilot Service with the given configuration.
//
// # Description
//
// New initializes all components:
//  1. Applies default configuration for missing values
//  2. Initializes OpenTelemetry tracing
//  3. Initializes Prometheus metrics
//  4. Creates the LLM client based on backend type
//  5. Builds the reasoning loop with its concurrency gate
//  6. Sets up HTTP routes
//
// # Inputs
//
//   - cfg: Service configuration. Zero values use defaults.
//
// # Outputs
//
//   - Service: Ready-to-run co-pilot service
//   - error: Non-nil if initialization fails
//
// # Assumptions
//
//   - Environment variables are set for the chosen LLM provider
//   - Network is available for external service connections
func New(cfg Config) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	cleanup, err := s.initTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	if s.config.EnableMetrics {
		observability.InitMetrics()
		slog.Info("Initialized Prometheus metrics for co-pilot sessions")
	}

	if err := s.initLLMClient(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	s.initLoop()
	s.initRouter()

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting co-pilot server", "port", s.config.Port)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12310
	}
	if cfg.LLMBackend == "" {
		cfg.LLMBackend = "ollama"
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "peakwatt-otel-collector:4317"
	}
	cfg.EnableMetrics = true

	if cfg.GateMode == "" {
		cfg.GateMode = string(agent.GateModeReject)
	}
	defaults := agent.DefaultSessionConfig()
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = defaults.MaxIterations
	}
	if cfg.SessionTimeout == 0 {
		cfg.SessionTimeout = defaults.Timeout
	}
	if cfg.ConfidenceTarget == 0 {
		cfg.ConfidenceTarget = defaults.ConfidenceTarget
	}

	return cfg
}

// initTracer initializes OpenTelemetry distributed tracing.
//
// Uses an insecure gRPC connection, appropriate for internal networks.
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("copilot-service")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

// initLLMClient initializes the reasoning backend client.
func (s *service) initLLMClient() error {
	var err error

	switch s.config.LLMBackend {
	case "openai":
		s.llmClient, err = llm.NewOpenAIClient()
		slog.Info("Using OpenAI reasoning backend")
	case "ollama":
		s.llmClient, err = llm.NewOllamaClient()
		slog.Info("Using Ollama reasoning backend")
	case "claude", "anthropic":
		s.llmClient, err = llm.NewAnthropicClient()
		slog.Info("Using Anthropic (Claude) reasoning backend")
	default:
		slog.Warn("Unknown LLM backend, defaulting to ollama", "backend", s.config.LLMBackend)
		s.llmClient, err = llm.NewOllamaClient()
	}

	return err
}

// initLoop builds the reasoning loop with its session store, concurrency
// gate, and metrics observer.
func (s *service) initLoop() {
	opts := []agent.LoopOption{
		agent.WithConcurrencyGate(
			agent.NewConcurrencyGate(s.config.MaxConcurrentSessions, agent.GateMode(s.config.GateMode))),
	}
	if s.config.EnableMetrics {
		opts = append(opts, agent.WithMetrics(observability.DefaultMetrics))
	}

	s.loop = agent.NewDefaultCopilotLoop(s.llmClient, opts...)
}

// initRouter sets up the Gin HTTP router with all routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("copilot-service"))

	sessionDefaults := agent.SessionConfig{
		MaxIterations:    s.config.MaxIterations,
		ConfidenceTarget: s.config.ConfidenceTarget,
		Timeout:          s.config.SessionTimeout,
	}
	copilotHandler := handlers.NewCopilotHandler(s.loop, sessionDefaults,
		s.config.CreateSessionsPerSecond)

	routes.SetupRoutes(s.router, copilotHandler, s.config.AuthToken)
}

// cleanup releases resources held by the service.
func (s *service) cleanup() {
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}
