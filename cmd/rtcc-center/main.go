package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/aldric144/rtcc-platform/internal/audit"
	"github.com/aldric144/rtcc-platform/internal/continuity"
	"github.com/aldric144/rtcc-platform/internal/dispatch"
	"github.com/aldric144/rtcc-platform/internal/fusion"
	"github.com/aldric144/rtcc-platform/internal/guardrail"
	"github.com/aldric144/rtcc-platform/internal/metrics"
	"github.com/aldric144/rtcc-platform/internal/safety"
	"github.com/aldric144/rtcc-platform/internal/transport"
	"github.com/aldric144/rtcc-platform/internal/transport/notify"
	"github.com/aldric144/rtcc-platform/internal/zerotrust"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var configFlag string

var rootCmd = &cobra.Command{
	Use:     "rtcc-center",
	Short:   "RTCC Center - Real-Time Crime Center fusion, dispatch, and safety backend",
	Long:    `Event fusion, auto-dispatch, officer safety, guardrail, continuity, and zero-trust engines for a Real-Time Crime Center deployment.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rtcc-center %s\n", Version)
		if BuildTime != "unknown" {
			fmt.Printf("Built: %s\n", BuildTime)
		}
		if GitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", GitCommit)
		}
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Validate and print the effective configuration",
	Run: func(cmd *cobra.Command, args []string) {
		cfgPath := resolveConfigPath()
		cfg, err := loadConfig(cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("config_path: %s\n", cfgPath)
		fmt.Printf("listen_addr: %s\n", cfg.ListenAddr)
		fmt.Printf("metrics_address: %s\n", cfg.MetricsAddress)
		fmt.Printf("log_level: %s\n", cfg.LogLevel)
		fmt.Printf("fusion.auto_verify_threshold: %.2f\n", cfg.Fusion.AutoVerifyThreshold)
		fmt.Printf("dispatch.min_battery_pct: %.2f\n", cfg.Dispatch.MinBatteryPct)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to configuration file (default: /etc/rtcc-center/config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func resolveConfigPath() string {
	cfgPath := configFlag
	if cfgPath == "" {
		cfgPath = os.Getenv("RTCC_CENTER_CONFIG")
	}
	if cfgPath == "" {
		cfgPath = defaultConfigPath
	}
	return cfgPath
}

func parseLogLevel(levelStr string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled", "none":
		return zerolog.Disabled
	default:
		log.Warn().Str("level", levelStr).Msg("Unknown log level, defaulting to info")
		return zerolog.InfoLevel
	}
}

// defaultGuardrailRules returns the constitutional/statutory precedence
// chain a deployment is expected to override with its own legal review;
// it establishes the layer ordering the engine's precedence evaluation
// depends on even before any agency-specific rule is added.
func defaultGuardrailRules() []guardrail.Rule {
	return []guardrail.Rule{
		{
			Layer:     guardrail.LayerConstitutional,
			Name:      "fourth_amendment_search_scope",
			Category:  "search_and_seizure",
			Priority:  100,
			Active:    true,
			Citations: []string{"U.S. Const. amend. IV"},
			Reason:    "a search without probable cause or consent exceeds constitutional scope",
			Condition: func(ctx guardrail.ActionContext) bool {
				return ctx.ActionType == "search" && !ctx.ProbableCause && !ctx.ConsentGiven
			},
			Action: guardrail.ActionDeny,
		},
		{
			Layer:     guardrail.LayerFederalStatute,
			Name:      "miranda_required_before_interrogation",
			Category:  "interrogation",
			Priority:  90,
			Active:    true,
			Reason:    "custodial interrogation without a Miranda warning is inadmissible",
			Condition: func(ctx guardrail.ActionContext) bool {
				return ctx.ActionType == "interrogation" && !ctx.MirandaRead
			},
			Action: guardrail.ActionDeny,
		},
	}
}

// defaultDispatchRules returns a conservative trigger-rule table for
// the specification's named trigger types; critical triggers always
// escalate regardless of the rule's MinPriority, per dispatch's
// criticalTriggers table.
func defaultDispatchRules() map[dispatch.TriggerType]dispatch.TriggerRule {
	return map[dispatch.TriggerType]dispatch.TriggerRule{
		dispatch.TriggerGunshot: {
			Enabled:              true,
			MinPriority:          dispatch.PriorityHigh,
			RequiredCapabilities: []string{"camera"},
			ResponseRadiusMeters: 2000,
		},
		dispatch.TriggerOfficerDistress: {
			Enabled:              true,
			MinPriority:          dispatch.PriorityCritical,
			ResponseRadiusMeters: 3000,
		},
		dispatch.TriggerAmbush: {
			Enabled:              true,
			MinPriority:          dispatch.PriorityCritical,
			ResponseRadiusMeters: 3000,
		},
		dispatch.TriggerHotVehicle: {
			Enabled:              true,
			MinPriority:          dispatch.PriorityHigh,
			RequiredCapabilities: []string{"camera"},
			ResponseRadiusMeters: 1500,
		},
		dispatch.TriggerPursuit: {
			Enabled:              true,
			MinPriority:          dispatch.PriorityUrgent,
			RequiredCapabilities: []string{"camera"},
			ResponseRadiusMeters: 2500,
			RequireApproval:      true,
		},
		dispatch.TriggerEmergencyCall: {
			Enabled:              true,
			MinPriority:          dispatch.PriorityNormal,
			ResponseRadiusMeters: 1500,
		},
		dispatch.TriggerMissingPerson: {
			Enabled:              true,
			MinPriority:          dispatch.PriorityNormal,
			ResponseRadiusMeters: 5000,
		},
		dispatch.TriggerCrash: {
			Enabled:              true,
			MinPriority:          dispatch.PriorityHigh,
			ResponseRadiusMeters: 1000,
		},
		dispatch.TriggerPerimeterBreach: {
			Enabled:              true,
			MinPriority:          dispatch.PriorityUrgent,
			RequiredCapabilities: []string{"camera", "thermal"},
			ResponseRadiusMeters: 1000,
			RequireApproval:      true,
		},
		dispatch.TriggerActiveShooter: {
			Enabled:              true,
			MinPriority:          dispatch.PriorityCritical,
			ResponseRadiusMeters: 3000,
		},
		dispatch.TriggerManual: {
			Enabled:              true,
			MinPriority:          dispatch.PriorityNormal,
			ResponseRadiusMeters: 2000,
		},
	}
}

func zeroTrustRoles() []zerotrust.Role {
	return []zerotrust.Role{
		{Name: "patrol_officer", AllowedResources: []string{"dispatch/*", "events/own/*"}, TrustLevel: 0.6, SessionTimeout: 8 * time.Hour},
		{Name: "supervisor", AllowedResources: []string{"*"}, TrustLevel: 0.8, RequireMFA: true, SessionTimeout: 12 * time.Hour},
		{Name: "analyst", AllowedResources: []string{"events/*", "fusion/*"}, TrustLevel: 0.7, RequireMFA: true, SessionTimeout: 8 * time.Hour},
		{Name: "admin", AllowedResources: []string{"*"}, TrustLevel: 0.95, RequireMFA: true, RequireManagedDevice: true, SessionTimeout: 4 * time.Hour},
	}
}

func runServer() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfgPath := resolveConfigPath()
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	zerolog.SetGlobalLevel(parseLogLevel(cfg.LogLevel))

	log.Info().
		Str("config_path", cfgPath).
		Str("listen_addr", cfg.ListenAddr).
		Str("version", Version).
		Msg("Starting rtcc-center")

	if err := os.MkdirAll(filepath.Dir(cfg.AuditLogPath), 0o750); err != nil {
		log.Fatal().Err(err).Msg("Failed to create audit log directory")
	}
	segment, err := audit.OpenSegment(cfg.AuditLogPath, "")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open audit log segment")
	}
	auditLog := audit.NewLogger(segment, "")

	collectors := metrics.New()

	// --- Fusion ---
	var baselineStore fusion.BaselineStore
	if cfg.Fusion.BaselineDBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Fusion.BaselineDBPath), 0o750); err != nil {
			log.Fatal().Err(err).Msg("Failed to create baseline store directory")
		}
		sqliteStore, err := fusion.NewSQLiteBaselineStore(cfg.Fusion.BaselineDBPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open fusion baseline store")
		}
		baselineStore = sqliteStore
	} else {
		baselineStore = fusion.NewMemoryBaselineStore()
	}
	_ = fusion.NewDetector(baselineStore, cfg.Fusion.AnomalyKSigma)

	fusionEngine := fusion.NewEngine(fusion.DefaultRules(), cfg.Fusion.AutoVerifyThreshold)

	// --- Guardrail ---
	guardrailEngine := guardrail.NewEngine(
		defaultGuardrailRules(),
		guardrail.DefaultRiskWeights(),
		guardrail.DefaultRiskBands(),
		cfg.Guardrail.ApprovalThreshold,
	)
	approvalStoreCfg := guardrail.DefaultApprovalStoreConfig()
	if cfg.Guardrail.ApprovalTimeout > 0 {
		approvalStoreCfg.DefaultTimeout = cfg.Guardrail.ApprovalTimeout
	}
	approvalStore := guardrail.NewApprovalStore(approvalStoreCfg)
	_ = approvalStore

	// --- Safety ---
	safetyEngine := safety.NewEngine(safety.DefaultRadiusConfig(), cfg.Safety.ProximityWarningTTL)
	ambushDetector := safety.NewDetector(safety.DefaultAmbushWindow())
	checkInTracker := safety.NewCheckInTracker(cfg.Safety.CheckInInterval)
	fallDetector := safety.NewFallDetector(cfg.Safety.FallConfirmTimeout)
	hotzoneTracker := safety.NewHotzoneTracker(nil, cfg.Safety.HotzoneWarningTTL)
	_ = ambushDetector
	_ = hotzoneTracker

	// --- Continuity ---
	healthChecker := continuity.NewChecker()
	classifier := continuity.NewClassifier(500*time.Millisecond, 0.1)
	predictive := continuity.NewPredictiveAnalyzer(10*time.Minute, 2.0, 0.1)
	_ = classifier
	_ = predictive
	failovers := make(map[string]*continuity.FailoverManager, len(cfg.Continuity))
	for _, svc := range cfg.Continuity {
		fc := continuity.FailoverConfig{
			ServiceType:       svc.ServiceType,
			Primary:           svc.Primary,
			Secondary:         svc.Secondary,
			FailureThreshold:  svc.FailureThreshold,
			RecoveryThreshold: svc.RecoveryThreshold,
			BufferLimit:       svc.BufferLimit,
		}
		failovers[svc.ServiceType] = continuity.NewFailoverManager(fc)
		healthChecker.Register(svc.ServiceType, 500)
	}

	// --- Zero-trust ---
	ztGateway := zerotrust.NewGateway(
		zerotrust.DefaultScoreWeights(),
		zerotrust.NetworkPolicy{
			AllowedNetworks:  cfg.ZeroTrust.AllowedNetworks,
			AllowedCountries: cfg.ZeroTrust.AllowedCountries,
			AllowedStates:    cfg.ZeroTrust.AllowedStates,
		},
		zeroTrustRoles(),
	)
	sessionStore := zerotrust.NewSessionStore()
	burstWindow := cfg.ZeroTrust.BurstWindow
	if burstWindow <= 0 {
		burstWindow = time.Minute
	}
	burstThreshold := cfg.ZeroTrust.BurstThreshold
	if burstThreshold <= 0 {
		burstThreshold = 20
	}
	queryAuditor := zerotrust.NewQueryAuditor(burstWindow, burstThreshold, cfg.ZeroTrust.SensitivePurposes)
	_ = queryAuditor

	// --- Transport / notify / dispatch ---
	wsTransport := transport.NewWebSocketTransport()

	channels := []notify.Channel{notify.NewConsoleChannel()}
	for _, wh := range cfg.Webhooks {
		secret := webhookSecret(wh)
		if secret == "" {
			log.Warn().Str("webhook", wh.Name).Msg("skipping webhook channel with no resolvable secret")
			continue
		}
		ch, err := notify.NewWebhookChannel(wh.Name, wh.URL, secret, wh.AllowedPrivateCIDRs)
		if err != nil {
			log.Warn().Err(err).Str("webhook", wh.Name).Msg("skipping misconfigured webhook channel")
			continue
		}
		channels = append(channels, ch)
	}
	dispatcher := notify.NewDispatcher(channels...)

	dispatchCfg := dispatch.Config{
		MinBatteryPct:               cfg.Dispatch.MinBatteryPct,
		RequireOperatorApproval:     cfg.Dispatch.RequireOperatorApproval,
		DangerousKeywords:           cfg.Dispatch.DangerousKeywords,
		DefaultResponseRadiusMeters: cfg.Dispatch.DefaultResponseRadiusMeters,
		CommandDefaultTimeout:       cfg.Dispatch.CommandDefaultTimeout,
		Envelope: dispatch.Envelope{
			MinAltitudeM: cfg.Dispatch.MinAltitudeM,
			MaxAltitudeM: cfg.Dispatch.MaxAltitudeM,
			MaxSpeedMPS:  cfg.Dispatch.MaxSpeedMPS,
		},
	}
	dispatchEngine := dispatch.NewEngine(dispatchCfg, defaultDispatchRules(), wsTransport, dispatcher)

	pipelineCfg := fusion.DefaultPipelineConfig()
	if cfg.Fusion.RetryDeadline > 0 {
		pipelineCfg.RetryDeadline = cfg.Fusion.RetryDeadline
	}
	pipeline := fusion.NewPipeline(
		fusionEngine,
		NewDispatchBridgeStore(fusion.NewMemoryDownstreamStore(), dispatchEngine),
		fusion.NewMemoryDeadLetterQueue(),
		auditLog,
		pipelineCfg,
	)

	webhookVerifiers := make(map[string]*transport.WebhookVerifier, len(cfg.Webhooks))
	for _, wh := range cfg.Webhooks {
		secret := webhookSecret(wh)
		if secret == "" {
			continue
		}
		webhookVerifiers[wh.Name] = transport.NewWebhookVerifier(secret)
	}

	srv := NewServer(pipeline, wsTransport, webhookVerifiers, auditLog)
	officers := NewOfficerSurface(checkInTracker, fallDetector, safetyEngine, guardrailEngine, ztGateway, sessionStore)

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	officers.Routes(mux)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("Starting HTTP/WebSocket ingestion server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	if err := collectors.Serve(cfg.MetricsAddress); err != nil {
		log.Fatal().Err(err).Msg("Failed to start metrics server")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down rtcc-center...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("HTTP server did not shut down cleanly")
	}
	collectors.Shutdown(ctx)

	log.Info().Msg("rtcc-center stopped")
}
