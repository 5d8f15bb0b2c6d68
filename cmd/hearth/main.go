// Command hearth is the main entry point for the hearth voice assistant.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/hearthd/hearth/internal/app"
	"github.com/hearthd/hearth/internal/config"
	"github.com/hearthd/hearth/internal/executor"
	"github.com/hearthd/hearth/internal/health"
	hgpg "github.com/hearthd/hearth/internal/homegraph/postgres"
	"github.com/hearthd/hearth/internal/observe"
	"github.com/hearthd/hearth/internal/resilience"
	"github.com/hearthd/hearth/pkg/audio/wsaudio"
	"github.com/hearthd/hearth/pkg/provider/llm"
	"github.com/hearthd/hearth/pkg/provider/llm/anyllm"
	"github.com/hearthd/hearth/pkg/provider/llm/openai"
	"github.com/hearthd/hearth/pkg/provider/stt"
	"github.com/hearthd/hearth/pkg/provider/stt/whisper"
	"github.com/hearthd/hearth/pkg/provider/tts"
	"github.com/hearthd/hearth/pkg/provider/tts/piperws"
	"github.com/hearthd/hearth/pkg/provider/vad"
	"github.com/hearthd/hearth/pkg/provider/wakeword/owwws"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "hearth: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "hearth: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("hearth starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "hearth"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		slog.Error("failed to create metrics", "err", err)
		return 1
	}

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, err := buildProviders(ctx, cfg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Backing stores and MCP session ────────────────────────────────────────
	opts := []app.Option{app.WithMetrics(metrics), app.WithLogger(logger)}

	var checkers []health.Checker

	if dsn := cfg.Registry.PostgresDSN; dsn != "" && cfg.Registry.Path == "" {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			slog.Error("failed to connect registry database", "err", err)
			return 1
		}
		defer pool.Close()

		store := hgpg.New(pool)
		if err := store.Migrate(ctx); err != nil {
			slog.Error("failed to migrate registry schema", "err", err)
			return 1
		}
		opts = append(opts, app.WithDeviceStore(store))
		checkers = append(checkers, health.Checker{Name: "registry", Check: pool.Ping})
		slog.Info("device registry backed by postgres")
	}

	if dsn := cfg.Parking.PostgresDSN; dsn != "" && len(cfg.Parking.Rules) == 0 {
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			slog.Error("failed to connect parking database", "err", err)
			return 1
		}
		defer pool.Close()

		store := executor.NewPGScheduleStore(pool)
		if err := store.Migrate(ctx); err != nil {
			slog.Error("failed to migrate sweep_rules schema", "err", err)
			return 1
		}
		opts = append(opts, app.WithScheduleStore(store))
		checkers = append(checkers, health.Checker{Name: "parking", Check: pool.Ping})
		slog.Info("parking schedule backed by postgres")
	}

	if cfg.MCP.Transport != "" {
		session, err := connectMCP(ctx, cfg.MCP)
		if err != nil {
			slog.Error("failed to connect home-control server", "err", err)
			return 1
		}
		defer session.Close()
		opts = append(opts, app.WithToolSession(session))
		slog.Info("home-control server connected", "transport", cfg.MCP.Transport)
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers, opts...)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Admin HTTP server (health probes + metrics) ───────────────────────────
	g, gctx := errgroup.WithContext(ctx)

	if cfg.Server.ListenAddr != "" {
		mux := http.NewServeMux()
		health.New(checkers...).Register(mux)
		mux.Handle("GET /metrics", promhttp.Handler())

		srv := &http.Server{Addr: cfg.Server.ListenAddr, Handler: mux}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("admin server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	slog.Info("assistant ready — press Ctrl+C to shut down")

	g.Go(func() error {
		return application.Run(gctx)
	})

	runErr := g.Wait()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("run error", "err", runErr)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// buildProviders instantiates every pipeline backend named in cfg and returns
// them in an [app.Providers] struct for the application to consume.
func buildProviders(ctx context.Context, cfg *config.Config) (*app.Providers, error) {
	ps := &app.Providers{}

	// Satellite audio bridge: one connection serves both the microphone and
	// the speaker.
	if cfg.Audio.URL == "" {
		return nil, errors.New("audio.url is required")
	}
	var audioOpts []wsaudio.Option
	if cfg.Audio.SampleRate > 0 {
		audioOpts = append(audioOpts, wsaudio.WithSampleRate(cfg.Audio.SampleRate))
	}
	if cfg.Audio.FrameMillis > 0 {
		audioOpts = append(audioOpts, wsaudio.WithFrameMillis(cfg.Audio.FrameMillis))
	}
	device, err := wsaudio.Dial(ctx, cfg.Audio.URL, audioOpts...)
	if err != nil {
		return nil, fmt.Errorf("connect satellite device: %w", err)
	}
	ps.Input = device
	ps.Output = device
	slog.Info("satellite device connected", "url", cfg.Audio.URL)

	if cfg.Wake.URL == "" {
		return nil, errors.New("wake.url is required")
	}
	var wakeOpts []owwws.Option
	if cfg.Wake.Phrase != "" {
		wakeOpts = append(wakeOpts, owwws.WithPhrase(cfg.Wake.Phrase))
	}
	scorer, err := owwws.Dial(ctx, cfg.Wake.URL, wakeOpts...)
	if err != nil {
		return nil, fmt.Errorf("connect wake scorer: %w", err)
	}
	ps.Wake = scorer
	slog.Info("wake scorer connected", "url", cfg.Wake.URL, "phrase", cfg.Wake.Phrase)

	ps.VAD = vad.NewEnergyClassifier()

	ps.STT, err = buildSTTChain(cfg.Providers)
	if err != nil {
		return nil, err
	}

	ps.TTS, err = buildTTSChain(cfg.Providers)
	if err != nil {
		return nil, err
	}

	ps.LLM, err = buildLLMChain(cfg.Providers)
	if err != nil {
		return nil, err
	}

	return ps, nil
}

// buildSTTChain constructs the primary transcriber and, when fallbacks are
// configured, wraps the whole chain in a circuit-breaker failover group.
func buildSTTChain(providers config.ProvidersConfig) (stt.Transcriber, error) {
	primary, err := buildSTT(providers.STT)
	if err != nil {
		return nil, fmt.Errorf("create stt provider %q: %w", providers.STT.Name, err)
	}
	slog.Info("provider created", "kind", "stt", "name", providers.STT.Name)

	if len(providers.STTFallbacks) == 0 {
		return primary, nil
	}

	chain := resilience.NewSTTFallback(primary, providers.STT.Name, resilience.FallbackConfig{})
	for _, entry := range providers.STTFallbacks {
		backend, err := buildSTT(entry)
		if err != nil {
			return nil, fmt.Errorf("create stt fallback %q: %w", entry.Name, err)
		}
		chain.AddFallback(entry.Name, backend)
		slog.Info("provider created", "kind", "stt_fallback", "name", entry.Name)
	}
	return chain, nil
}

// buildTTSChain is the synthesis counterpart of buildSTTChain.
func buildTTSChain(providers config.ProvidersConfig) (tts.Synthesizer, error) {
	primary, err := buildTTS(providers.TTS)
	if err != nil {
		return nil, fmt.Errorf("create tts provider %q: %w", providers.TTS.Name, err)
	}
	slog.Info("provider created", "kind", "tts", "name", providers.TTS.Name)

	if len(providers.TTSFallbacks) == 0 {
		return primary, nil
	}

	chain := resilience.NewTTSFallback(primary, providers.TTS.Name, resilience.FallbackConfig{})
	for _, entry := range providers.TTSFallbacks {
		backend, err := buildTTS(entry)
		if err != nil {
			return nil, fmt.Errorf("create tts fallback %q: %w", entry.Name, err)
		}
		chain.AddFallback(entry.Name, backend)
		slog.Info("provider created", "kind", "tts_fallback", "name", entry.Name)
	}
	return chain, nil
}

func buildSTT(entry config.ProviderEntry) (*whisper.Transcriber, error) {
	switch entry.Name {
	case "whisper":
		var opts []whisper.Option
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.Model, opts...)
	case "":
		return nil, errors.New("providers.stt.name is required")
	default:
		return nil, fmt.Errorf("unknown stt provider %q", entry.Name)
	}
}

func buildTTS(entry config.ProviderEntry) (*piperws.Synthesizer, error) {
	switch entry.Name {
	case "piper":
		var opts []piperws.Option
		if voice := optString(entry.Options, "voice"); voice != "" {
			opts = append(opts, piperws.WithVoice(voice))
		}
		return piperws.New(entry.BaseURL, opts...)
	case "":
		return nil, errors.New("providers.tts.name is required")
	default:
		return nil, fmt.Errorf("unknown tts provider %q", entry.Name)
	}
}

// buildLLMChain constructs the primary completion backend and, when fallbacks
// are configured, wraps the whole chain in a circuit-breaker failover group.
func buildLLMChain(providers config.ProvidersConfig) (llm.Provider, error) {
	primary, err := buildLLM(providers.LLM)
	if err != nil {
		return nil, fmt.Errorf("create llm provider %q: %w", providers.LLM.Name, err)
	}
	slog.Info("provider created", "kind", "llm", "name", providers.LLM.Name)

	if len(providers.LLMFallbacks) == 0 {
		return primary, nil
	}

	chain := resilience.NewLLMFallback(primary, providers.LLM.Name, resilience.FallbackConfig{})
	for _, entry := range providers.LLMFallbacks {
		backend, err := buildLLM(entry)
		if err != nil {
			return nil, fmt.Errorf("create llm fallback %q: %w", entry.Name, err)
		}
		chain.AddFallback(entry.Name, backend)
		slog.Info("provider created", "kind", "llm_fallback", "name", entry.Name)
	}
	return chain, nil
}

func buildLLM(entry config.ProviderEntry) (llm.Provider, error) {
	switch entry.Name {
	case "openai":
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)

	case "ollama":
		// Local server: BaseURL is the address, no API key needed.
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.NewOllama(entry.Model, opts...)

	case "anthropic", "gemini", "llamacpp":
		var opts []anyllmlib.Option
		if entry.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
		}
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New(entry.Name, entry.Model, opts...)

	case "":
		return nil, errors.New("providers.llm.name is required")

	default:
		return nil, fmt.Errorf("unknown llm provider %q", entry.Name)
	}
}

// connectMCP establishes the home-control MCP session per the configured
// transport.
func connectMCP(ctx context.Context, cfg config.MCPConfig) (*mcpsdk.ClientSession, error) {
	switch cfg.Transport {
	case config.TransportStdio:
		parts := strings.Fields(cfg.Command)
		if len(parts) == 0 {
			return nil, errors.New("mcp.command is required for stdio transport")
		}
		return executor.ConnectStdio(ctx, parts[0], parts[1:]...)
	case config.TransportStreamableHTTP:
		return executor.ConnectHTTP(ctx, cfg.URL)
	default:
		return nil, fmt.Errorf("unknown mcp transport %q", cfg.Transport)
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║          hearth — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, optString(cfg.Providers.TTS.Options, "voice"))
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printValue("LLM fallbacks", fmt.Sprintf("%d", len(cfg.Providers.LLMFallbacks)))
	printValue("Wake phrase", cfg.Wake.Phrase)
	if cfg.Registry.Path != "" {
		printValue("Registry", "file")
	} else if cfg.Registry.PostgresDSN != "" {
		printValue("Registry", "postgres")
	} else {
		printValue("Registry", "(empty)")
	}
	printValue("MCP transport", string(cfg.MCP.Transport))
	printValue("Parking rules", fmt.Sprintf("%d", len(cfg.Parking.Rules)))
	if cfg.Server.ListenAddr != "" {
		printValue("Listen addr", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	printValue(kind, value)
}

func printValue(label, value string) {
	if value == "" {
		value = "(not configured)"
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-14s : %-19s ║\n", label, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
