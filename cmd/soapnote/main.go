package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/physiolab/soapnote/internal/audio"
	"github.com/physiolab/soapnote/internal/config"
	"github.com/physiolab/soapnote/internal/extraction"
	"github.com/physiolab/soapnote/internal/llm"
	llmopenai "github.com/physiolab/soapnote/internal/llm/openai"
	"github.com/physiolab/soapnote/internal/logger"
	"github.com/physiolab/soapnote/internal/observability"
	"github.com/physiolab/soapnote/internal/provider"
	"github.com/physiolab/soapnote/internal/render"
	"github.com/physiolab/soapnote/internal/resilience"
	"github.com/physiolab/soapnote/internal/server"
	"github.com/physiolab/soapnote/internal/storage"
	"github.com/physiolab/soapnote/internal/transcription"
	sttopenai "github.com/physiolab/soapnote/internal/transcription/openai"
	"github.com/physiolab/soapnote/internal/workflow"
)

const version = "1.0.0"

func usage() {
	fmt.Fprintf(os.Stderr, `soapnote %s - physiotherapy session audio to SOAP report

Usage:
  soapnote run <audio-path> [--output <name>] [--format pdf|md] [--verbose] [--config <path>]
  soapnote serve [--addr <host:port>] [--config <path>]

Commands:
  run      Process a single audio file and write the report.
  serve    Start the HTTP server with POST /process-audio/.
`, version)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = runCommand(os.Args[2:])
	case "serve":
		err = serveCommand(os.Args[2:])
	case "version":
		fmt.Println(version)
		return
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runFlags holds the parsed arguments of the run subcommand.
type runFlags struct {
	audioPath  string
	output     string
	format     string
	verbose    bool
	configPath string
}

// parseRunFlags accepts flags on either side of the audio path, so both
// `run session.wav --output x` and `run --output x session.wav` work.
func parseRunFlags(args []string) (runFlags, error) {
	var rf runFlags
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.StringVar(&rf.output, "output", "", "report file name (default SOAP_<patient>_<timestamp>)")
	fs.StringVar(&rf.format, "format", "", "report format: pdf or md (default from config)")
	fs.BoolVar(&rf.verbose, "verbose", false, "enable debug logging")
	fs.StringVar(&rf.configPath, "config", "", "path to configuration file")
	if err := fs.Parse(args); err != nil {
		return rf, err
	}
	rest := fs.Args()
	if len(rest) == 0 {
		return rf, fmt.Errorf("run expects an audio path")
	}
	rf.audioPath = rest[0]
	if err := fs.Parse(rest[1:]); err != nil {
		return rf, err
	}
	if fs.NArg() != 0 {
		return rf, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return rf, nil
}

func runCommand(args []string) error {
	rf, err := parseRunFlags(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(rf.configPath)
	if err != nil {
		return err
	}
	if rf.verbose {
		cfg.Logging.Level = "debug"
	}
	switch rf.format {
	case "":
	case "md", "markdown":
		cfg.Render.Format = string(render.FormatMarkdown)
	case "pdf":
		cfg.Render.Format = string(render.FormatPDF)
	default:
		return fmt.Errorf("unknown report format %q (want pdf or md)", rf.format)
	}
	initLogger(cfg)
	log := logger.GetGlobalLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracer, err := initTracing(ctx, cfg)
	if err != nil {
		log.Warn("Tracing disabled", logger.Fields("error", err.Error()))
	}
	defer shutdownTracer()

	orchestrator, _, err := buildOrchestrator(cfg, log)
	if err != nil {
		return err
	}

	run, err := orchestrator.Process(ctx, rf.audioPath, rf.output)
	if err != nil {
		if run != nil && run.FailedStage != "" {
			err = fmt.Errorf("pipeline failed at stage %s: %w", run.FailedStage, err)
		}
		return redactedErr(cfg, err)
	}

	for _, stage := range []workflow.Stage{
		workflow.StageChunking,
		workflow.StageTranscribing,
		workflow.StageExtracting,
		workflow.StageRendering,
	} {
		if timing, ok := run.Timings[stage]; ok {
			fmt.Printf("  %-13s %s\n", stage, timing.Duration().Round(time.Millisecond))
		}
	}
	fmt.Printf("Report written to %s\n", run.OutputPath)
	return nil
}

func serveCommand(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", "", "listen address host:port (default from config)")
	configPath := fs.String("config", "", "path to configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		host, portStr, splitErr := net.SplitHostPort(*addr)
		if splitErr != nil {
			return fmt.Errorf("invalid --addr %q: %w", *addr, splitErr)
		}
		port, convErr := strconv.Atoi(portStr)
		if convErr != nil {
			return fmt.Errorf("invalid --addr port %q: %w", portStr, convErr)
		}
		cfg.Server.Host = host
		cfg.Server.Port = port
	}
	initLogger(cfg)
	log := logger.GetGlobalLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracer, err := initTracing(ctx, cfg)
	if err != nil {
		log.Warn("Tracing disabled", logger.Fields("error", err.Error()))
	}
	defer shutdownTracer()

	orchestrator, probes, err := buildOrchestrator(cfg, log)
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server, log)
	server.NewHandler(orchestrator, log, probes...).RegisterRoutes(srv.GinEngine())

	if err := srv.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	return srv.Stop(context.Background())
}

// redactedErr strips patient-identifying patterns from an error destined
// for stderr when HIPAA mode is on. Errors can quote transcript fragments
// or extracted field values, so the same redaction that guards the logs
// guards the terminal.
func redactedErr(cfg *config.Config, err error) error {
	if err == nil || !cfg.Logging.RedactPHI {
		return err
	}
	return errors.New(logger.Redact(err.Error()))
}

func loadConfig(path string) (*config.Config, error) {
	var opts []config.LoaderOption
	if path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

func initLogger(cfg *config.Config) {
	logger.Init(logger.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Output:    cfg.Logging.Output,
		Timestamp: true,
		RedactPHI: cfg.Logging.RedactPHI,
	})
}

// initTracing starts the OTLP exporter when tracing is enabled. The returned
// shutdown func is always safe to call.
func initTracing(ctx context.Context, cfg *config.Config) (func(), error) {
	if !cfg.Tracing.Enabled {
		return func() {}, nil
	}
	provider, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: version,
		Environment:    cfg.Service.Environment,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Service.Environment == "development",
	})
	if err != nil {
		return func() {}, err
	}
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(shutdownCtx)
	}, nil
}

// buildOrchestrator wires the pipeline stages from configuration. The probes
// feed the health endpoint in serve mode.
func buildOrchestrator(cfg *config.Config, log *logger.Logger) (*workflow.Orchestrator, []server.Probe, error) {
	retry := &resilience.RetryConfig{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: cfg.Retry.InitialBackoff,
		MaxBackoff:     cfg.Retry.MaxBackoff,
		BackoffFactor:  cfg.Retry.BackoffFactor,
	}

	chunker := audio.NewChunker(cfg.Chunker.MaxSegmentBytes)

	sttRegistry := provider.NewRegistry[transcription.Provider]()
	sttRegistry.RegisterFactory(sttopenai.ProviderName, func(map[string]any) (transcription.Provider, error) {
		return sttopenai.NewProvider(sttopenai.Config{
			BaseURL:  cfg.Transcription.BaseURL,
			APIKey:   cfg.Transcription.APIKey,
			Model:    cfg.Transcription.Model,
			Language: cfg.Transcription.Language,
			Timeout:  cfg.Transcription.Timeout,
			Retry:    retry,
		}), nil
	})
	stt, err := sttRegistry.Create(cfg.Transcription.Provider, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("transcription provider %q: %w (registered: %v)",
			cfg.Transcription.Provider, err, sttRegistry.List())
	}

	llmRegistry := provider.NewRegistry[llm.Provider]()
	llmRegistry.RegisterFactory(llmopenai.ProviderName, func(map[string]any) (llm.Provider, error) {
		return llmopenai.NewProvider(llmopenai.Config{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
			Retry:   retry,
		}), nil
	})
	chat, err := llmRegistry.Create(cfg.LLM.Provider, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("llm provider %q: %w (registered: %v)",
			cfg.LLM.Provider, err, llmRegistry.List())
	}

	extractor := extraction.NewExtractor(chat, extraction.Config{
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		MaxAttempts: cfg.LLM.MaxAttempts,
		Temperature: cfg.LLM.Temperature,
	}, log)

	var engine render.Engine
	format := render.Format(cfg.Render.Format)
	if format == render.FormatPDF {
		engine = render.NewGotenberg(render.GotenbergConfig{
			URL:     cfg.Render.EngineURL,
			Timeout: cfg.Render.Timeout,
		})
	}
	renderer := render.NewRenderer(engine, format)

	store, err := storage.NewLocal(cfg.Output.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("prepare output directory %s: %w", cfg.Output.Dir, err)
	}

	probes := []server.Probe{
		{Name: stt.Name(), Check: stt.IsAvailable},
		{Name: chat.Name(), Check: chat.IsAvailable},
	}
	if engine != nil {
		probes = append(probes, server.Probe{Name: engine.Name(), Check: engine.IsAvailable})
	}

	orchestrator := workflow.New(chunker, stt, extractor, renderer, store, log, workflow.Options{
		TranscribeWorkers: cfg.Chunker.TranscribeWorkers,
		Language:          cfg.Transcription.Language,
	})
	return orchestrator, probes, nil
}
