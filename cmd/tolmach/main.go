package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/okorolev/tolmach/internal/api"
	"github.com/okorolev/tolmach/internal/audio"
	"github.com/okorolev/tolmach/internal/config"
	"github.com/okorolev/tolmach/internal/pipeline"
	"github.com/okorolev/tolmach/internal/recognition"
	"github.com/okorolev/tolmach/internal/translation"
	"github.com/okorolev/tolmach/internal/websocket"
	"github.com/okorolev/tolmach/pkg/logger"
)

var version = "0.1.0"

func main() {
	var (
		configPath  string
		showVersion bool
	)
	flag.StringVar(&configPath, "config", "config.toml", "Path to configuration file")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting tolmach",
		logger.String("version", version),
		logger.String("config", configPath))

	source, err := buildSource(cfg, log)
	if err != nil {
		log.Error("Failed to create capture source", logger.Error(err))
		os.Exit(1)
	}

	recognizer := recognition.NewClient(recognition.Config{
		BaseURL:        cfg.Recognition.BaseURL,
		Model:          cfg.Recognition.Model,
		SampleRate:     cfg.Audio.SampleRate,
		TimeoutSeconds: cfg.Recognition.TimeoutSeconds,
	}, log)

	translator := translation.NewLLMEngine(translation.Config{
		BaseURL:        cfg.Translation.BaseURL,
		APIKey:         cfg.Translation.APIKey,
		Model:          cfg.Translation.Model,
		TimeoutSeconds: cfg.Translation.TimeoutSeconds,
		Temperature:    cfg.Translation.Temperature,
		MaxTokens:      cfg.Translation.MaxTokens,
	}, log)

	p := pipeline.New(pipeline.Config{
		SampleRate:       cfg.Audio.SampleRate,
		SegmentDuration:  cfg.Audio.SegmentDuration(),
		SilenceThreshold: cfg.Audio.SilenceThreshold,
		QueueCapacity:    cfg.Pipeline.QueueCapacity,
		PopTimeout:       cfg.Pipeline.PopTimeout(),
		ShutdownTimeout:  cfg.Pipeline.ShutdownTimeout(),
	}, source, recognizer, translator, log)

	wsServer := websocket.NewServer(log)
	p.Subscribe(wsServer)
	p.Subscribe(pipeline.SinkFunc(printItem))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := p.Start(ctx); err != nil {
		log.Error("Failed to start pipeline", logger.Error(err))
		os.Exit(1)
	}

	router := api.NewRouter(p, wsServer, cfg, log)
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", logger.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received")

	p.Stop()

	// Stop accepting connections before tearing down the hub, so no client
	// can register on a hub that will never close it
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown failed", logger.Error(err))
	}
	wsServer.Close()

	log.Info("Shutdown complete")
}

// buildSource constructs the configured capture source
func buildSource(cfg *config.Config, log *logger.Logger) (audio.Source, error) {
	switch cfg.Audio.Source {
	case "wav":
		if cfg.Audio.WAVPath == "" {
			return nil, fmt.Errorf("audio.wav_path is required for the wav source")
		}
		return audio.NewWAVFileSource(cfg.Audio.WAVPath, cfg.Audio.SampleRate, false, log), nil
	default:
		return nil, fmt.Errorf("unknown audio source: %q", cfg.Audio.Source)
	}
}

// printItem is the default console sink: transcript, translation and
// per-stage latency for each delivered item.
func printItem(item pipeline.Item) {
	fmt.Printf("\n[%s] %s\n", strings.ToUpper(item.Transcript.Language), item.Transcript.Text)
	if item.Translation != nil {
		fmt.Printf("[%s] %s\n", strings.ToUpper(item.Translation.TargetLang), item.Translation.TranslatedText)
		total := item.Transcript.ProcessingTime + item.Translation.ProcessingTime
		fmt.Printf("     (%.1fs + %.1fs = %.1fs)\n",
			item.Transcript.ProcessingTime.Seconds(),
			item.Translation.ProcessingTime.Seconds(),
			total.Seconds())
	}
}
