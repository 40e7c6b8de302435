package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/hoopvision/internal/analyze"
	"github.com/okian/hoopvision/internal/config"
	"github.com/okian/hoopvision/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		sessionID   = flag.String("session", "", "Session id (default: random UUID)")
		frameSkip   = flag.Int64("skip", 0, "Analyze every Nth frame (default from config)")
		workers     = flag.Int("workers", 0, "Number of decode workers (default from config)")
		archivePath = flag.String("archive", "", "SQLite archive to store the session in")
		eventsOut   = flag.String("events", "", `Write the game log as JSON to this file ("-" for stdout)`)
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		analyze.ShowHelp(os.Stdout)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}
	if err := analyze.SetupLogging(cfg.LogLevel, cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to setup logging: " + err.Error() + "\n")
		return 1
	}
	log := logger.Get().Named("analyze")

	acfg := &analyze.Config{
		SessionID:     *sessionID,
		Calibration:   cfg.Calibration(),
		FrameSkip:     cfg.FrameSkip,
		PlayerMin:     cfg.PlayerMinConfidence,
		BallMin:       cfg.BallMinConfidence,
		Cooldown:      cfg.CooldownFrames,
		ReboundWindow: cfg.ReboundWindowFrames,
		Threshold:     cfg.OCRConfidenceThreshold,
		Workers:       cfg.WorkerCount,
		QueueSize:     cfg.QueueSize,
		ArchivePath:   cfg.ArchivePath,
		EventsOut:     *eventsOut,
	}
	if *frameSkip > 0 {
		acfg.FrameSkip = *frameSkip
	}
	if *workers > 0 {
		acfg.Workers = *workers
	}
	if *archivePath != "" {
		acfg.ArchivePath = *archivePath
	}

	var in io.Reader = os.Stdin
	if path := flag.Arg(0); path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			log.Error(ctx, "failed to open input", logger.String("path", path), logger.Error(err))
			return 1
		}
		defer f.Close()
		in = f
	}

	report, err := analyze.Run(ctx, acfg, in, nil)
	if err != nil {
		log.Error(ctx, "analysis failed", logger.Error(err))
		return 1
	}

	if err := analyze.WriteBoxScore(os.Stdout, report); err != nil {
		log.Error(ctx, "failed to write box score", logger.Error(err))
		return 1
	}
	switch acfg.EventsOut {
	case "":
	case "-":
		if err := analyze.WriteEvents(os.Stdout, report.Events); err != nil {
			log.Error(ctx, "failed to write events", logger.Error(err))
			return 1
		}
	default:
		if err := analyze.SaveEvents(acfg.EventsOut, report.Events); err != nil {
			log.Error(ctx, "failed to save events", logger.Error(err))
			return 1
		}
		log.Info(ctx, "game log saved", logger.String("path", acfg.EventsOut))
	}
	return 0
}
