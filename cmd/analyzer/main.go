// CareerScout Analyzer
//
// Command-line entry point for the resume analysis engine. Reads a resume
// from a file, runs the full pipeline, and streams stage progress to
// stderr while the final markdown report goes to stdout.
//
// Usage:
//
//	analyzer -resume resume.txt                 # Standard tier
//	analyzer -resume resume.txt -tier deep      # Deep tier
//	analyzer -resume resume.txt -refine "remote only"
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/careerscout-labs/resumeanalysis/completion"
	"github.com/careerscout-labs/resumeanalysis/engine/config"
	"github.com/careerscout-labs/resumeanalysis/engine/envelope"
	"github.com/careerscout-labs/resumeanalysis/engine/observability"
	"github.com/careerscout-labs/resumeanalysis/logging"
	"github.com/careerscout-labs/resumeanalysis/service"
)

func main() {
	resumePath := flag.String("resume", "", "path to the resume text file")
	tier := flag.String("tier", "standard", "model tier: fast, standard, deep")
	sessionID := flag.String("session", "default", "session identifier")
	refine := flag.String("refine", "", "refinement feedback for an existing session")
	configPath := flag.String("config", "", "optional engine config YAML")
	otlpEndpoint := flag.String("otlp", "", "optional OTLP trace collector endpoint")
	verbose := flag.Bool("verbose", false, "debug logging")
	flag.Parse()

	logger, sync, err := logging.NewZapLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer sync()

	cfg := config.DefaultEngineConfig()
	if *configPath != "" {
		cfg, err = config.LoadEngineConfig(*configPath)
		if err != nil {
			logger.Error("config_load_failed", "path", *configPath, "error", err.Error())
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *otlpEndpoint != "" {
		shutdown, err := observability.InitTracer("careerscout-analyzer", *otlpEndpoint)
		if err != nil {
			logger.Error("tracer_init_failed", "error", err.Error())
			os.Exit(1)
		}
		defer func() { _ = shutdown(context.Background()) }()
	}

	client, err := completion.NewGenAIClient(ctx, os.Getenv("GOOGLE_API_KEY"), logger)
	if err != nil {
		logger.Error("completion_client_failed", "error", err.Error())
		os.Exit(1)
	}

	analyzer, err := service.NewAnalyzer(cfg, client, nil, logger)
	if err != nil {
		logger.Error("analyzer_init_failed", "error", err.Error())
		os.Exit(1)
	}
	analyzer.Start(ctx)

	var events <-chan envelope.ProgressEvent
	if *refine != "" {
		events, err = analyzer.Refine(ctx, *sessionID, *refine, config.Tier(*tier))
	} else {
		if *resumePath == "" {
			fmt.Fprintln(os.Stderr, "usage: analyzer -resume <file> [-tier fast|standard|deep]")
			os.Exit(2)
		}
		var raw []byte
		raw, err = os.ReadFile(*resumePath)
		if err != nil {
			logger.Error("resume_read_failed", "path", *resumePath, "error", err.Error())
			os.Exit(1)
		}
		events, err = analyzer.StartRun(ctx, *sessionID, string(raw), config.Tier(*tier))
	}
	if err != nil {
		logger.Error("run_rejected", "error", err.Error())
		os.Exit(1)
	}

	exitCode := 0
	for ev := range events {
		switch ev.Type {
		case envelope.EventProgress:
			fmt.Fprintf(os.Stderr, "[%03d] %-22s %s\n", ev.Seq, ev.Stage, ev.Message)
		case envelope.EventResult:
			fmt.Fprintf(os.Stderr, "completed in %dms\n", ev.Artifact.ElapsedMS)
			fmt.Println(ev.Artifact.Markdown)
		case envelope.EventError:
			fmt.Fprintf(os.Stderr, "run failed at %s: %s\n", ev.Stage, ev.Err)
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}
