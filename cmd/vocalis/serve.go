package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	orchestration "github.com/koscakluka/vocalis/core"
	"github.com/koscakluka/vocalis/core/assessment"
	"github.com/koscakluka/vocalis/core/audio"
	"github.com/koscakluka/vocalis/core/calibration"
	"github.com/koscakluka/vocalis/core/classifier"
	"github.com/koscakluka/vocalis/core/documents"
	"github.com/koscakluka/vocalis/core/llms/chat"
	"github.com/koscakluka/vocalis/core/speechtotext"
	sttdeepgram "github.com/koscakluka/vocalis/core/speechtotext/deepgram"
	"github.com/koscakluka/vocalis/core/texttospeech"
	ttsdeepgram "github.com/koscakluka/vocalis/core/texttospeech/deepgram"
	"github.com/koscakluka/vocalis/core/vision"
	"github.com/koscakluka/vocalis/internal/config"
	"github.com/koscakluka/vocalis/internal/server"
	"github.com/koscakluka/vocalis/internal/telemetry"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the websocket and HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			printBanner()

			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			logger, err := telemetry.NewLogger(cfg.Logging, os.Stderr)
			if err != nil {
				return fmt.Errorf("setting up logger: %w", err)
			}
			slog.SetDefault(logger)

			shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Telemetry, os.Stdout)
			if err != nil {
				return fmt.Errorf("setting up tracing: %w", err)
			}
			defer func() {
				if err := shutdownTracing(ctx); err != nil {
					logger.Warn("failed to flush traces", "error", err)
				}
			}()

			deps, err := buildDependencies(cfg, logger)
			if err != nil {
				return err
			}
			printFeatures(cfg, deps)

			metricsPath := ""
			if cfg.Metrics.Enabled {
				metricsPath = cfg.Metrics.Path
			}
			srv := server.New(deps,
				server.WithLogger(logger),
				server.WithMetricsPath(metricsPath),
				server.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
				server.WithMaxMessageBytes(cfg.Server.MaxMessageBytes),
				server.WithMaxUploadBytes(cfg.Documents.MaxUploadBytes),
			)
			return srv.ListenAndServe(ctx, cfg.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}

func loadConfig(root *rootOptions) (*config.Config, error) {
	if err := config.LoadDotEnv(root.envFiles...); err != nil {
		return nil, err
	}
	cfg, err := config.Resolve(root.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// buildDependencies constructs every collaborator the configuration allows.
// Collaborators without credentials are left nil and their features report
// themselves unavailable.
func buildDependencies(cfg *config.Config, logger *slog.Logger) (server.Dependencies, error) {
	deps := server.Dependencies{
		SystemPrompt: cfg.LLM.SystemPrompt,
		Timeouts: orchestration.Timeouts{
			SpeechToText: cfg.Timeouts.STT,
			LLM:          cfg.Timeouts.LLM,
			TextToSpeech: cfg.Timeouts.TTS,
			Vision:       cfg.Timeouts.Vision,
			Documents:    cfg.Timeouts.Documents,
		},
	}

	if cfg.Deepgram.APIKey != "" {
		deps.SpeechToText = sttdeepgram.NewTranscriptionClient(
			sttdeepgram.WithAPIKey(cfg.Deepgram.APIKey),
			sttdeepgram.WithBaseURL(cfg.Deepgram.BaseURL),
			sttdeepgram.WithModel(cfg.Deepgram.STT.Model),
			sttdeepgram.WithLanguage(cfg.Deepgram.STT.Language),
			sttdeepgram.WithLogger(logger),
		)
		if cfg.Deepgram.STT.Encoding != "" {
			info, err := audio.ParseEncodingInfo(cfg.Deepgram.STT.Encoding, cfg.Deepgram.STT.SampleRate)
			if err != nil {
				return deps, fmt.Errorf("deepgram stt: %w", err)
			}
			deps.TranscriptionOptions = append(deps.TranscriptionOptions, speechtotext.WithEncodingInfo(info))
		}

		voice, _ := ttsdeepgram.ParseVoice(cfg.Deepgram.TTS.Voice)
		info, err := audio.ParseEncodingInfo(cfg.Deepgram.TTS.Encoding, cfg.Deepgram.TTS.SampleRate)
		if err != nil {
			return deps, fmt.Errorf("deepgram tts: %w", err)
		}
		tts, err := ttsdeepgram.NewTextToSpeechClient(voice,
			ttsdeepgram.WithAPIKey(cfg.Deepgram.APIKey),
			ttsdeepgram.WithBaseURL(cfg.Deepgram.BaseURL),
			ttsdeepgram.WithEncodingInfo(info),
			ttsdeepgram.WithLogger(logger),
		)
		if err != nil {
			return deps, fmt.Errorf("deepgram tts: %w", err)
		}
		deps.TextToSpeech = tts
		deps.SynthesisOptions = append(deps.SynthesisOptions, texttospeech.WithEncodingInfo(info))
	} else {
		logger.Warn("deepgram api key not set, speech recognition and synthesis disabled")
	}

	llm := chat.NewClient(
		chat.WithBaseURL(cfg.LLM.BaseURL),
		chat.WithAPIKey(cfg.LLM.APIKey),
		chat.WithModel(cfg.LLM.Model),
		chat.WithLogger(logger),
	)
	deps.LLM = llm
	deps.Classifier = classifier.New(llm,
		classifier.WithStructuredOutput(cfg.LLM.StructuredOutput),
		classifier.WithLogger(logger),
	)

	if cfg.Vision.APIKey != "" {
		deps.Describer = vision.NewOpenAIDescriber(cfg.Vision.APIKey, cfg.Vision.BaseURL,
			vision.WithModel(cfg.Vision.Model),
			vision.WithPrompt(cfg.Vision.Prompt),
			vision.WithLogger(logger),
		)
	} else {
		logger.Warn("vision api key not set, image description disabled")
	}

	extractor, err := documents.NewExtractor(documents.ExtractorOptions{
		PDFToTextPath: cfg.Documents.PDFToTextPath,
		TesseractPath: cfg.Documents.TesseractPath,
		PDFToPPMPath:  cfg.Documents.PDFToPPMPath,
		Logger:        logger,
	})
	if err != nil {
		logger.Warn("document extraction disabled", "error", err)
	} else {
		deps.Documents = extractor
	}

	if cfg.Landmarks.DetectorURL != "" {
		deps.Calibration = calibration.NewEngine(
			calibration.NewRemoteDetector(cfg.Landmarks.DetectorURL, nil),
			calibration.WithTimeout(cfg.Timeouts.Landmarks),
			calibration.WithLogger(logger),
		)
	} else {
		logger.Warn("landmark detector not configured, calibration disabled")
	}

	if cfg.Assessment.DatasetPath != "" {
		dataset, err := assessment.LoadDataset(cfg.Assessment.DatasetPath)
		if err != nil {
			return deps, fmt.Errorf("loading assessment dataset: %w", err)
		}
		deps.Dataset = dataset
	}

	return deps, nil
}

func printFeatures(cfg *config.Config, deps server.Dependencies) {
	startupLine("HTTP", cfg.Server.Addr)
	startupLine("LLM", cfg.LLM.Model+" @ "+cfg.LLM.BaseURL)

	features := []struct {
		name    string
		enabled bool
	}{
		{"Speech", deps.SpeechToText != nil && deps.TextToSpeech != nil},
		{"Vision", deps.Describer != nil},
		{"Documents", deps.Documents != nil},
		{"Calibration", deps.Calibration != nil},
	}
	for _, feature := range features {
		state := color.GreenString("enabled")
		if !feature.enabled {
			state = color.YellowString("disabled")
		}
		startupLine(feature.name, state)
	}
	fmt.Println()
}
