package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/koscakluka/vocalis/core/audio"
	"github.com/koscakluka/vocalis/core/audio/miniaudio"
	"github.com/koscakluka/vocalis/internal/tui"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		url          string
		noAudio      bool
		captureRate  int
		playbackRate int
		logFile      string
	)

	cmd := &cobra.Command{
		Use:           "vocalis-tui",
		Short:         "Terminal client for a Vocalis server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, closeLog, err := openLog(logFile)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			conn, err := tui.Dial(ctx, url)
			cancel()
			if err != nil {
				return err
			}

			var device tui.AudioDevice
			if !noAudio {
				client, err := miniaudio.NewClient(
					miniaudio.WithCaptureEncoding(audio.EncodingInfo{SampleRate: captureRate, Format: audio.EncodingLinear16}),
					miniaudio.WithPlaybackEncoding(audio.EncodingInfo{SampleRate: playbackRate, Format: audio.EncodingLinear16}),
					miniaudio.WithLogger(logger),
				)
				if err != nil {
					_ = conn.Close()
					return fmt.Errorf("failed to open audio devices (use --no-audio to skip): %w", err)
				}
				defer client.Close()
				device = client
			}

			_, err = tea.NewProgram(tui.New(conn, device), tea.WithAltScreen()).Run()
			return err
		},
	}
	cmd.Flags().StringVar(&url, "url", "ws://localhost:8000/ws", "websocket endpoint of the server")
	cmd.Flags().BoolVar(&noAudio, "no-audio", false, "disable microphone and speaker")
	cmd.Flags().IntVar(&captureRate, "capture-rate", miniaudio.DefaultCaptureSampleRate, "microphone sample rate")
	cmd.Flags().IntVar(&playbackRate, "playback-rate", miniaudio.DefaultPlaybackSampleRate, "sample rate of the server's synthesized speech")
	cmd.Flags().StringVar(&logFile, "log-file", "", "write debug logs to this file")
	return cmd
}

// openLog keeps logs off the terminal the TUI draws on.
func openLog(path string) (*slog.Logger, func(), error) {
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	f, err := tea.LogToFile(path, "vocalis-tui")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})), func() { _ = f.Close() }, nil
}
