package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var version = "dev"

const banner = `
                          _ _
 __   _____   ___ __ _  | (_)___
 \ \ / / _ \ / __/ _' | | | / __|
  \ V / (_) | (_| (_| | | | \__ \
   \_/ \___/ \___\__,_| |_|_|___/
`

type rootOptions struct {
	configPath string
	envFiles   []string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("Error:"), err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "vocalis",
		Short:         "Real-time multimodal assistant for accessibility assessments",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to the YAML config file (defaults to $VOCALIS_CONFIG)")
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "dotenv files loaded before the config")

	cmd.AddCommand(
		newServeCommand(opts),
		newScoreCommand(),
		newReportCommand(opts),
		newDecideCommand(opts),
	)
	return cmd
}

func printBanner() {
	color.New(color.FgCyan).Print(banner)
	color.New(color.FgHiBlack).Printf("    version: %s\n\n", version)
}

// startupLine prints one "▶ label: value" line of the startup summary.
func startupLine(label, value string) {
	color.New(color.FgGreen).Print("    ▶ ")
	fmt.Printf("%-13s %s\n", label+":", value)
}
