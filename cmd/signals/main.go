package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vango-dev/signals/internal/config"
	"github.com/vango-dev/signals/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(execute(newRootCmd(), os.Stderr))
}

// execute runs root and reports a failure on stderr in the format chosen by
// --error-format. It returns the process exit code.
func execute(root *cobra.Command, stderr io.Writer) int {
	err := root.Execute()
	if err == nil {
		return 0
	}
	if format, _ := root.PersistentFlags().GetString("error-format"); format == "json" {
		errors.PrintJSON(stderr, err)
	} else {
		errors.Print(stderr, err)
	}
	return 1
}

func newRootCmd() *cobra.Command {
	var (
		configPath  string
		noColor     bool
		errorFormat string
	)

	rootCmd := &cobra.Command{
		Use:   "signals",
		Short: "Reactive signal graphs over WebSocket",
		Long: `signals runs reactive signal graphs.

Sources hold values, derived signals compute from them and only stay
subscribed while something follows them. The serve command streams a
demo graph to browsers; bench measures recomputation cost for common
graph shapes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if noColor || os.Getenv("NO_COLOR") != "" {
				errors.DisableColors()
			} else {
				errors.EnableColors()
			}
			if errorFormat != "text" && errorFormat != "json" {
				return errors.Newf(errors.CategoryCLI, "unknown error format %q", errorFormat).
					WithSuggestion("Use --error-format=text or --error-format=json")
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to signals.json (default: ./signals.json if present)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"Disable colored error output (also set by NO_COLOR)")
	rootCmd.PersistentFlags().StringVar(&errorFormat, "error-format", "text",
		"Error output format: text, json")

	load := func() (*config.Config, error) {
		return config.Resolve(configPath)
	}

	rootCmd.AddCommand(
		serveCmd(load),
		benchCmd(load),
		configCmd(load),
		versionCmd(),
	)

	return rootCmd
}

// newLogger builds the process logger from the runtime config.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if cfg.Runtime.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
