package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/haivivi/emailbattle/cmd/emailbattle/internal/config"
	"github.com/haivivi/emailbattle/pkg/cli"
)

var (
	// Global flags
	verbose      bool
	formatOutput string
	outputFile   string
	queryExpr    string
	modelsDir    string
	personasFile string
)

var rootCmd = &cobra.Command{
	Use:   "emailbattle",
	Short: "Run email battles between two language models",
	Long: `emailbattle - pit two language models against each other over email.

An evaluator persona (side A) sends a mass email, reviews the respondent's
reply and either passes it, probes with follow-ups, terminates or retains the
respondent (side B). A respondent that steps out of character forfeits.

Models are configured by YAML/JSON files in a directory (see 'models').
Persona scripts come from an embedded library unless --personas is given.

Environment:
  EMAILBATTLE_MODELS_DIR        model config directory (default "models")
  EMAILBATTLE_EVALUATOR         evaluator model name
  EMAILBATTLE_RESPONDENT        respondent model name
  EMAILBATTLE_MAX_ROUNDS        follow-up round limit (default 5)
  EMAILBATTLE_CALL_TIMEOUT      per backend call timeout (default 2m)
  EMAILBATTLE_PERSONAS          persona library file
  EMAILBATTLE_SCRIPT            persona script name
  EMAILBATTLE_ADDR              serve listen address (default ":8080")
  EMAILBATTLE_ALLOWED_ORIGINS   comma separated CORS origins for serve
  EMAILBATTLE_OTEL_ENDPOINT     OTLP/HTTP trace collector URL

Examples:
  emailbattle run --evaluator gpt-5.2 --respondent claude-opus-4.5
  emailbattle run --max-rounds 3 --format json --query .outcome
  emailbattle serve --addr :8080`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return validateFormat()
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&formatOutput, "format", "", "output format (yaml, json, msgpack, raw)")
	pf.StringVarP(&outputFile, "output", "o", "", "write output to file")
	pf.StringVarP(&queryExpr, "query", "q", "", "jq expression applied to the output")
	pf.StringVar(&modelsDir, "models-dir", "", "model config directory (env EMAILBATTLE_MODELS_DIR)")
	pf.StringVar(&personasFile, "personas", "", "persona library file (env EMAILBATTLE_PERSONAS)")
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

// loadConfig reads the environment, then applies the global flags the user
// set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	fs := cmd.Flags()
	override(fs, "models-dir", &cfg.ModelsDir, modelsDir)
	override(fs, "personas", &cfg.Personas, personasFile)
	return cfg, nil
}

// override sets *dst to v when the named flag was given.
func override[T any](fs *pflag.FlagSet, name string, dst *T, v T) {
	if fs.Changed(name) {
		*dst = v
	}
}

// output writes v with the global output flags. def applies when --format
// is not given.
func output(v any, def cli.OutputFormat) error {
	format := cli.OutputFormat(formatOutput)
	if format == "" {
		format = def
	}
	return cli.Output(v, cli.OutputOptions{
		Format: format,
		File:   outputFile,
		Query:  queryExpr,
		Indent: "  ",
	})
}

func validateFormat() error {
	if formatOutput == "" || slices.Contains(cli.Formats, cli.OutputFormat(formatOutput)) {
		return nil
	}
	return fmt.Errorf("unsupported output format: %s", formatOutput)
}
