package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/haivivi/emailbattle/cmd/emailbattle/internal/build"
	"github.com/haivivi/emailbattle/cmd/emailbattle/internal/config"
	"github.com/haivivi/emailbattle/pkg/battle"
	"github.com/haivivi/emailbattle/pkg/battleserver"
	"github.com/haivivi/emailbattle/pkg/cli"
	"github.com/haivivi/emailbattle/pkg/telemetry"
)

var runFlags struct {
	evaluator   string
	respondent  string
	script      string
	maxRounds   int
	timeout     time.Duration
	oldestFirst bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one battle",
	Long: `Run one battle and print every email as it is sent, followed by the result.

With --format the emails are not printed; the final result is written in the
given format instead (optionally filtered by --query).

Examples:
  emailbattle run --evaluator judge --respondent clerk
  emailbattle run --evaluator judge --respondent clerk --max-rounds 2 --format json
  emailbattle run --evaluator judge --respondent clerk --format json -q '.transcript[].subject'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		fs := cmd.Flags()
		override(fs, "evaluator", &cfg.Evaluator, runFlags.evaluator)
		override(fs, "respondent", &cfg.Respondent, runFlags.respondent)
		override(fs, "script", &cfg.Script, runFlags.script)
		override(fs, "max-rounds", &cfg.MaxRounds, runFlags.maxRounds)
		override(fs, "timeout", &cfg.CallTimeout, runFlags.timeout)
		return runBattle(cmd, cfg)
	},
}

func runBattle(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	shutdown, err := setupTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer flushTelemetry(shutdown)

	a, err := newArena(cfg)
	if err != nil {
		return err
	}
	a.oldestFirst = runFlags.oldestFirst

	b, err := a.Start(battleserver.StartRequest{Script: cfg.Script, MaxRounds: cfg.MaxRounds})
	if err != nil {
		return err
	}

	started := time.Now()
	var runErr error
	if formatOutput == "" {
		env := a.envelope(b.Script)
		r := cli.NewRenderer(cmd.OutOrStdout(),
			cli.Party{Name: b.Evaluator.Name, Address: env.EvaluatorAddress},
			cli.Party{Name: b.Respondent.Name, Address: env.RespondentAddress},
		)
		for step, err := range b.Engine.Stream(ctx, b.State) {
			if err != nil {
				runErr = err
				break
			}
			r.Step(step)
		}
		res := result(b, started)
		r.Result(res)
	} else {
		_, runErr = b.Engine.Run(ctx, b.State)
		if err := output(result(b, started), cli.FormatYAML); err != nil {
			return err
		}
	}
	if runErr != nil {
		return fmt.Errorf("battle failed: %w", runErr)
	}
	return nil
}

func result(b *battleserver.Battle, started time.Time) *battle.Result {
	res := battle.NewResult(b.State, b.Evaluator, b.Respondent, started, time.Now())
	res.Script = b.Script
	return res
}

func setupTelemetry(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	return telemetry.Setup(ctx, telemetry.Config{
		Endpoint:       cfg.OtelEndpoint,
		ServiceName:    "emailbattle",
		ServiceVersion: build.Version,
	})
}

func flushTelemetry(shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		cli.PrintVerbose(verbose, "telemetry shutdown: %v", err)
	}
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.evaluator, "evaluator", "", "evaluator model name (env EMAILBATTLE_EVALUATOR)")
	f.StringVar(&runFlags.respondent, "respondent", "", "respondent model name (env EMAILBATTLE_RESPONDENT)")
	f.StringVar(&runFlags.script, "script", "", "persona script name (env EMAILBATTLE_SCRIPT)")
	f.IntVar(&runFlags.maxRounds, "max-rounds", battle.DefaultMaxFollowUpRounds, "follow-up round limit (env EMAILBATTLE_MAX_ROUNDS)")
	f.DurationVar(&runFlags.timeout, "timeout", battle.DefaultCallTimeout, "per backend call timeout (env EMAILBATTLE_CALL_TIMEOUT)")
	f.BoolVar(&runFlags.oldestFirst, "oldest-first", false, "show the thread oldest first in model context")

	rootCmd.AddCommand(runCmd)
}
