package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/shepherdjerred/jsdeminify/internal/config"
	"github.com/shepherdjerred/jsdeminify/internal/oracle"
	"github.com/shepherdjerred/jsdeminify/internal/oracle/egress"
	"github.com/shepherdjerred/jsdeminify/internal/scheduler"
	"github.com/shepherdjerred/jsdeminify/pkg/deminify"
)

type runFlags struct {
	configPath string
	modelKey   string
	output     string
	cacheDir   string
	useBatch   bool
	yes        bool
}

func newRunCmd() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "De-minify a single JavaScript file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeminify(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.configPath, "config", ".jsdeminify.yaml", "path to config file")
	cmd.Flags().StringVar(&flags.modelKey, "model", "", "model table key to use (defaults to config's default_model)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output path (defaults to stdout)")
	cmd.Flags().StringVar(&flags.cacheDir, "cache-dir", "", "override the config's cache directory")
	cmd.Flags().BoolVar(&flags.useBatch, "batch", false, "use the oracle's deferred batch transport instead of interactive calls")
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "skip the cost confirmation prompt")

	return cmd
}

func runDeminify(cmd *cobra.Command, path string, flags *runFlags) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if flags.cacheDir != "" {
		cfg.CacheDir = flags.cacheDir
	}

	modelCfg, apiKey, err := cfg.Resolve(flags.modelKey)
	if err != nil {
		return err
	}

	oracleClient, err := buildOracle(modelCfg, apiKey)
	if err != nil {
		return err
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("deminify: read %s: %w", path, err)
	}

	var bar *progressbar.ProgressBar

	opts := deminify.Options{
		Model:              modelCfg.Model,
		Provider:           modelCfg.Provider,
		Oracle:             oracleClient,
		CacheDir:           cfg.CacheDir,
		UseBatch:           flags.useBatch,
		Concurrency:        cfg.Concurrency,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TokenBudget:        cfg.TokenBudget,
		CostCeilingCents:   cfg.CostCeilingCents,
		ConfirmCost:        confirmCost(cmd, flags.yes),
		OnProgress: func(p scheduler.Progress) {
			if bar == nil {
				bar = progressbar.Default(int64(p.Total), "renaming")
			}
			bar.Set(p.Processed)
		},
	}

	result, err := deminify.Deminify(ctx, string(source), opts)
	if err != nil {
		return err
	}
	if bar != nil {
		_ = bar.Finish()
	}

	if flags.output != "" {
		if err := os.WriteFile(flags.output, []byte(result.Source), 0o644); err != nil {
			return fmt.Errorf("deminify: write %s: %w", flags.output, err)
		}
	} else {
		fmt.Fprint(cmd.OutOrStdout(), result.Source)
	}

	printSummary(cmd, result.Summary)
	return nil
}

func buildOracle(mc config.ModelConfig, apiKey string) (oracle.Oracle, error) {
	switch mc.Provider {
	case "anthropic":
		return oracle.NewAnthropicOracle(apiKey)
	case "openai", "":
		return oracle.NewOpenAIOracle(apiKey)
	default:
		return nil, fmt.Errorf("deminify: unsupported provider %q", mc.Provider)
	}
}

// confirmCost returns a ConfirmCost callback that prints the coarse cost
// estimate and prompts on stdin, or always approves when yes is set.
func confirmCost(cmd *cobra.Command, yes bool) func(egress.CostEstimate) bool {
	return func(estimate egress.CostEstimate) bool {
		line := fmt.Sprintf("%d functions, ~%d input + %d output tokens, est. $%.4f",
			estimate.FunctionCount, estimate.InputTokens, estimate.OutputTokens, estimate.EstimatedUSD)
		fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString(line))
		if yes {
			return true
		}

		fmt.Fprint(cmd.ErrOrStderr(), color.CyanString("Proceed? [y/N] "))
		reader := bufio.NewReader(cmd.InOrStdin())
		response, _ := reader.ReadString('\n')
		response = strings.ToLower(strings.TrimSpace(response))
		return response == "y" || response == "yes"
	}
}

func printSummary(cmd *cobra.Command, summary deminify.Summary) {
	out := cmd.ErrOrStderr()
	fmt.Fprintf(out, "%s %d/%d functions mapped (%d unmapped) in %s\n",
		color.GreenString("done:"), summary.Mapped, summary.FunctionCount, summary.Unmapped, summary.Elapsed)
	if summary.CostSummary != "" {
		fmt.Fprintln(out, summary.CostSummary)
	}
	if summary.BudgetSummary != "" {
		fmt.Fprintln(out, summary.BudgetSummary)
	}
}
