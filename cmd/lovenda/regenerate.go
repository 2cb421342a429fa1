package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lovenda/lovenda/internal/ai"
	"github.com/lovenda/lovenda/internal/display"
	"github.com/lovenda/lovenda/internal/planctx"
	"github.com/lovenda/lovenda/internal/priorities"
	"github.com/lovenda/lovenda/internal/storage"
	"github.com/lovenda/lovenda/internal/tasksync"
	"github.com/lovenda/lovenda/internal/template"
)

var regenerateCmd = &cobra.Command{
	Use:   "regenerate <wedding>",
	Short: "Generate a fresh checklist for a wedding",
	Long: `Build the planning context, ask the generator for a checklist and apply it.

By default previously generated tasks are replaced; tasks the couple added
themselves are always kept. The profile starts from the one used last time,
overlaid with --profile when given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		weddingID := args[0]

		profilePath, _ := cmd.Flags().GetString("profile")
		additive, _ := cmd.Flags().GetBool("additive")
		dedupe, _ := cmd.Flags().GetBool("dedupe")
		refDate, _ := cmd.Flags().GetString("reference-date")
		fallback, _ := cmd.Flags().GetBool("fallback")
		offline, _ := cmd.Flags().GetBool("offline")

		var ref *time.Time
		if refDate != "" {
			d, err := parseDate(refDate)
			if err != nil {
				return fmt.Errorf("--reference-date: %w", err)
			}
			ref = &d
		}

		regen, err := newRegenerator(offline, fallback || cfg.UseFallback)
		if err != nil {
			return err
		}

		seed, planned, err := regen.SeedDefaults(ctx, weddingID)
		if err != nil {
			return err
		}
		profile := planctx.Profile(seed)
		if profilePath != "" {
			raw, err := loadProfile(profilePath)
			if err != nil {
				return err
			}
			profile = planctx.Merge(profile, raw)
		} else if !planned {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Printf("%s No previous plan for %s; using the default profile. Pass --profile to describe the wedding.\n",
				yellow("ℹ"), weddingID)
		}

		lockPath, err := storage.AcquireRegenerationLock(dbPath, weddingID)
		if errors.Is(err, storage.ErrLockHeld) {
			return fmt.Errorf("a regeneration for %s is already running: %w", weddingID, tasksync.ErrSyncConflict)
		}
		if err != nil {
			return err
		}
		defer func() {
			if err := storage.ReleaseRegenerationLock(lockPath); err != nil {
				slog.Warn("failed to release regeneration lock", "path", lockPath, "error", err)
			}
		}()

		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("%s Generating plan for %s...\n", cyan("💍"), weddingID)

		out, err := regen.Regenerate(ctx, tasksync.Request{
			WeddingID:            weddingID,
			Profile:              profile,
			ClearPrevious:        !additive,
			Dedupe:               dedupe,
			WeddingReferenceDate: ref,
			Actor:                actor,
		})
		if ai.IsGenerationError(err) {
			return fmt.Errorf("%w (your existing tasks are unchanged)", err)
		}
		if err != nil {
			return err
		}

		printOutcome(out)

		tasks, err := store.ListTasks(ctx, weddingID)
		if err != nil {
			return err
		}
		next, tier := priorities.SelectNextTaskWithTier(tasks, today())
		display.Next(cmd.OutOrStdout(), next, tier, today())
		return nil
	},
}

func init() {
	regenerateCmd.Flags().String("profile", "", "Wedding profile file (YAML or JSON)")
	regenerateCmd.Flags().Bool("additive", false, "Keep previously generated tasks")
	regenerateCmd.Flags().Bool("dedupe", false, "Skip tasks whose title and category already exist")
	regenerateCmd.Flags().String("reference-date", "", "Date offsets count back from (YYYY-MM-DD; default: wedding date)")
	regenerateCmd.Flags().Bool("fallback", false, "Use the built-in checklist if the AI generator fails")
	regenerateCmd.Flags().Bool("offline", false, "Use only the built-in checklist")
	rootCmd.AddCommand(regenerateCmd)
}

// newRegenerator wires the generator chain from the loaded config
func newRegenerator(offline, fallback bool) (*tasksync.Regenerator, error) {
	builtin, err := template.New()
	if err != nil {
		return nil, err
	}

	rc := tasksync.RegeneratorConfig{Store: store, Logger: slog.Default(), Now: today}
	switch {
	case offline:
		rc.Generator = builtin
	case cfg.APIKey == "" && fallback:
		slog.Warn("ANTHROPIC_API_KEY not set, using the built-in checklist")
		rc.Generator = builtin
	case cfg.APIKey == "":
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set (use --offline for the built-in checklist)")
	default:
		completer, err := ai.NewAnthropicCompleter(cfg.AnthropicConfig())
		if err != nil {
			return nil, err
		}
		gateway, err := ai.NewGateway(cfg.GatewayConfig(completer, slog.Default()))
		if err != nil {
			return nil, err
		}
		rc.Generator = gateway
		if fallback {
			rc.Fallback = builtin
		}
	}
	return tasksync.NewRegenerator(rc)
}

func printOutcome(out *tasksync.Outcome) {
	green := color.New(color.FgGreen).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	source := "AI"
	if out.UsedFallback || !out.Result.UsedAI {
		source = "built-in checklist"
	}
	fmt.Printf("%s Plan applied from %s: %d created, %d removed, %d skipped\n",
		green("✓"), source, out.Applied.Created, out.Applied.Removed, out.Applied.Skipped)
	fmt.Printf("  %s\n", gray(out.Context.String()))
	if out.Result.Summary != "" {
		fmt.Printf("\n%s\n", out.Result.Summary)
	}
	if rec := out.Result.TimelineAdjustments.Recommendation; rec != "" {
		fmt.Printf("\n%s %s\n", color.New(color.FgYellow).Sprint("Timeline:"), rec)
	}
}
