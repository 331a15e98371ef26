package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/replyflow/pkg/usage"
)

func newUsageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "usage <userId>",
		Short: "Print a user's plan, current-month usage and limits as JSON",
		Long: "Print the same bundle POST /api/usage returns. Like the endpoint, it " +
			"creates the free plan record and the current month's zeroed usage record " +
			"when they do not exist yet.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadAppConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			be, err := openBackend(cmd.Context(), cfg, log, backendOptions{})
			if err != nil {
				return err
			}
			defer be.close()

			bundle, err := usage.NewService(be.store, usage.WithLogger(log)).GetUsageBundle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(bundle)
		},
	}
}

func newPlanCmd() *cobra.Command {
	var drafts, sends string
	cmd := &cobra.Command{
		Use:   "plan <userId> <free|pro|team>",
		Short: "Set a user's tier and optional per-user limit overrides",
		Long: "Set a user's tier. --drafts and --sends override the tier defaults; " +
			"pass -1 for unlimited or an empty value to clear an override.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tier := usage.Tier(args[1])
			switch tier {
			case usage.TierFree, usage.TierPro, usage.TierTeam:
			default:
				return fmt.Errorf("unknown tier %q", args[1])
			}
			draftLimit, err := parseOverride(drafts)
			if err != nil {
				return fmt.Errorf("--drafts: %w", err)
			}
			sendLimit, err := parseOverride(sends)
			if err != nil {
				return fmt.Errorf("--sends: %w", err)
			}

			cfg, err := loadAppConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			be, err := openBackend(cmd.Context(), cfg, log, backendOptions{})
			if err != nil {
				return err
			}
			defer be.close()

			return be.setPlan(cmd.Context(), usage.Plan{
				UserID:     args[0],
				Tier:       tier,
				DraftLimit: draftLimit,
				SendLimit:  sendLimit,
			})
		},
	}
	cmd.Flags().StringVar(&drafts, "drafts", "", "monthly draft limit override")
	cmd.Flags().StringVar(&sends, "sends", "", "monthly send limit override")
	return cmd
}

func parseOverride(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	if n < usage.Unlimited {
		return nil, fmt.Errorf("limit must be -1 or greater, got %d", n)
	}
	return &n, nil
}
