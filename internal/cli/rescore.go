package cli

import (
	"context"
	"fmt"
	"log"

	"completion-service/internal/config"
	"completion-service/internal/domain"
	"github.com/spf13/cobra"
)

// NewRescoreCmd republishes one learner's grade, as the host grading pipeline would.
func NewRescoreCmd(configPath *string) *cobra.Command {
	var (
		blockID      string
		learnerID    string
		onlyIfHigher bool
	)
	cmd := &cobra.Command{
		Use:   "rescore",
		Short: "Recompute and republish a learner's grade for a block",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			key := domain.BlockKey{BlockID: blockID, LearnerID: learnerID}
			return runRescore(cmd.Context(), cfg, key, onlyIfHigher)
		},
	}
	cmd.Flags().StringVar(&blockID, "block", "", "block id")
	cmd.Flags().StringVar(&learnerID, "learner", "", "learner id")
	cmd.Flags().BoolVar(&onlyIfHigher, "only-if-higher", false, "publish the maximum grade")
	_ = cmd.MarkFlagRequired("block")
	_ = cmd.MarkFlagRequired("learner")
	return cmd
}

func runRescore(ctx context.Context, cfg config.Config, key domain.BlockKey, onlyIfHigher bool) error {
	rt, err := buildRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.service.Rescore(ctx, key, onlyIfHigher); err != nil {
		return fmt.Errorf("rescore %s for %s: %w", key.BlockID, key.LearnerID, err)
	}
	log.Printf("rescored block %s for learner %s", key.BlockID, key.LearnerID)
	return nil
}
