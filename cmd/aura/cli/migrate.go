package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Administrative schema migrations",
}

var migrateCheckpointsCmd = &cobra.Command{
	Use:   "checkpoints",
	Short: "Drop the legacy checkpoints table",
	Long: `The old checkpointer kept per-step rows in a separate checkpoints
table without a usable uniqueness constraint, which broke concurrent writers.
Agent state now lives in agent_state, one row per session. This command drops
the legacy table wholesale, since duplicate rows cannot be repaired
automatically, and reports how many rows were discarded.`,
	Run: func(cmd *cobra.Command, args []string) {
		obs := newObserver()
		defer obs.Close()
		cfg := loadConfig(obs)

		s := getStore(obs, cfg)
		defer s.Close()

		ctx, span := obs.StartSpan(cmd.Context(), "migrate.checkpoints")
		defer span.End()

		res, err := s.DropLegacyCheckpoints(ctx)
		if err != nil {
			obs.Log().Fatal().Err(err).Msg("Failed to drop checkpoints table")
		}

		if !res.Dropped {
			fmt.Println("Checkpoints table does not exist (already removed)")
			return
		}
		fmt.Printf("Checkpoints table dropped (%d rows discarded)\n", res.RowsDiscarded)
	},
}

func init() {
	RootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateCheckpointsCmd)
}
