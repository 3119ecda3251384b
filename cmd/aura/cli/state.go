package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aura-ai/aura/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	stateFile    string
	stateSession string
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect and write agent conversation state",
}

var stateGetCmd = &cobra.Command{
	Use:   "get [session-id]",
	Short: "Print the latest state snapshot for a session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		obs := newObserver()
		defer obs.Close()
		cfg := loadConfig(obs)

		s := getStore(obs, cfg)
		defer s.Close()

		ctx, span := obs.StartSpan(cmd.Context(), "state.get")
		defer span.End()

		st, err := s.GetState(ctx, args[0])
		if errors.Is(err, store.ErrNotFound) {
			fmt.Println("(no state for session)")
			return
		}
		if err != nil {
			obs.Log().Fatal().Err(err).Msg("Failed to read state")
		}

		fmt.Printf("session: %s\n", st.SessionID)
		fmt.Printf("created: %s\n", st.CreatedAt.Format(time.RFC3339))
		fmt.Printf("updated: %s\n", st.UpdatedAt.Format(time.RFC3339))
		fmt.Printf("\n%s\n", st.StateBlob)
	},
}

var statePutCmd = &cobra.Command{
	Use:   "put",
	Short: "Write a state snapshot for a session",
	Long: `Reads a serialized state payload from --file (or stdin) and upserts
it for the session. Omitting --session creates a new session ID.`,
	Run: func(cmd *cobra.Command, args []string) {
		obs := newObserver()
		defer obs.Close()
		cfg := loadConfig(obs)

		var blob []byte
		var err error
		if stateFile != "" {
			blob, err = os.ReadFile(stateFile) // #nosec G304
		} else {
			blob, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			obs.Log().Fatal().Err(err).Msg("Failed to read state payload")
		}

		sessionID := stateSession
		if sessionID == "" {
			sessionID = uuid.New().String()
		}

		s := getStore(obs, cfg)
		defer s.Close()

		ctx, span := obs.StartSpan(cmd.Context(), "state.put")
		defer span.End()

		if err := s.UpsertState(ctx, sessionID, blob); err != nil {
			obs.Log().Fatal().Err(err).Msg("Failed to upsert state")
		}
		fmt.Printf("State saved: %s (%d bytes)\n", sessionID, len(blob))
	},
}

func init() {
	RootCmd.AddCommand(stateCmd)
	stateCmd.AddCommand(stateGetCmd)
	stateCmd.AddCommand(statePutCmd)
	statePutCmd.Flags().StringVarP(&stateFile, "file", "f", "", "Path to state payload (default: stdin)")
	statePutCmd.Flags().StringVarP(&stateSession, "session", "s", "", "Session ID (default: generate a new one)")
}
