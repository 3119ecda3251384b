package cli

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/aura-ai/aura/internal/embedding"
	"github.com/spf13/cobra"
)

var embeddingOutput string

var embeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Manage reference embeddings",
}

var embeddingShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Resolve the beauty standard embedding and report its source",
	Run: func(cmd *cobra.Command, args []string) {
		obs := newObserver()
		defer obs.Close()
		cfg := loadConfig(obs)

		r := newResolver(obs, cfg)
		v := r.Resolve(embedding.KeyBeautyStandard, nil)

		var norm float64
		for _, x := range v.Vector {
			norm += x * x
		}

		fmt.Printf("key:    %s\n", v.Key)
		fmt.Printf("source: %s\n", v.Source)
		fmt.Printf("dim:    %d\n", len(v.Vector))
		fmt.Printf("norm:   %.6f\n", math.Sqrt(norm))

		if v.Source == embedding.SourcePlaceholder {
			fmt.Printf("\nUsing placeholder zero vector. Set %s or %s to configure a real embedding.\n",
				embedding.EnvVar(embedding.KeyBeautyStandard),
				embedding.PathEnvVar(embedding.KeyBeautyStandard))
		}
	},
}

var embeddingSetCmd = &cobra.Command{
	Use:   "set [input-file]",
	Short: "Persist the beauty standard embedding from a file",
	Long: `Reads a 768-dimensional vector from an .npy file or a text file of
comma-separated floats and writes it to the embedding file location.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		obs := newObserver()
		defer obs.Close()
		cfg := loadConfig(obs)

		vec, err := readVectorFile(args[0])
		if err != nil {
			obs.Log().Fatal().Err(err).Msg("Failed to read input vector")
		}

		r := newResolver(obs, cfg)
		target := embeddingOutput
		if target == "" {
			target = r.PathFor(embedding.KeyBeautyStandard)
		}

		if violation := newGuard(cfg).CheckWritePath(target); violation != nil {
			obs.Log().Fatal().Str("rule", violation.Rule).Msg(violation.Message)
		}

		if err := r.Persist(vec, target); err != nil {
			obs.Log().Fatal().Err(err).Msg("Failed to persist embedding")
		}
		fmt.Printf("Embedding saved: %s (%d elements)\n", target, len(vec))
	},
}

func readVectorFile(path string) ([]float64, error) {
	if strings.ToLower(filepath.Ext(path)) == ".npy" {
		return embedding.ReadNpyFile(path)
	}
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to read vector file: %w", err)
	}
	return embedding.ParseVector(string(data))
}

func init() {
	RootCmd.AddCommand(embeddingCmd)
	embeddingCmd.AddCommand(embeddingShowCmd)
	embeddingCmd.AddCommand(embeddingSetCmd)
	embeddingSetCmd.Flags().StringVarP(&embeddingOutput, "output", "o", "", "Target path (default: the file-tier location)")
}
