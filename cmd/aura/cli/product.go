package cli

import (
	"fmt"

	"github.com/aura-ai/aura/internal/embedding"
	"github.com/aura-ai/aura/internal/store"
	"github.com/spf13/cobra"
)

var (
	productVecFile string
	productLimit   int
)

var productCmd = &cobra.Command{
	Use:   "product",
	Short: "Manage product embeddings",
}

var productPutCmd = &cobra.Command{
	Use:   "put [product-id]",
	Short: "Store a product embedding",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		obs := newObserver()
		defer obs.Close()
		cfg := loadConfig(obs)

		vec, err := readVectorFile(productVecFile)
		if err != nil {
			obs.Log().Fatal().Err(err).Msg("Failed to read vector file")
		}

		s := getStore(obs, cfg)
		defer s.Close()

		p := &store.ProductEmbedding{ProductID: args[0], Vector: vec}
		if err := s.PutProductEmbedding(cmd.Context(), p); err != nil {
			obs.Log().Fatal().Err(err).Msg("Failed to store product embedding")
		}
		fmt.Printf("Product embedding saved: %s\n", args[0])
	},
}

var productRankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank stored products against the beauty standard embedding",
	Run: func(cmd *cobra.Command, args []string) {
		obs := newObserver()
		defer obs.Close()
		cfg := loadConfig(obs)

		r := newResolver(obs, cfg)
		v := r.Resolve(embedding.KeyBeautyStandard, nil)
		if v.Source == embedding.SourcePlaceholder {
			obs.Log().Warn().Msg("Ranking against placeholder zero vector; results are arbitrary")
		}

		s := getStore(obs, cfg)
		defer s.Close()

		ctx, span := obs.StartSpan(cmd.Context(), "product.rank")
		defer span.End()

		results, err := s.SearchSimilarProducts(ctx, v.Vector, productLimit)
		if err != nil {
			obs.Log().Fatal().Err(err).Msg("Failed to search products")
		}

		if len(results) == 0 {
			fmt.Println("(no product embeddings stored)")
			return
		}
		for i, p := range results {
			fmt.Printf("%2d. %-24s %.6f\n", i+1, p.ProductID, p.Similarity)
		}
	},
}

func init() {
	RootCmd.AddCommand(productCmd)
	productCmd.AddCommand(productPutCmd)
	productCmd.AddCommand(productRankCmd)
	productPutCmd.Flags().StringVarP(&productVecFile, "file", "f", "", "Path to vector file (.npy or comma-separated floats)")
	_ = productPutCmd.MarkFlagRequired("file")
	productRankCmd.Flags().IntVarP(&productLimit, "limit", "n", 10, "Maximum number of results")
}
