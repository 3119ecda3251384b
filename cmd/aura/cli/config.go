package cli

import (
	"fmt"

	"github.com/aura-ai/aura/internal/credential"
	"github.com/spf13/cobra"
)

var configReveal bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long: `Stores a configuration value in the database. Values for keys that
look sensitive (ending in _key, _secret, _token, _password) are encrypted
at rest.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		key := args[0]
		value := args[1]

		obs := newObserver()
		defer obs.Close()
		cfg := loadConfig(obs)

		if credential.IsSensitiveKey(key) {
			m, err := credential.NewManager()
			if err != nil {
				obs.Log().Fatal().Err(err).Msg("Failed to init credential manager")
			}
			value, err = m.Encrypt(value)
			if err != nil {
				obs.Log().Fatal().Err(err).Msg("Failed to encrypt value")
			}
		}

		s := getStore(obs, cfg)
		defer s.Close()

		if err := s.SetConfig(cmd.Context(), key, value); err != nil {
			obs.Log().Fatal().Err(err).Msg("Failed to set config")
		}
		fmt.Printf("Configuration saved: %s\n", key)
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		key := args[0]

		obs := newObserver()
		defer obs.Close()
		cfg := loadConfig(obs)

		s := getStore(obs, cfg)
		defer s.Close()

		val, err := s.GetConfig(cmd.Context(), key)
		if err != nil {
			obs.Log().Fatal().Err(err).Msg("Failed to get config")
		}
		if val == "" {
			fmt.Println("(not set)")
			return
		}

		if credential.IsEncrypted(val) {
			m, err := credential.NewManager()
			if err != nil {
				obs.Log().Fatal().Err(err).Msg("Failed to init credential manager")
			}
			plain, err := m.Decrypt(val)
			if err != nil {
				obs.Log().Fatal().Err(err).Msg("Failed to decrypt value")
			}
			if configReveal {
				fmt.Println(plain)
			} else {
				fmt.Println(credential.MaskSecret(plain))
			}
			return
		}

		fmt.Println(val)
	},
}

func init() {
	RootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	configGetCmd.Flags().BoolVar(&configReveal, "reveal", false, "Print decrypted secrets instead of masking them")
}
