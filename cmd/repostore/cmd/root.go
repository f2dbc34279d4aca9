package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/aweris/repostore"
	"github.com/aweris/repostore/internal/logging"
)

var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "repostore",
	Short: "Inspect and edit file backed stores",
	Long:  "CLI for reading and writing configuration, data and blob stores of global and repository scope.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(viper.GetString("log.level"), viper.GetBool("verbose"))
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ~/.config/repostore/config.yaml)")
	flags.String("base-dir", "", "directory of global stores (default: ~/.local/share/repostore)")
	flags.String("repos-dir", "", "directory holding one subdirectory per repository")
	flags.String("repo", "", "operate on the stores of this repository")
	flags.Bool("no-cache", false, "disable the entry cache")
	flags.BoolP("verbose", "v", false, "enable debug logging")

	viper.BindPFlag("base_dir", flags.Lookup("base-dir"))
	viper.BindPFlag("repositories_dir", flags.Lookup("repos-dir"))
	viper.BindPFlag("repo", flags.Lookup("repo"))
	viper.BindPFlag("verbose", flags.Lookup("verbose"))
}

func initConfig() {
	if cfg := rootCmd.PersistentFlags().Lookup("config").Value.String(); cfg != "" {
		viper.SetConfigFile(cfg)
	} else {
		viper.AddConfigPath(configDir())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("REPOSTORE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.SetDefault("base_dir", repostore.DefaultBaseDir())
	viper.SetDefault("cache.entries", true)
	viper.SetDefault("cache.instances", true)
	viper.SetDefault("blob.compression", 0)
	viper.SetDefault("blob.atomic", false)
	viper.SetDefault("log.level", "warn")

	viper.ReadInConfig()
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "repostore")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "repostore")
	}
	return ".repostore"
}

// openFactory builds a factory from the resolved configuration.
func openFactory(cmd *cobra.Command) (*repostore.Factory, error) {
	entries := viper.GetBool("cache.entries")
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		entries = false
	}

	opts := []repostore.Option{
		repostore.WithLogger(logger),
		repostore.WithEntryCache(entries),
		repostore.WithInstanceCache(viper.GetBool("cache.instances")),
		repostore.WithBlobCompression(viper.GetInt("blob.compression")),
	}
	if dir := viper.GetString("repositories_dir"); dir != "" {
		opts = append(opts, repostore.WithRepositoriesDir(dir))
	}
	if viper.GetBool("blob.atomic") {
		opts = append(opts, repostore.WithAtomicBlobs())
	}
	return repostore.New(viper.GetString("base_dir"), opts...)
}

// storeOptions returns the options selecting the global or --repo store.
func storeOptions(readOnly bool) []repostore.StoreOption {
	var opts []repostore.StoreOption
	if repo := viper.GetString("repo"); repo != "" {
		opts = append(opts, repostore.ForRepository(repo))
	}
	if readOnly {
		opts = append(opts, repostore.ReadOnly())
	}
	return opts
}
