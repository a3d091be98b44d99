package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/sw33tLie/vendorscope/internal/utils"
	"github.com/sw33tLie/vendorscope/pkg/model"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vendorscope",
	Short: "Keeps a vendor directory's review scores and candidate list up to date.",
	Long: `vendorscope reconciles a vendor directory with the outside world.

It aggregates review scores scraped from G2 and Capterra into one composite
record per vendor, and turns a discovery feed into candidate entries whose
websites have been checked for ketamine and psychiatry evidence.

Every run writes its documents to --outdir; nothing is overwritten unless the
whole run succeeded.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		levelString, _ := cmd.Flags().GetString("loglevel")
		if err := utils.SetLogLevel(levelString); err != nil {
			return err
		}
		if date, _ := cmd.Flags().GetString("date"); date != "" {
			if _, err := time.Parse(model.DateLayout, date); err != nil {
				return fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", date)
			}
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		utils.Log.Error(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.vendorscope.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().StringP("outdir", "o", "out", "Directory the run documents are written to")
	rootCmd.PersistentFlags().String("date", "", "Run date stamp YYYY-MM-DD (default: today, UTC)")
	rootCmd.PersistentFlags().String("db", "", "Record the run in this SQLite history file")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// .env.local overrides .env
	for _, envFile := range []string{".env.local", ".env"} {
		if err := godotenv.Load(envFile); err == nil {
			utils.Log.Debugf("Loaded %s", envFile)
		}
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".vendorscope")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("VENDORSCOPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("paths.registry", filepath.Join("data", "review-mappings.yaml"))
	viper.SetDefault("paths.content", filepath.Join("data", "vendors.yaml"))
	viper.SetDefault("paths.previous", "")
	viper.SetDefault("sources.g2", "")
	viper.SetDefault("sources.capterra", "")
	viper.SetDefault("evidence.concurrency", 4)
	viper.SetDefault("evidence.host_interval", "2s")
	viper.SetDefault("evidence.probe_timeout", "10s")
	viper.SetDefault("evidence.fetch_timeout", "15s")
	viper.SetDefault("feed.url", "")
	viper.SetDefault("feed.file", "")
	viper.SetDefault("feed.api_key", "")

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && cfgFile == "" {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := filepath.Join(home, ".vendorscope.yaml")
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				utils.Log.Debugf("Could not create config file: %v", err)
			}
		} else {
			utils.Log.Warnf("Could not read config file: %v", err)
		}
	}
}
