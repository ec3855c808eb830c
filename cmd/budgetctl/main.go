// Command budgetctl prints Budget Buddy reports from a terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "budgetctl",
		Short: "Budget Buddy reports from the command line",
		Long: `budgetctl talks to the Budget Buddy API with your session token and prints
the same reports as the dashboard: the period summary, the category breakdown
and reconciled budgets.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/budgetctl/config.yaml)")
	rootCmd.PersistentFlags().String("api-url", "http://localhost:3000", "Budget Buddy API base URL")
	rootCmd.PersistentFlags().String("token", "", "session access token")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("json", false, "print JSON instead of a table")
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "per-request HTTP timeout")

	_ = viper.BindPFlag("api.url", rootCmd.PersistentFlags().Lookup("api-url"))
	_ = viper.BindPFlag("api.token", rootCmd.PersistentFlags().Lookup("token"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("output.json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("api.timeout", rootCmd.PersistentFlags().Lookup("timeout"))

	viper.SetDefault("api.max_retries", 3)
	viper.SetDefault("api.initial_backoff", 200*time.Millisecond)
	viper.SetDefault("api.max_concurrency", 8)
	viper.SetDefault("cache.ttl", 5*time.Minute)
	viper.SetDefault("watch.interval", time.Minute)

	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(breakdownCmd())
	rootCmd.AddCommand(budgetsCmd())
	rootCmd.AddCommand(watchCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		viper.AddConfigPath(fmt.Sprintf("%s/.config/budgetctl", home))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// BUDGETCTL_API_TOKEN, BUDGETCTL_API_URL, ...
	viper.SetEnvPrefix("BUDGETCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}
