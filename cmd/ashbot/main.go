package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonesycrew/ashbot/internal/profile"
	"github.com/jonesycrew/ashbot/internal/version"
	"github.com/jonesycrew/ashbot/server"
	"github.com/jonesycrew/ashbot/store"
	"github.com/jonesycrew/ashbot/store/db"
)

// Exit codes. Deployment tooling keys restart and alerting behavior off
// these, so they are stable.
const (
	exitConfig      = 1 // required configuration absent or malformed
	exitCredentials = 2 // required credentials absent or rejected
	exitProvider    = 3 // unrecoverable failure in a backing service
)

var rootCmd = &cobra.Command{
	Use:   "ashbot",
	Short: `Discord-resident assistant for Captain Jonesy's gaming community: catalog answers, reminders, trivia, and moderation support.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Only load .env for direct binary execution; the systemd unit
		// injects environment through EnvironmentFile instead.
		if !isRunningAsSystemdService() {
			_ = godotenv.Load()
		}
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Data:    viper.GetString("data"),
			Driver:  viper.GetString("driver"),
			DSN:     viper.GetString("dsn"),
			Version: version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		setupLogger(instanceProfile)
		if err := instanceProfile.Validate(); err != nil {
			slog.Error("invalid configuration", "error", err)
			os.Exit(exitFor(err))
		}

		ctx, cancel := context.WithCancel(context.Background())
		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			cancel()
			printDatabaseError(err, instanceProfile)
			slog.Error("failed to create db driver", "error", err)
			os.Exit(exitProvider)
		}

		storeInstance := store.New(dbDriver, instanceProfile)
		if err := storeInstance.Migrate(ctx); err != nil {
			cancel()
			slog.Error("failed to migrate", "error", err)
			os.Exit(exitProvider)
		}

		s, err := server.NewServer(ctx, instanceProfile, storeInstance)
		if err != nil {
			cancel()
			slog.Error("failed to create server", "error", err)
			os.Exit(exitProvider)
		}

		c := make(chan os.Signal, 1)
		// Trigger graceful shutdown on SIGINT or SIGTERM. SIGTERM is what
		// most process managers (systemd, kubernetes) send first.
		signal.Notify(c, terminationSignals...)

		if err := s.Start(ctx); err != nil {
			slog.Error("failed to start server", "error", err)
			s.Shutdown(ctx)
			cancel()
			os.Exit(exitFor(err))
		}

		printGreetings(instanceProfile)

		go func() {
			<-c
			s.Shutdown(ctx)
			cancel()
		}()

		// Wait for CTRL-C.
		<-ctx.Done()
	},
}

// setupLogger installs the process-wide logger: JSON at Info for production,
// text at Debug for dev runs.
func setupLogger(p *profile.Profile) {
	if p.IsDev() {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		return
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

// exitFor maps a startup error to the process exit code.
func exitFor(err error) int {
	switch {
	case errors.Is(err, profile.ErrMissingCredentials):
		return exitCredentials
	case errors.Is(err, profile.ErrMissingConfig):
		return exitConfig
	default:
		return exitProvider
	}
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "postgres")
	viper.SetDefault("port", 28085)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of the status server")
	rootCmd.PersistentFlags().Int("port", 28085, "port of the status server")
	rootCmd.PersistentFlags().String("data", "", "data directory (sqlite driver)")
	rootCmd.PersistentFlags().String("driver", "postgres", "database driver (postgres, sqlite)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name(aka. DSN)")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("ashbot")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func printGreetings(profile *profile.Profile) {
	fmt.Printf("Ash %s reporting. Efficiency is expected.\n", profile.Version)

	if profile.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
		if profile.DSN != "" {
			fmt.Fprintf(os.Stderr, "Database: %s\n", profile.DSN)
		}
	}

	fmt.Printf("Database driver: %s\n", profile.Driver)
	fmt.Printf("Mode: %s\n", profile.Mode)
	if len(profile.Addr) == 0 {
		fmt.Printf("Status endpoint: http://localhost:%d/healthz\n", profile.Port)
	} else {
		fmt.Printf("Status endpoint: http://%s:%d/healthz\n", profile.Addr, profile.Port)
	}
}

// isRunningAsSystemdService detects if the process is running under systemd.
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

// printDatabaseError gives operators an actionable message before the
// process exits with a provider failure.
func printDatabaseError(err error, profile *profile.Profile) {
	errMsg := err.Error()
	fmt.Fprintln(os.Stderr, "\nDatabase connection failed.")

	switch {
	case strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no such host"):
		fmt.Fprintln(os.Stderr, "PostgreSQL is not reachable. Start it first.")
		if profile.Driver == "postgres" {
			fmt.Fprintln(os.Stderr, "Or run with --driver=sqlite --data=./data for local use.")
		}
	case strings.Contains(errMsg, "SSL is not enabled") || strings.Contains(errMsg, "sslmode"):
		fmt.Fprintln(os.Stderr, "SSL configuration mismatch. Add ?sslmode=disable to DATABASE_URL for local instances.")
	case strings.Contains(errMsg, "password authentication failed"):
		fmt.Fprintln(os.Stderr, "Authentication failed. Check the credentials in DATABASE_URL or .env.")
	case strings.Contains(errMsg, "does not exist") && strings.Contains(errMsg, "database"):
		fmt.Fprintln(os.Stderr, "Database does not exist. Create it first: CREATE DATABASE ashbot;")
	default:
		fmt.Fprintln(os.Stderr, "Error:", errMsg)
	}

	if _, statErr := os.Stat(".env"); statErr != nil {
		fmt.Fprintln(os.Stderr, "Tip: create a .env file for local configuration (see .env.example)")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
