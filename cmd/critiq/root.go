// Command critiq is the review-classification agent toolkit: a relay
// server for inter-agent messaging, a batch classification pipeline, and
// an interactive chat session.
package main

import (
	"fmt"
	"os"

	"github.com/kataras/golog"
	"github.com/spf13/cobra"

	"github.com/critiq-ai/critiq/config"
	"github.com/critiq-ai/critiq/log"
	"github.com/critiq-ai/critiq/session"
	"github.com/critiq-ai/critiq/store/memory"
	"github.com/critiq-ai/critiq/store/postgres"
	"github.com/critiq-ai/critiq/store/redis"
	"github.com/critiq-ai/critiq/store/sqlite"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "critiq",
	Short:         "Review-classification agent toolkit",
	Long:          "critiq classifies customer reviews into normalized issues and runs\nthe conversational agent and relay that surround the pipeline.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

func newLogger() log.Logger {
	logger := log.NewGologLogger(golog.New())
	if verbose {
		logger.SetLevel(log.LevelDebug)
	}
	return logger
}

// newSessionStore builds the configured session backend and a cleanup
// function.
func newSessionStore(cmd *cobra.Command, cfg *config.Config) (session.Store, func(), error) {
	switch cfg.SessionStore {
	case "memory":
		return memory.New(), func() {}, nil
	case "sqlite":
		s, err := sqlite.New(sqlite.Options{Path: cfg.SQLitePath})
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "postgres":
		s, err := postgres.New(cmd.Context(), postgres.Options{ConnString: cfg.DatabaseURL})
		if err != nil {
			return nil, nil, err
		}
		if err := s.InitSchema(cmd.Context()); err != nil {
			s.Close()
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "redis":
		s := redis.New(redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.SessionTTL,
		})
		return s, func() { s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}
}
