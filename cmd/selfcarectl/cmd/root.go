// Package cmd implements the selfcarectl command tree. Every subcommand works
// against the same wiring: credential store, remote gateway and session
// manager, assembled once per invocation from the loaded configuration.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"go.pilab.hu/selfcare/config"
	"go.pilab.hu/selfcare/credstore"
	"go.pilab.hu/selfcare/credstore/memory"
	redisstore "go.pilab.hu/selfcare/credstore/redis"
	"go.pilab.hu/selfcare/credstore/mongodb"
	"go.pilab.hu/selfcare/domain"
	"go.pilab.hu/selfcare/gateway"
	"go.pilab.hu/selfcare/log"
	"go.pilab.hu/selfcare/session"
)

var (
	appLogger log.Logger
	cfg       *config.ClientConfig

	// Assembled by buildApp in PersistentPreRunE, shared by all subcommands.
	app struct {
		store   domain.CredentialStore
		creds   *session.Credentials
		signal  *session.Signal
		gateway *gateway.Gateway
		manager *session.Manager
		cleanup func(context.Context)
	}
)

var rootCmd = &cobra.Command{
	Use:   "selfcarectl",
	Short: "selfcarectl is a CLI for the ISP self-service account API",
	Long: `A command-line interface for the customer self-service core: log in and out
of the account API, inspect the active profile, and run redirect-based
payments against the account.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		level, lerr := zerolog.ParseLevel(cfg.LogLevel)
		if lerr != nil {
			level = zerolog.InfoLevel
		}
		zerolog.SetGlobalLevel(level)
		appLogger = log.NewZerologAdapter(level, cfg.LogPretty).
			With(log.Fields{"command": cmd.Name()})
		appLogger.Debug(cmd.Context(), "configuration loaded", log.Fields{
			"api_base_url":       cfg.APIBaseURL,
			"credential_backend": cfg.CredentialBackend,
		})

		return buildApp(cmd.Context())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app.cleanup != nil {
			app.cleanup(cmd.Context())
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildApp assembles the session core. The credential slot and forced-logout
// signal are shared between the gateway and the manager; construction order
// matters only in that both exist before either side is built.
func buildApp(ctx context.Context) error {
	store, cleanup, err := buildStore(ctx)
	if err != nil {
		return err
	}

	app.store = store
	app.cleanup = cleanup
	app.creds = session.NewCredentials()
	app.signal = session.NewSignal()
	app.gateway = gateway.New(cfg.APIBaseURL, app.creds, app.signal,
		gateway.WithTimeout(cfg.HTTPTimeout()))
	app.manager = session.NewManager(app.store, app.gateway, app.creds, app.signal)

	app.manager.RegisterForcedLogoutHandler(func(ctx context.Context) {
		appLogger.Warn(ctx, "session revoked by the server")
		fmt.Fprintln(os.Stderr, "Your session was rejected by the server. Please log in again.")
	})
	return nil
}

func buildStore(ctx context.Context) (domain.CredentialStore, func(context.Context), error) {
	switch cfg.CredentialBackend {
	case "file":
		path := os.ExpandEnv(cfg.CredentialFile)
		keyHex := cfg.CredentialKey
		if keyHex == "" {
			// No key configured: keep one beside the credential so a fresh
			// install works out of the box.
			var err error
			keyHex, err = credstore.LoadOrCreateKey(filepath.Join(filepath.Dir(path), "credential.key"))
			if err != nil {
				return nil, nil, fmt.Errorf("failed to provision sealing key: %w", err)
			}
		}
		store, err := credstore.NewFileStore(path, keyHex)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open credential file store: %w", err)
		}
		return store, nil, nil

	case "memory":
		store := memory.NewStore(24 * time.Hour)
		return store, func(context.Context) { store.Close() }, nil

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		store := redisstore.NewStore(client, cfg.RedisPrefix)
		return store, func(context.Context) { _ = client.Close() }, nil

	case "mongodb":
		if err := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName); err != nil {
			return nil, nil, fmt.Errorf("failed to initialize mongodb: %w", err)
		}
		db, err := mongodb.Database()
		if err != nil {
			return nil, nil, err
		}
		return mongodb.NewStore(db), func(ctx context.Context) {
			_ = mongodb.Disconnect(ctx)
		}, nil

	default:
		return nil, nil, fmt.Errorf("unknown credential backend %q", cfg.CredentialBackend)
	}
}
