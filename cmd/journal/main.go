package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"trading-journal-go/internal/config"
	"trading-journal-go/internal/credentials"
	"trading-journal-go/internal/database"
	"trading-journal-go/internal/journal"
	"trading-journal-go/internal/logger"
	"trading-journal-go/internal/marketdata"
	"trading-journal-go/internal/questrade"
	"trading-journal-go/internal/symbols"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	a := &app{}
	err := newRootCmd(a).Execute()
	a.close()
	if err != nil {
		os.Exit(1)
	}
}

// app carries what every subcommand shares once flags are parsed.
type app struct {
	configDir    string
	refreshToken string

	cfg config.Config
	log *zap.Logger
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "journal",
		Short: "Questrade trade journal",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Argument errors are reported with usage; runtime errors are not.
			cmd.SilenceUsage = true
			return a.init()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Usage()
			return errors.New("missing action")
		},
	}

	root.PersistentFlags().StringVar(&a.configDir, "config", "./configs", "directory containing config.yml")
	root.PersistentFlags().StringVar(&a.refreshToken, "refresh-token", "", "Questrade refresh token (overrides every other credential source)")

	root.AddCommand(
		newSaveCmd(a),
		newExportCmd(a),
		newPriceCmd(a),
		newCloseCmd(a),
		newCandlesCmd(a),
		newStatsCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.LoadConfig(a.configDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if a.refreshToken != "" {
		cfg.Questrade.RefreshToken = a.refreshToken
	}

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.cfg = cfg
	a.log = log
	return nil
}

// close flushes the logger. It runs after every command, failed ones included.
func (a *app) close() {
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// session resolves credentials and fails when none validate.
func (a *app) session(ctx context.Context) (*credentials.Resolution, error) {
	auth := questrade.NewAuthenticator(&a.cfg.Questrade, a.log)
	providers := credentials.DefaultProviders(a.cfg.Questrade.RefreshToken, a.cfg.Questrade.TokenFile)

	res := credentials.NewResolver(auth, providers, a.log).Resolve(ctx)
	if !res.Validated() {
		return res, credentials.ErrNotValidated
	}
	return res, nil
}

func (a *app) gateway(ctx context.Context) (*marketdata.Gateway, error) {
	res, err := a.session(ctx)
	if err != nil {
		return nil, err
	}
	cache, err := symbols.NewCache(a.cfg.Storage.SymbolCache, res.Credential, res.Client, a.log)
	if err != nil {
		return nil, err
	}
	return marketdata.NewGateway(res.Client, cache, a.log), nil
}

func (a *app) store() (*journal.Store, error) {
	db, err := database.NewDatabase(a.cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	a.log.Debug("Journal database ready", zap.String("dsn", a.cfg.Database.DSN))
	return journal.NewStore(db, a.log), nil
}
