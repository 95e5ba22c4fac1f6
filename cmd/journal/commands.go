package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trading-journal-go/internal/ledger"
	"trading-journal-go/internal/marketdata"
	"trading-journal-go/internal/trades"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSaveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "save <YYYY-MM-DD>",
		Short: "Fetch a day's orders and executions and save them as snapshots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date := args[0]
			if _, _, err := ledger.Window(date); err != nil {
				return err
			}

			res, err := a.session(cmd.Context())
			if err != nil {
				return err
			}

			paths := ledger.Paths{
				Orders:     a.cfg.Storage.OrdersFile,
				Executions: a.cfg.Storage.ExecutionsFile,
			}
			l := ledger.NewLedger(res.Client, res.Credential, a.cfg.Questrade.AccountID, paths, a.log)

			orders, err := l.FetchOrders(cmd.Context(), date)
			if err != nil {
				return err
			}
			execs, err := l.FetchExecutions(cmd.Context(), date)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d orders to %s and %d executions to %s\n",
				len(orders), paths.Orders, len(execs), paths.Executions)
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var noJournal bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Reconstruct trades from the saved orders and write them as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orders, err := ledger.LoadOrders(a.cfg.Storage.OrdersFile)
			if err != nil {
				return fmt.Errorf("failed to load orders: %w", err)
			}

			result, err := trades.NewReconstructor(a.log).Export(a.cfg.Storage.ExportFile, orders)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d trades to %s\n", len(result), a.cfg.Storage.ExportFile)

			if noJournal {
				return nil
			}
			store, err := a.store()
			if err != nil {
				return err
			}
			batchID, inserted, err := store.Record(result)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded batch %s (%d new trades)\n", batchID, inserted)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noJournal, "no-journal", false, "only write the CSV")
	return cmd
}

func newPriceCmd(a *app) *cobra.Command {
	var regularHours bool

	cmd := &cobra.Command{
		Use:   "price <symbol>",
		Short: "Print the last trade price of a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.gateway(cmd.Context())
			if err != nil {
				return err
			}
			price, ok := g.LastPrice(cmd.Context(), args[0], regularHours)
			if !ok {
				return fmt.Errorf("no last price for %s", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), price.String())
			return nil
		},
	}

	cmd.Flags().BoolVar(&regularHours, "regular-hours", false, "use the last price from regular trading hours")
	return cmd
}

func newCloseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "close <symbol>",
		Short: "Print the previous day's close of a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.gateway(cmd.Context())
			if err != nil {
				return err
			}
			price, ok := g.PreviousClose(cmd.Context(), args[0])
			if !ok {
				return fmt.Errorf("no previous close for %s", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), price.String())
			return nil
		},
	}
}

func newCandlesCmd(a *app) *cobra.Command {
	var timeframe string

	cmd := &cobra.Command{
		Use:   "candles <symbol>",
		Short: "Print the most recent candles of a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tf, err := marketdata.ParseTimeframe(timeframe)
			if err != nil {
				return err
			}

			g, err := a.gateway(cmd.Context())
			if err != nil {
				return err
			}
			candles, ok := g.Candles(cmd.Context(), args[0], tf)
			if !ok {
				return fmt.Errorf("no candles for %s", args[0])
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "start,open,high,low,close,volume")
			for _, c := range candles {
				fmt.Fprintf(out, "%s,%s,%s,%s,%s,%d\n", c.Start, c.Open, c.High, c.Low, c.Close, c.Volume)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&timeframe, "timeframe", string(marketdata.OneDay), "candle granularity, e.g. OneMinute, OneHour, OneDay")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print journal statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}
			stats, err := store.Statistics(time.Now())
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the journal over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.store()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := NewAPIServer(fmt.Sprintf(":%d", a.cfg.Server.Port), NewAPIHandler(a.log, store), a.log)
			if err := srv.Run(ctx); err != nil {
				a.log.Error("Web server failed", zap.Error(err))
				return err
			}
			return nil
		},
	}
}
