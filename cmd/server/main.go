/*
main.go - Application entry point

PURPOSE:
  Starts the TickSnap payment engine server. Handles configuration,
  dependency wiring, and graceful shutdown.

COMMANDS:
  serve    run the HTTP server
  seed     import master credits from a CSV file
  version  print the build version

STARTUP SEQUENCE (serve):
  1. Load TOML configuration
  2. Open the SQLite store
  3. Assemble engine (ledger, log appender, receipt renderer, sessions)
  4. Configure the chi router with the allow-list
  5. Serve with graceful shutdown on SIGINT/SIGTERM

EXAMPLES:
  ./server serve --config ticksnap.toml
  ./server seed --config ticksnap.toml --csv credits.csv
*/
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ticksnap/credit-engine/api"
	"github.com/ticksnap/credit-engine/config"
	"github.com/ticksnap/credit-engine/engine"
	"github.com/ticksnap/credit-engine/receipt"
	"github.com/ticksnap/credit-engine/store/sqlite"
)

const version = "0.1.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "TickSnap credit matching and payment logging server",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Import master credits from a CSV file",
	Long: `Import master credit rows from a CSV file into the local store.
Each record needs 11 columns: first name, last name, item, item code,
item id, store, address, total credit, installment amount,
total installments, installments paid.`,
	RunE: runSeed,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to TOML config file")
	seedCmd.Flags().String("csv", "", "CSV file with master credit rows")
	seedCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(serveCmd, seedCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	ttl, err := cfg.Engine.SessionTTLDuration()
	if err != nil {
		return err
	}

	store, err := sqlite.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer store.Close()

	eng := engine.New(store.Ledger(), store.Log(), receipt.New(), cfg.Engine.Collector, ttl)
	eng.Appender.FirstRow = cfg.Engine.LogFirstRow
	eng.Appender.MaxAttempts = cfg.Engine.MaxAppendAttempts

	handler := api.NewHandler(eng, api.NewAllowList(cfg.Engine.AllowedRequesters))
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Metrics:        cfg.Server.Metrics,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("server listening on http://%s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	log.Println("server stopped")
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	csvPath, _ := cmd.Flags().GetString("csv")

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = int(engine.MasterColumns)
	records, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("read csv: %w", err)
	}

	store, err := sqlite.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer store.Close()

	n, err := store.Ledger().Import(context.Background(), records)
	if err != nil {
		return fmt.Errorf("import credits: %w", err)
	}
	log.Printf("imported %d credit row(s) into %s", n, cfg.Store.Path)
	return nil
}
