package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ruixin88/backtest-console/src/console-api/models"
	"github.com/ruixin88/backtest-console/src/console-api/router"
	"github.com/ruixin88/backtest-console/src/console-api/services"
	"github.com/ruixin88/backtest-console/src/dbutils"
	"github.com/ruixin88/backtest-console/src/eventpubsub"
	"github.com/ruixin88/backtest-console/src/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the backtest console API server.",
	Run: func(cmd *cobra.Command, args []string) {
		configPath, err := cmd.Flags().GetString("config")
		if err != nil {
			log.Fatalf("failed to read config flag: %v", err)
		}

		if err := run(configPath); err != nil {
			log.Fatal(err)
		}
	},
}

func run(configPath string) error {
	if err := utils.InitEnvironmentVariables(); err != nil {
		log.Warnf("continuing without .env file: %v", err)
	}

	if configPath == "" {
		projectsDir := os.Getenv("PROJECTS_DIR")
		if projectsDir == "" {
			return fmt.Errorf("missing PROJECTS_DIR environment variable")
		}

		configPath = path.Join(projectsDir, "backtest-console", "src", "console-config.yaml")
	}

	config, err := models.LoadConsoleConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := dbutils.InitPostgres(config.Postgres.Host, config.Postgres.Port, config.Postgres.User, config.Postgres.Password, config.Postgres.DBName)
	if err != nil {
		return fmt.Errorf("failed to init postgres: %w", err)
	}

	klines := services.NewKlineStore(config.DataDir)
	trends := services.NewTrendStore(config.DataDir)
	pubsub := eventpubsub.New()
	runner := services.NewTaskRunner(db, klines, trends, pubsub)

	var importer *services.PolygonImporter
	if config.Polygon.APIKey != "" {
		importer = services.NewPolygonImporter(config.Polygon.APIKey, klines)
	} else {
		log.Warn("polygon api key not set, remote import disabled")
	}

	server := router.NewServer(db, klines, trends, runner, pubsub, importer)

	r := mux.NewRouter()
	apiRouter := r.PathPrefix("/api").Subrouter()
	router.SetupHandler(apiRouter, server)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("console api listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		log.Infof("received %v, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down cleanly: %w", err)
	}

	return nil
}

func main() {
	serveCmd.PersistentFlags().String("config", "", "Path to console-config.yaml. Defaults to $PROJECTS_DIR/backtest-console/src/console-config.yaml.")

	if err := serveCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
