// boatchat - chat orchestration backend
// Entry point: wire configuration, logging, the conversation store, and the
// chat pipeline, then serve HTTP until interrupted.

package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bps-ai-services/boatchat/internal/api"
	"github.com/bps-ai-services/boatchat/internal/domain/chat"
	"github.com/bps-ai-services/boatchat/internal/history"
	"github.com/bps-ai-services/boatchat/internal/infra/config"
	"github.com/bps-ai-services/boatchat/internal/infra/logging"
	"github.com/bps-ai-services/boatchat/internal/infra/openai"
	"github.com/bps-ai-services/boatchat/internal/infra/promptflow"
	"github.com/bps-ai-services/boatchat/internal/infra/sqlite"
	"github.com/bps-ai-services/boatchat/internal/server"
	"github.com/bps-ai-services/boatchat/internal/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("boatchat", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	configPath := fs.String("config", "", "Path to the YAML config file")
	showVersion := fs.Bool("version", false, "Show version information")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(out, "usage: boatchat [-config path] [-version]") //nolint:errcheck
		return 2
	}

	if *showVersion {
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(out, err) //nolint:errcheck
		return 1
	}

	// One-time logger initialization; every component receives this instance.
	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintln(out, err) //nolint:errcheck
		return 1
	}
	defer log.Sync() //nolint:errcheck

	if err := serve(cfg, log); err != nil {
		log.Error("server exited", zap.Error(err))
		return 1
	}
	return 0
}

func serve(cfg *config.Settings, log *zap.Logger) error {
	var (
		db    *sql.DB
		store *history.Factory
	)
	if cfg.ChatHistory != nil {
		var err error
		db, err = sqlite.NewDB(cfg.ChatHistory.DatabasePath)
		if err != nil {
			return fmt.Errorf("opening history database: %w", err)
		}
		if err := sqlite.MigrateUp(db); err != nil {
			return fmt.Errorf("migrating history database: %w", err)
		}
		store = history.NewFactory(db, cfg.ChatHistory.EnableFeedback)
		log.Info("chat history enabled", zap.String("path", cfg.ChatHistory.DatabasePath))
	} else {
		log.Info("chat history not configured, history routes will report it")
	}

	completions := openai.NewClient(cfg.AzureOpenAI.Endpoint, cfg.AzureOpenAI.Key, cfg.AzureOpenAI.APIVersion)
	flow := promptflow.New(
		cfg.Promptflow.RequestFieldName,
		cfg.Promptflow.ResponseFieldName,
		cfg.Promptflow.Timeout(),
	)
	builder := chat.NewArgumentBuilder(cfg, log)
	dispatcher := chat.NewDispatcher(cfg, builder, completions, flow, log)
	orch := chat.NewOrchestrator(cfg, dispatcher, store, log)

	router := api.NewRouter(cfg, orch, store, log)

	srvConfig := server.DefaultConfig()
	srvConfig.Host = cfg.Server.Host
	srvConfig.Port = cfg.Server.Port
	srv := server.NewServer(router, db, srvConfig, log)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info("received signal", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
