package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/conorfennell/knolcards/internal/completion"
	"github.com/conorfennell/knolcards/internal/config"
	"github.com/conorfennell/knolcards/internal/generate"
	"github.com/conorfennell/knolcards/internal/ingest"
	"github.com/conorfennell/knolcards/internal/review"
	"github.com/conorfennell/knolcards/internal/storage"
	"github.com/conorfennell/knolcards/internal/web"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

// app holds what every command needs once flags are parsed.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *storage.DB
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "knolcards",
		Short:         "Turn notes into spaced-repetition cards",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !needsApp(cmd) {
				return nil
			}
			return a.init(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newServeCmd(a),
		newImportCmd(a),
		newCheckCmd(a),
		newGenerateCmd(a),
		newDueCmd(a),
		newScoreCmd(a),
		newReviewsCmd(a),
		newResetCmd(a),
	)
	return root
}

// needsApp reports whether cmd works on the store. cobra's help and shell
// completion commands only print.
func needsApp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return false
		}
	}
	return true
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = config.NewLogger(cfg.Log, os.Stderr)

	db, err := storage.Open(cfg.DB)
	if err != nil {
		a.logger.Error("Failed to open database", "path", cfg.DB, "error", err)
		return err
	}
	a.db = db
	a.logger.Debug("Database opened", "path", cfg.DB)
	return nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *app) ingestService() *ingest.Service {
	return ingest.NewService(a.db, a.logger)
}

func (a *app) reviewEngine() *review.Engine {
	return review.NewEngine(a.db, a.logger)
}

func (a *app) orchestrator() (*generate.Orchestrator, error) {
	client, err := completion.NewClient(completion.Config{
		BaseURL: a.cfg.Completion.BaseURL,
		APIKey:  a.cfg.Completion.APIKey,
		Model:   a.cfg.Completion.Model,
	})
	if err != nil {
		return nil, err
	}
	return generate.New(a.db, client, generate.Config{
		Concurrency: a.cfg.Generate.Concurrency,
		Timeout:     a.cfg.Completion.Timeout,
		Attempts:    a.cfg.Generate.Attempts,
		RetryDelay:  a.cfg.Generate.RetryDelay,
	}, a.logger), nil
}

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			orchestrator, err := a.orchestrator()
			if err != nil {
				return err
			}

			gin.SetMode(gin.ReleaseMode)
			server := web.NewServer(
				a.ingestService(),
				orchestrator,
				a.reviewEngine(),
				a.db,
				web.Options{AllowOrigins: a.cfg.Server.AllowOrigins},
				a.logger,
			)

			httpServer := &http.Server{
				Addr:              a.cfg.Server.Addr,
				Handler:           server,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("Starting server", "addr", a.cfg.Server.Addr)
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server failed: %w", err)
			case <-cmd.Context().Done():
				a.logger.Info("Shutting down server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return httpServer.Shutdown(shutdownCtx)
			}
		},
	}
}
