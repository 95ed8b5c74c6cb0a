package commands

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskview/internal/memapi"
)

var (
	serveAddr  string
	serveSeed  int
	serveAdmin bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run an in-memory task service",
	Long: `Run an in-memory implementation of the task tracker service. Data is
lost on exit. Useful for trying the other commands without a backend.

Examples:
  taskview serve --seed 40 --admin
  TASKVIEW_API_URL=http://localhost:3000 taskview list`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.Addr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}

		api := memapi.NewServer(logger.Named("memapi"), memapi.WithViewer(memapi.Viewer{UserID: 1, Admin: serveAdmin}))
		if serveSeed > 0 {
			memapi.Seed(api.Store(), serveSeed)
			logger.Info("Seeded demo data", zap.Int("tasks", serveSeed))
		}

		r := chi.NewRouter() // Создаем роутер
		r.Use(middleware.RequestID)
		r.Use(middleware.RealIP)
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)
		r.Mount("/", api)

		srv := &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}

		ctx, cancel := signalContext()
		defer cancel()

		errCh := make(chan error, 1)
		go func() { // Запуск сервера и обработка ошибок
			logger.Info("Server started", zap.String("addr", srv.Addr), zap.Bool("admin", serveAdmin))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err, ok := <-errCh:
			if ok {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		// Graceful shutdown
		logger.Info("Shutting down server...")
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logger.Info("Server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from TASKVIEW_ADDR)")
	serveCmd.Flags().IntVar(&serveSeed, "seed", 0, "Number of demo tasks to create")
	serveCmd.Flags().BoolVar(&serveAdmin, "admin", false, "Serve every request as an admin")
	rootCmd.AddCommand(serveCmd)
}
