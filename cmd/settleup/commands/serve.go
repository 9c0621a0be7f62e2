package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/settleup/internal/auth"
	"github.com/mmynk/settleup/internal/events"
	"github.com/mmynk/settleup/internal/metrics"
	"github.com/mmynk/settleup/internal/middleware"
	"github.com/mmynk/settleup/internal/rpc"
	"github.com/mmynk/settleup/internal/service"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Connect API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()
	slog.Info("Storage initialized", "backend", a.cfg.DataBackend, "database", a.cfg.DBPath)

	var publisher events.Publisher = events.NopPublisher{}
	if a.cfg.AMQP.URL != "" {
		p, err := events.NewAMQPPublisher(a.cfg.AMQP.URL, a.cfg.AMQP.Exchange, a.cfg.AMQP.RoutingKey)
		if err != nil {
			return err
		}
		publisher = p
		slog.Info("Event publisher connected", "exchange", a.cfg.AMQP.Exchange)
	}
	defer publisher.Close()

	m := metrics.New()
	jwtManager := auth.NewJWTManager(a.cfg.JWTSecret, a.cfg.TokenDuration)
	interceptors := connect.WithInterceptors(
		middleware.RequireAuth(jwtManager),
		middleware.LoggingInterceptor(),
	)

	mux := http.NewServeMux()
	mux.Handle(rpc.NewGroupServiceHandler(service.NewGroupService(store), interceptors))
	mux.Handle(rpc.NewExpenseServiceHandler(service.NewExpenseService(store, m), interceptors))
	mux.Handle(rpc.NewSettlementServiceHandler(service.NewSettlementService(store, m, publisher), interceptors))
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// h2c serves HTTP/2 without TLS, which gRPC clients of a Connect server need.
	handler := h2c.NewHandler(middleware.Logging(middleware.CORS(mux)), &http2.Server{})

	srv := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Connect server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
