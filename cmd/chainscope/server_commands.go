package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"blockchain_analytics/internal/infrastructure/restapi"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// listenAddr accepts "8080", ":8080" or "host:8080".
func listenAddr(port string) string {
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the analysis and portfolio REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "port",
				Usage: "Listen port (default: server.port)",
			},
		},
		Action: func(c *cli.Context) error {
			d, cleanup, err := loadDeps(c)
			if err != nil {
				return err
			}
			defer cleanup()

			if !strings.EqualFold(d.cfg.Logging.Level, "debug") {
				gin.SetMode(gin.ReleaseMode)
			}

			handler := restapi.NewHandler(d.analyzer, d.patterns, d.portfolio, d.network.Identifier, d.cfg.Analysis.RecentTransactions)
			router := restapi.SetupRouter(handler, d.zap.Named("http"), d.registry)

			port := d.cfg.Server.Port
			if c.IsSet("port") {
				port = c.String("port")
			}
			srv := &http.Server{
				Addr:         listenAddr(port),
				Handler:      router,
				ReadTimeout:  time.Duration(d.cfg.Server.ReadTimeout) * time.Second,
				WriteTimeout: time.Duration(d.cfg.Server.WriteTimeout) * time.Second,
				IdleTimeout:  time.Duration(d.cfg.Server.IdleTimeout) * time.Second,
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				d.zap.Info("Server starting", zap.String("addr", srv.Addr), zap.String("network", d.network.Identifier))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			d.zap.Info("Shutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			d.zap.Info("Server exiting")
			return nil
		},
	}
}
