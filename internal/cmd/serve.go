package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/sflowg/dingtalk/runtime"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the DingTalk node over HTTP",
	Long: `Serve exposes the node on an HTTP API:

  GET  /nodes                 node and trigger descriptions
  GET  /credentials           credential type descriptions
  POST /nodes/:name/execute   {"parameters": {...}, "items": [...], "continueOnFail": false}
  POST /tasks/:name           {"node": "dingtalkNode", "parameters": {...}, "args": {...}}
`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address, overrides serve.addr")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}

	addr := a.cfg.Serve.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := &http.Server{Addr: addr, Handler: newRouter(a)}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		a.logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		a.logger.Error("HTTP shutdown failed", "error", shutdownErr)
	}
	a.close(shutdownCtx)

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newRouter(a *app) *gin.Engine {
	if !debug && a.cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	g := gin.New()
	g.Use(gin.Recovery())
	runtime.NewHTTPHandler(a.container, g)
	return g
}
