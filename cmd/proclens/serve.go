package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/proclens/proclens/pkg/core"
	"github.com/proclens/proclens/pkg/server"
)

var (
	servePort int
	serveHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP classification API",
	Long: `Start a local HTTP server that accepts event log uploads and
classifies them asynchronously.

Endpoints:
  POST /api/upload      - upload an event log file
  POST /api/classify    - start classification of an uploaded log
  GET  /api/job/{id}    - poll job status and result
  GET  /api/download/{id} - download the result as JSON

Examples:
  proclens serve                 # Start on default port (8080)
  proclens serve --port 3000     # Start on custom port
  proclens serve --host 0.0.0.0  # Listen on all interfaces`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	host := cfg.Server.Host
	port := cfg.Server.Port
	if cmd.Flags().Changed("host") {
		host = serveHost
	}
	if cmd.Flags().Changed("port") {
		port = servePort
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := setupTelemetry(ctx)
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	srv := server.NewServer(server.Options{
		Engine:               core.NewEngine(core.WithRules(cfg.RuleSet())),
		ParserConfig:         parserConfig(),
		MaxUploadSize:        cfg.Server.MaxUploadSize,
		TemporalThreshold:    cfg.Thresholds.Temporal,
		ExistentialThreshold: cfg.Thresholds.Existential,
	})

	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	url := fmt.Sprintf("http://%s:%d", host, port)
	if host == "0.0.0.0" || host == "" {
		url = fmt.Sprintf("http://localhost:%d", port)
	}
	fmt.Fprintf(os.Stderr, "proclens server listening on %s\n", url)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	if err := httpServer.Serve(listener); err != http.ErrServerClosed {
		return err
	}
	return nil
}
