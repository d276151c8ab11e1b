/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/dnaeon/go-vcr.v3/cassette"
	"gopkg.in/dnaeon/go-vcr.v3/recorder"

	"github.com/toothbrush/webverse-authoring/aem"
	"github.com/toothbrush/webverse-authoring/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the authoring HTTP API",
	Long: `
Serves the authoring API under --api-prefix until interrupted.  In-flight requests get a few
seconds to finish on shutdown.
`,
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var (
	ListenHost string
	ListenPort string
	APIPrefix  string
	WithVCR    bool
	Cassette   string
)

const shutdownGrace = 10 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&ListenHost, "host", "0.0.0.0", "address to listen on")
	serveCmd.Flags().StringVar(&ListenPort, "port", "8000", "port to listen on")
	serveCmd.Flags().StringVar(&APIPrefix, "api-prefix", server.DefaultPrefix, "path prefix of the API routes")
	serveCmd.Flags().BoolVar(&WithVCR, "with-vcr", false, "use go-vcr to record and replay AEM responses")
	serveCmd.Flags().StringVar(&Cassette, "cassette", "fixtures/aem", "go-vcr cassette, for --with-vcr")
}

func runServe(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	api, err := newAPI()
	if err != nil {
		return fmt.Errorf("cmd: AEM API creation failed: %w", err)
	}
	builder, err := newBuilder(api)
	if err != nil {
		return fmt.Errorf("cmd: invalid markets: %w", err)
	}

	if WithVCR {
		r, err := newRecorder(Cassette, api.Client())
		if err != nil {
			return err
		}
		defer r.Stop() // Make sure recorder is stopped once done with it
		api.UseClient(r.GetDefaultClient())
		logger.Warn("recording AEM traffic", zap.String("cassette", Cassette))
	}

	if token, ok := api.Credentials().(*aem.ServiceToken); ok {
		if err := token.Watch(ctx); err != nil {
			logger.Warn("not watching the service token file, relying on max age", zap.Error(err))
		}
		defer token.Close()
	}

	srv := server.New(builder, api)
	srv.Logger = logger.Named("http")
	srv.Prefix = APIPrefix
	srv.Version = shortVersion()
	srv.Environment = Environment

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(ListenHost, ListenPort),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", httpServer.Addr),
			zap.String("prefix", APIPrefix),
			zap.String("aem", api.BaseURI.String()),
			zap.Strings("markets", builder.Markets.List()))
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("cmd: server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("cmd: graceful shutdown failed: %w", err)
	}
	return nil
}

// newRecorder sets up go-vcr in front of the real transport.  Known interactions are replayed,
// new ones are recorded, and credentials never make it into the cassette.
func newRecorder(name string, client *http.Client) (*recorder.Recorder, error) {
	transport := http.DefaultTransport
	if client != nil && client.Transport != nil {
		transport = client.Transport
	}

	opts := &recorder.Options{
		CassetteName:       name,
		Mode:               recorder.ModeReplayWithNewEpisodes,
		SkipRequestLatency: true,
		RealTransport:      transport,
	}
	r, err := recorder.NewWithOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("cmd: couldn't set up go-vcr recording: %w", err)
	}

	// Add a hook which removes credentials from all requests
	hook := func(i *cassette.Interaction) error {
		delete(i.Request.Headers, "Authorization")
		delete(i.Request.Headers, "Csrf-Token")
		return nil
	}
	r.AddHook(hook, recorder.AfterCaptureHook)
	r.SetReplayableInteractions(true)

	return r, nil
}
