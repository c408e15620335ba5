package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ML-4-SocialGood/ReWildID/internal/config"
	"github.com/ML-4-SocialGood/ReWildID/internal/embedding"
	"github.com/ML-4-SocialGood/ReWildID/internal/imaging"
	"github.com/ML-4-SocialGood/ReWildID/internal/logging"
	"github.com/ML-4-SocialGood/ReWildID/internal/reid"
	"github.com/ML-4-SocialGood/ReWildID/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the identification REST API",
	Long: `Start the HTTP server used by the desktop frontend.

Jobs are submitted as the same JSON documents the reid command reads, run
asynchronously, and polled by id.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8095, "Port to listen on")
	serveCmd.Flags().String("host", "127.0.0.1", "Host to bind to")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	log := logging.Setup(cfg.Log.Dir, cfg.Log.Level)

	store := openConfiguredStore(cfg, log)
	if store != nil {
		defer store.Close()
	}

	pipeline := &reid.Pipeline{
		Cfg:   cfg,
		Store: store,
		NewExtractor: func(species string) embedding.Extractor {
			return embedding.NewClient(cfg.Extractor.URL, species)
		},
		LoadCrop: imaging.LoadCrop,
		Log:      log,
	}

	addr := fmt.Sprintf("%s:%d", mustGetString(cmd, "host"), mustGetInt(cmd, "port"))
	server := web.NewServer(pipeline, addr, log)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
