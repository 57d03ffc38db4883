package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/five82/xrayview/internal/logging"
	"github.com/five82/xrayview/internal/mockapi"
)

func main() {
	os.Exit(run())
}

func run() int {
	addr := flag.String("addr", "127.0.0.1:8000", "listen address")
	mediaDir := flag.String("media", filepath.Join(os.TempDir(), "xray-mockapi-media"), "directory for uploaded images")
	seedCount := flag.Int("seed", 15, "number of generated scans (0 starts empty)")
	seedValue := flag.Uint64("seed-value", 1, "random seed for generated scans")
	envelope := flag.Bool("envelope", false, "wrap list responses in a paginated envelope")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	log := logging.NewConsole(os.Stderr, *debug)
	gin.SetMode(gin.ReleaseMode)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv, err := mockapi.New(mockapi.Options{MediaDir: *mediaDir, Envelope: *envelope, Logger: log})
	if err != nil {
		fmt.Fprintf(os.Stderr, "xray-mockapi: %v\n", err)
		return 1
	}
	if *seedCount > 0 {
		if err := srv.Seed(*seedCount, *seedValue); err != nil {
			fmt.Fprintf(os.Stderr, "xray-mockapi: %v\n", err)
			return 1
		}
	}

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", *addr).Str("media", *mediaDir).Int("scans", srv.Len()).Msg("mock scan API listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "xray-mockapi: %v\n", err)
			return 1
		}
	case <-ctx.Done():
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "xray-mockapi: shutdown: %v\n", err)
			return 1
		}
	}
	return 0
}
