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

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/hub"
)

var (
	serveAddr string
	serveTick time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve research state over HTTP and push events over WebSocket",
	Long: `Starts an HTTP API for one colony. Research advances in real time every
--tick; events are pushed to WebSocket clients connected to /ws.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8081", "Listen address")
	serveCmd.Flags().DurationVar(&serveTick, "tick", time.Second, "Simulation tick interval")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if serveTick <= 0 {
		return fmt.Errorf("--tick must be positive, got %s", serveTick)
	}
	db, err := loadDatabase()
	if err != nil {
		return err
	}
	colonyFile, err := loadColonyFile(cmd)
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := hub.New()
	s := newServer(db, colonyFile, h)
	httpServer := &http.Server{
		Addr:              serveAddr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	color.New(color.FgCyan, color.Bold).Fprintf(cmd.OutOrStdout(),
		"🌐 Serving %d technologies on %s (tick %s)\n", db.Len(), serveAddr, serveTick)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return h.Run(gCtx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(serveTick)
		defer ticker.Stop()
		last := time.Now()
		for {
			select {
			case <-gCtx.Done():
				return nil
			case now := <-ticker.C:
				s.tick(now.Sub(last).Seconds())
				last = now
			}
		}
	})
	g.Go(func() error {
		s.log.Info("listening", slog.String("addr", serveAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
