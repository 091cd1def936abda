package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zhubert/parley/internal/logger"
	"github.com/zhubert/parley/internal/relay"
)

var (
	listenAddr string
	publicURL  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay server that remote clients connect to",
	Long: `Serves the embedded store, accounts and blobs over a websocket relay.

Clients connect with "parley --server ws://<addr>/ws". Blobs are served
from /blobs on the same address.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Address to listen on (default from config, 127.0.0.1:7420)")
	serveCmd.Flags().StringVar(&publicURL, "public-url", "", "Base URL clients use to fetch blobs (default http://<listen>)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := logger.Init(logger.ServeLogPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	defer logger.Close()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if listenAddr != "" {
		cfg.SetListenAddr(listenAddr)
	}
	addr := cfg.GetListenAddr()

	base := publicURL
	if base == "" {
		base = "http://" + addr
	}
	st, svc, blobs, err := openLocal(cfg, base)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("parley relay listening on %s (ws://%s/ws)\n", addr, addr)
	if path := logger.Path(); path != "" {
		fmt.Printf("logging to %s\n", path)
	}
	if err := relay.NewServer(st, svc, blobs).Run(ctx, addr); err != nil {
		return fmt.Errorf("relay stopped: %w", err)
	}
	return nil
}
