package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/corey/rigor/internal/config"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP scoring API",
	Long: "Runs only the HTTP API in the foreground: POST /text, /pdf, /image, /url,\n" +
		"/api/explain and GET /api/health, /api/history, /api/dictionary.",
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := settings.HTTPAddr
	if serveAddr != "" {
		addr = serveAddr
	}
	if addr == "" || addr == config.HTTPOff {
		return errors.New("no listen address: set http_addr or pass --addr")
	}

	a, err := openApp(true)
	if err != nil {
		return err
	}
	if err := a.Paths.EnsureDirs(); err != nil {
		a.Close()
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := a.WebServer.Start(addr); err != nil {
		a.Close()
		return err
	}
	fmt.Printf("⚡ rigor API listening on %s\n", a.WebServer.URL())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\n⚡ shutting down...")
	return a.Stop()
}
