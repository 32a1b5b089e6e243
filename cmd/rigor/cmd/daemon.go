package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/corey/rigor/internal/adapters/socket"
	"github.com/corey/rigor/internal/app"
	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the rigor daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon in the foreground",
	Long: "Serves the socket protocol for this directory and, unless http_addr is \"off\",\n" +
		"the HTTP API. Stops on SIGINT, SIGTERM or `rigor daemon stop`.",
	RunE: runDaemonStart,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the daemon",
	RunE:  runDaemonStop,
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
}

func runDaemonStart(cmd *cobra.Command, args []string) error {
	root := projectRoot()
	sockPath := socket.SocketPath(root)

	client := socket.NewClient(sockPath)
	if client.Ping() {
		fmt.Println("⚡ daemon already running")
		return nil
	}

	paths := app.NewPaths(settings.DataDir)
	if err := paths.EnsureDirs(); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	logFile, err := os.OpenFile(paths.DaemonLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open daemon log: %w", err)
	}
	defer logFile.Close()
	slog.SetDefault(slog.New(slog.NewTextHandler(io.MultiWriter(os.Stderr, logFile),
		&slog.HandlerOptions{Level: settings.Level()})))

	a, err := openApp(true)
	if err != nil {
		return err
	}

	if err := os.WriteFile(a.Paths.PIDFile, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644); err != nil {
		slog.Warn("write pid file", "path", a.Paths.PIDFile, "err", err)
	}
	if err := a.Start(); err != nil {
		a.Close()
		a.Paths.CleanEphemeral()
		return err
	}

	fmt.Printf("⚡ rigor daemon started at %s\n", sockPath)
	if a.WebServer.Addr() != "" {
		fmt.Printf("  HTTP API: %s\n", a.WebServer.URL())
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-a.Server.ShutdownCh():
	}

	fmt.Println("\n⚡ shutting down...")
	err = a.Stop()
	a.Paths.CleanEphemeral()
	return err
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	sockPath := socket.SocketPath(projectRoot())
	client := socket.NewClient(sockPath)

	if !client.Ping() {
		if _, err := os.Stat(sockPath); err == nil {
			os.Remove(sockPath)
			fmt.Printf("⚡ daemon is not running (removed stale socket %s)\n", sockPath)
			return nil
		}
		fmt.Println("⚡ daemon is not running")
		return nil
	}

	if err := client.Shutdown(); err != nil {
		return err
	}

	fmt.Println("⚡ daemon stopped")
	return nil
}
