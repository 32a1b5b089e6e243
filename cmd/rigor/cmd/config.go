package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/corey/rigor/internal/adapters/socket"
	"github.com/corey/rigor/internal/app"
	"github.com/corey/rigor/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
	Long:  "Shows the effective settings, data paths, socket path, and daemon status. No daemon required.",
	RunE:  runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	root := projectRoot()
	sockPath := socket.SocketPath(root)
	paths := app.NewPaths(settings.DataDir)

	client := socket.NewClient(sockPath)
	daemonRunning := client.Ping()
	daemonStatus := paint(colorYellow, "✗ not running")
	if daemonRunning {
		daemonStatus = paint(colorGreen, "✓ running")
	}

	fmt.Println(paint(colorBold, "⚡ rigor config"))
	fmt.Printf("  Root:       %s\n", root)
	fmt.Printf("  Data:       %s\n", paths.Root)
	if settings.Store != config.StoreNone {
		fmt.Printf("  DB:         %s (%s)\n", settings.DBPath, settings.Store)
	}
	fmt.Printf("  Socket:     %s\n", sockPath)
	fmt.Printf("  Daemon:     %s\n", daemonStatus)

	if daemonRunning {
		if addr, err := os.ReadFile(paths.PortFile); err == nil {
			fmt.Printf("  HTTP API:   http://%s\n", strings.TrimSpace(string(addr)))
		}
	}

	out, err := settings.YAML()
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Print(paint(colorGray, string(out)))
	return nil
}
