package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/corey/rigor/internal/adapters/socket"
	"github.com/spf13/cobra"
)

var healthJSON bool

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check daemon status",
	Long:  "Reports the daemon's pattern count, store and uptime. Exits non-zero when the store is degraded.",
	RunE:  runHealth,
}

func init() {
	healthCmd.Flags().BoolVar(&healthJSON, "json", false, "print as JSON")
}

func runHealth(cmd *cobra.Command, args []string) error {
	client := socket.NewClient(socket.SocketPath(projectRoot()))
	if !client.Ping() {
		fmt.Println("⚡ rigor daemon is not running")
		return nil
	}

	h, err := client.Health()
	if err != nil {
		return err
	}
	if healthJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(h); err != nil {
			return err
		}
	} else {
		fmt.Print(formatHealth(h))
	}
	if h.Status != "ok" {
		return fmt.Errorf("daemon %s", h.Status)
	}
	return nil
}
