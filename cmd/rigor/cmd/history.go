package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/corey/rigor/internal/adapters/socket"
	"github.com/spf13/cobra"
)

var (
	historyLimit  int
	historyJSON   bool
	historyForget string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent scores",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of records (0 = all)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print as JSON")
	historyCmd.Flags().StringVar(&historyForget, "forget", "", "delete the record with this ID")
}

func runHistory(cmd *cobra.Command, args []string) error {
	client := socket.NewClient(socket.SocketPath(projectRoot()))
	daemonUp := client.Ping()

	if historyForget != "" {
		if daemonUp {
			return errors.New("the daemon holds the history database; stop it first: rigor daemon stop")
		}
		a, err := openApp(true)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Forget(historyForget); err != nil {
			return fmt.Errorf("forget %s: %w", historyForget, err)
		}
		fmt.Printf("⚡ forgot %s\n", historyForget)
		return nil
	}

	var res *socket.HistoryResult
	if daemonUp {
		r, err := client.History(historyLimit)
		if err != nil {
			return err
		}
		res = r
	} else {
		a, err := openApp(true)
		if err != nil {
			return err
		}
		defer a.Close()
		recs, err := a.History(historyLimit)
		if err != nil {
			return err
		}
		res = &socket.HistoryResult{Records: recs, Count: len(recs)}
	}

	if historyJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Print(formatHistory(res))
	return nil
}
