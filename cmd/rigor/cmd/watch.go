package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/corey/rigor/internal/ports"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Rescore documents as they change",
	Long: "Watches a directory tree (default: current directory) and scores every\n" +
		"supported document when it is written. Runs in the foreground until interrupted.",
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := projectRoot()
	if len(args) == 1 {
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		dir = abs
	}

	a, err := openApp(true)
	if err != nil {
		return err
	}

	err = a.Watch(dir, func(path string, rec *ports.ScoreRecord, err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %s: %v\n", paint(colorYellow, "!"), path, err)
			return
		}
		fmt.Print(formatRecord(rec))
	})
	if err != nil {
		a.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	fmt.Printf("⚡ watching %s\n", dir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\n⚡ stopped watching")
	return a.Stop()
}
