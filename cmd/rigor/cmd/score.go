package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/corey/rigor/internal/adapters/socket"
	"github.com/corey/rigor/internal/ports"
	"github.com/spf13/cobra"
)

var (
	scoreText    string
	scoreURL     string
	scoreExplain bool
	scoreJSON    bool
)

var scoreCmd = &cobra.Command{
	Use:   "score [file|-]",
	Short: "Score a document",
	Long: "Scores a text, Markdown, LaTeX, HTML or PDF file, stdin (-), inline --text, or a --url.\n" +
		"Uses the running daemon when there is one; otherwise scores in-process.",
	Args: cobra.MaximumNArgs(1),
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().StringVarP(&scoreText, "text", "t", "", "score this text")
	scoreCmd.Flags().StringVarP(&scoreURL, "url", "u", "", "download and score a URL")
	scoreCmd.Flags().BoolVarP(&scoreExplain, "explain", "e", false, "also print each step")
	scoreCmd.Flags().BoolVar(&scoreJSON, "json", false, "print the record as JSON")
}

// scoreInput resolves the command line into socket params. Stdin and --text
// are read here so the daemon only ever sees text, a path or a URL.
func scoreInput(cmd *cobra.Command, args []string) (socket.ScoreParams, error) {
	textSet := cmd.Flags().Changed("text")
	n := len(args)
	if textSet {
		n++
	}
	if scoreURL != "" {
		n++
	}
	if n == 0 && stdinPiped() {
		args = []string{"-"}
		n = 1
	}
	switch {
	case n == 0:
		return socket.ScoreParams{}, errors.New("nothing to score: pass a file, -, --text or --url")
	case n > 1:
		return socket.ScoreParams{}, errors.New("pass exactly one of file, -, --text or --url")
	}

	switch {
	case textSet:
		return socket.ScoreParams{Text: scoreText, Source: "-"}, nil
	case scoreURL != "":
		return socket.ScoreParams{URL: scoreURL}, nil
	case args[0] == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return socket.ScoreParams{}, fmt.Errorf("read stdin: %w", err)
		}
		return socket.ScoreParams{Text: string(data), Source: "-"}, nil
	default:
		abs, err := filepath.Abs(args[0])
		if err != nil {
			return socket.ScoreParams{}, err
		}
		return socket.ScoreParams{Path: abs}, nil
	}
}

func runScore(cmd *cobra.Command, args []string) error {
	p, err := scoreInput(cmd, args)
	if err != nil {
		return err
	}

	rec, err := scoreParams(p)
	if err != nil {
		return err
	}

	if scoreJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}
	fmt.Print(formatRecord(rec))

	if scoreExplain {
		res, err := explainParams(p)
		if err != nil {
			return err
		}
		fmt.Print(formatTrace(res))
	}
	return nil
}

// scoreParams scores through the daemon when it answers, else in-process.
func scoreParams(p socket.ScoreParams) (*ports.ScoreRecord, error) {
	client := socket.NewClient(socket.SocketPath(projectRoot()))
	if client.Ping() {
		return client.Score(p)
	}

	a, err := openApp(true)
	if err != nil {
		return nil, err
	}
	defer a.Close()
	return a.Score(context.Background(), p)
}
