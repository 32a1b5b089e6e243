package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/corey/rigor/internal/adapters/socket"
	"github.com/spf13/cobra"
)

var explainJSON bool

var explainCmd = &cobra.Command{
	Use:   "explain [file|-]",
	Short: "Show every operator applied to a document",
	Long: "Prints each matched phrase in scan order with its operator and the score\n" +
		"before and after. Nothing is recorded in history.",
	Args: cobra.MaximumNArgs(1),
	RunE: runExplain,
}

func init() {
	explainCmd.Flags().StringVarP(&scoreText, "text", "t", "", "explain this text")
	explainCmd.Flags().StringVarP(&scoreURL, "url", "u", "", "download and explain a URL")
	explainCmd.Flags().BoolVar(&explainJSON, "json", false, "print the trace as JSON")
}

func runExplain(cmd *cobra.Command, args []string) error {
	p, err := scoreInput(cmd, args)
	if err != nil {
		return err
	}
	res, err := explainParams(p)
	if err != nil {
		return err
	}
	if explainJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Print(formatTrace(res))
	return nil
}

// explainParams extracts locally, then traces with the daemon's engine when
// it answers so the trace matches what the daemon would score.
func explainParams(p socket.ScoreParams) (*socket.ExplainResult, error) {
	a, err := openApp(false)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	ctx := context.Background()
	text := p.Text
	switch {
	case p.URL != "":
		doc, err := a.Extractor.FromURL(ctx, p.URL)
		if err != nil {
			return nil, err
		}
		text = doc.Text
	case p.Path != "":
		doc, err := a.Extractor.FromFile(p.Path)
		if err != nil {
			return nil, err
		}
		text = doc.Text
	}

	client := socket.NewClient(socket.SocketPath(projectRoot()))
	if client.Ping() {
		return client.Explain(text)
	}
	tr, err := a.Explain(ctx, text)
	if err != nil {
		return nil, err
	}
	return socket.NewExplainResult(tr), nil
}
