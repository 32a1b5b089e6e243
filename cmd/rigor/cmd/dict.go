package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/corey/rigor/internal/adapters/socket"
	"github.com/corey/rigor/internal/app"
	"github.com/spf13/cobra"
)

var (
	dictStats  bool
	dictJSON   bool
	dictVerify string
)

var dictCmd = &cobra.Command{
	Use:   "dict",
	Short: "Show the rigor dictionary",
	Long: "Lists every phrase and its operator. --stats summarises the automaton;\n" +
		"--verify cross-checks the automaton against an independent matcher on a file (or - for stdin).",
	Args: cobra.NoArgs,
	RunE: runDict,
}

func init() {
	dictCmd.Flags().BoolVar(&dictStats, "stats", false, "summary only")
	dictCmd.Flags().BoolVar(&dictJSON, "json", false, "print as JSON")
	dictCmd.Flags().StringVar(&dictVerify, "verify", "", "cross-check matches on this file (- for stdin)")
}

func runDict(cmd *cobra.Command, args []string) error {
	if dictVerify != "" {
		return runDictVerify(dictVerify)
	}

	var res *socket.DictionaryResult
	client := socket.NewClient(socket.SocketPath(projectRoot()))
	if client.Ping() {
		r, err := client.Dictionary()
		if err != nil {
			return err
		}
		res = r
	} else {
		e, err := app.NewEngine(settings)
		if err != nil {
			return err
		}
		res = socket.NewDictionaryResult(e)
	}

	if dictJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Print(formatDictionary(res, dictStats))
	return nil
}

func runDictVerify(path string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	var text string
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(data)
	} else {
		doc, err := a.Extractor.FromFile(path)
		if err != nil {
			return err
		}
		text = doc.Text
	}

	rep, err := a.Verify(text)
	if err != nil {
		return err
	}
	fmt.Print(formatVerify(rep))
	if !rep.OK() {
		return fmt.Errorf("%d divergences", len(rep.Divergences))
	}
	return nil
}
