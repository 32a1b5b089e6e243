package cmd

import (
	"fmt"
	"os"
)

// isTerminal reports whether f is a character device.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

// stdinPiped reports whether input is piped or redirected in, so a bare
// `rigor score` can read it.
func stdinPiped() bool {
	return !isTerminal(os.Stdin)
}

// resolveColor decides color output. --no-color wins, then --color;
// "auto" colors only a terminal stdout without NO_COLOR set.
func resolveColor(mode string, noColor bool) (bool, error) {
	if noColor {
		return false, nil
	}
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto", "":
		return isTerminal(os.Stdout) && os.Getenv("NO_COLOR") == "", nil
	default:
		return false, fmt.Errorf("--color: unknown mode %q (want auto, always or never)", mode)
	}
}
