package app

import (
	"os"
	"path/filepath"
)

// Paths holds all resolved filesystem paths under the data directory.
// All fields are pre-computed strings.
type Paths struct {
	Root string // .rigor/

	LogDir    string // .rigor/log/
	DaemonLog string // .rigor/log/daemon.log

	RunDir   string // .rigor/run/
	PIDFile  string // .rigor/run/daemon.pid
	PortFile string // .rigor/run/http.addr
}

// NewPaths constructs all resolved paths from a data directory.
func NewPaths(dataDir string) *Paths {
	return &Paths{
		Root: dataDir,

		LogDir:    filepath.Join(dataDir, "log"),
		DaemonLog: filepath.Join(dataDir, "log", "daemon.log"),

		RunDir:   filepath.Join(dataDir, "run"),
		PIDFile:  filepath.Join(dataDir, "run", "daemon.pid"),
		PortFile: filepath.Join(dataDir, "run", "http.addr"),
	}
}

// EnsureDirs creates all subdirectories. Idempotent.
func (p *Paths) EnsureDirs() error {
	for _, d := range []string{p.Root, p.LogDir, p.RunDir} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}

// CleanEphemeral removes runtime files (PID file and port file).
// Called on clean daemon shutdown.
func (p *Paths) CleanEphemeral() {
	os.Remove(p.PIDFile)
	os.Remove(p.PortFile)
}
