// Command mmpd turns a MIDI controller into a context-aware macro pad. See
// internal/app for the actual CLI and event loop; this file only owns
// process exit status, mirroring the teacher's src/pulsekontrol.go.
package main

import (
	"os"

	"github.com/michd/mmpd/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
