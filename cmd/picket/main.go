package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "picket",
	Short: "Point at a UI component in the browser, send it to an editor assistant",
	Long: `Picket bridges a browser-side component picker to editor-side AI
assistants over a localhost WebSocket relay.

The host command serves a workspace on the first free relay port; the
picker connects to every candidate port and lets the user hold a
modifier key, hover a component, and compose a prompt around it.`,
	Version: version,
}

var (
	flagVerbose  bool
	flagJSONLogs bool
	flagDir      string
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagJSONLogs, "json-logs", false, "Emit structured JSON logs")
	rootCmd.PersistentFlags().StringVarP(&flagDir, "dir", "C", ".", "Directory to resolve configuration from")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
