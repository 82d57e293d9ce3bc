package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/standardbeagle/picket/internal/config"
	"github.com/standardbeagle/picket/internal/logging"
	"github.com/standardbeagle/picket/internal/tools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the relay host with an MCP server over stdio",
	Long: `Run the relay host and expose its state to an MCP client.

The relay host starts exactly as with "picket host"; in addition, an MCP
server on stdio lets the editor assistant pull the most recent captured
component and run prompts directly.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	// Logs must stay off stdout: stdio carries the MCP transport.
	log, err := logging.New(flagVerbose, true)
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := config.LoadConfig(flagDir)
	if err != nil {
		return err
	}

	srv, err := startHost(cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer cancel()

	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "picket",
			Version: version,
		},
		&mcp.ServerOptions{
			Instructions: `Workspace relay host for the browser component picker.

Available tools:
- element_context: Get the most recent component the user pointed at
- endpoints: List the relay port and connected pickers
- send_prompt: Run a prompt against an assistant backend`,
		},
	)

	tools.RegisterElementContextTool(server, srv)
	tools.RegisterEndpointsTool(server, srv)
	tools.RegisterSendPromptTool(server, srv)

	runErr := server.Run(ctx, &mcp.StdioTransport{})

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("host shutdown", zap.Error(err))
	}

	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	return nil
}
