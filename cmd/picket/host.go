package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/standardbeagle/picket/internal/assistant"
	"github.com/standardbeagle/picket/internal/config"
	"github.com/standardbeagle/picket/internal/host"
	"github.com/standardbeagle/picket/internal/logging"
	"github.com/standardbeagle/picket/internal/protocol"
)

var hostCmd = &cobra.Command{
	Use:   "host",
	Short: "Serve this workspace on the first free relay port",
	Long: `Start the editor-side relay host for the current workspace.

The host binds the first free port from the candidate range, greets each
connecting picker with the workspace name and path, and executes
incoming prompts against the configured assistant backends.`,
	RunE: runHost,
}

func init() {
	rootCmd.AddCommand(hostCmd)
}

func runHost(cmd *cobra.Command, args []string) error {
	log, err := logging.New(flagVerbose, flagJSONLogs)
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

	fmt.Printf("picket host serving %q on port %d\n", cfg.Workspace.Name, srv.Port())

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer cancel()
	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

// startHost builds the assistant registry and starts the relay host.
func startHost(cfg *config.Config, log *zap.Logger) (*host.Server, error) {
	name, path := cfg.WorkspaceIdentity()
	cfg.Workspace.Name, cfg.Workspace.Path = name, path

	runners := assistant.Registry{}
	if key := config.APIKey(); key != "" {
		runners[protocol.TargetClaude] = assistant.NewClaude(key, cfg.Assistant.Model)
	} else {
		log.Warn("ANTHROPIC_API_KEY not set, claude target unavailable")
	}
	if cfg.Assistant.CopilotCommand != "" {
		runners[protocol.TargetCopilot] = assistant.NewCommand(cfg.Assistant.CopilotCommand)
	}

	srv := host.New(host.Config{
		BasePort:      cfg.Relay.BasePort,
		PortCount:     cfg.Relay.PortCount,
		WorkspaceName: name,
		WorkspacePath: path,
	}, runners, log)

	if err := srv.Start(); err != nil {
		return nil, err
	}
	return srv, nil
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a documented default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(flagDir, config.ConfigFileName)
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.WriteDefaultConfig(path); err != nil {
			return err
		}
		fmt.Println("Wrote", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
