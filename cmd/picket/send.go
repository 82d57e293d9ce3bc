package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/standardbeagle/picket/internal/config"
	"github.com/standardbeagle/picket/internal/logging"
	"github.com/standardbeagle/picket/internal/protocol"
	"github.com/standardbeagle/picket/internal/relay"
)

var sendCmd = &cobra.Command{
	Use:   "send [prompt...]",
	Short: "Send a prompt to a running host from the command line",
	Long: `Connect to the relay candidate ports and send a prompt.

With one host running the prompt goes there; with several, --port picks
the target. Useful for testing a host without a browser.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

var (
	sendPort    int
	sendTarget  string
	sendTimeout time.Duration
)

func init() {
	sendCmd.Flags().IntVar(&sendPort, "port", 0, "Target relay port (required when several hosts run)")
	sendCmd.Flags().StringVar(&sendTarget, "target", string(protocol.TargetClaude), "Assistant target (copilot, claude)")
	sendCmd.Flags().DurationVar(&sendTimeout, "timeout", 30*time.Second, "How long to wait for the result")
	rootCmd.AddCommand(sendCmd)
}

// sendEvents collects the asynchronous result and connection signal.
type sendEvents struct {
	connected chan struct{}
	results   chan sendResult
	once      sync.Once
}

type sendResult struct {
	ok      bool
	message string
}

func (e *sendEvents) EndpointsChanged(eps []relay.Endpoint) {
	if len(eps) > 0 {
		e.once.Do(func() { close(e.connected) })
	}
}

func (e *sendEvents) Result(ok bool, message string) {
	e.results <- sendResult{ok: ok, message: message}
}

func runSend(cmd *cobra.Command, args []string) error {
	target := protocol.Target(sendTarget)
	if !target.Valid() {
		return fmt.Errorf("unknown target %q (use copilot or claude)", sendTarget)
	}

	log, err := logging.New(flagVerbose, flagJSONLogs)
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := config.LoadConfig(flagDir)
	if err != nil {
		return err
	}

	events := &sendEvents{
		connected: make(chan struct{}),
		results:   make(chan sendResult, 1),
	}
	client := relay.NewClient(relay.Config{
		BasePort:      cfg.Relay.BasePort,
		PortCount:     cfg.Relay.PortCount,
		RetryInterval: cfg.Relay.RetryInterval(),
	}, events, log)

	client.Start()
	defer client.Stop()

	select {
	case <-events.connected:
	case <-time.After(5 * time.Second):
		return relay.ErrNotConnected
	}

	env := protocol.NewPrompt(strings.Join(args, " "), target, nil)
	if err := client.Send(env, sendPort); err != nil {
		if errors.Is(err, relay.ErrAmbiguousTarget) {
			for _, ep := range client.Endpoints() {
				fmt.Printf("  port %d  %s\n", ep.Port, ep.WorkspaceLabel)
			}
		}
		return err
	}

	select {
	case res := <-events.results:
		if !res.ok {
			return errors.New(res.message)
		}
		fmt.Println(res.message)
		return nil
	case <-time.After(sendTimeout):
		return errors.New("timed out waiting for result")
	}
}
