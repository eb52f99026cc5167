package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sflowg/dingtalk/plugins/dingtalk"
	"github.com/sflowg/dingtalk/runtime"
)

var streamOnce bool

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Listen to the DingTalk Stream gateway and print events",
	Long: `Stream activates the trigger with the dingtalkApi credentials and writes
every pushed event to stdout as one JSON line. With --once it exits after the
first event.`,
	Args: cobra.NoArgs,
	RunE: runStream,
}

func init() {
	streamCmd.Flags().BoolVar(&streamOnce, "once", false, "Exit after the first event")
}

func runStream(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	resp, err := startTrigger(ctx, a.container, newLineEmitter(cmd.OutOrStdout()))
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Close(context.Background()); err != nil {
			a.logger.Error("Closing stream failed", "error", err)
		}
	}()

	if streamOnce {
		if err := resp.Manual(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	}

	<-ctx.Done()
	a.logger.Info("Shutting down")
	return nil
}

func startTrigger(ctx context.Context, container *runtime.Container, emit func([]runtime.Item) error) (*runtime.TriggerResponse, error) {
	trigger, ok := container.Trigger(dingtalk.TriggerName)
	if !ok {
		return nil, fmt.Errorf("trigger %q is not registered", dingtalk.TriggerName)
	}

	desc := trigger.Description()
	exec := runtime.NewExecution(ctx, container, &desc,
		map[string]any{"event": dingtalk.EventStreamPush}, nil,
		runtime.WithEmitter(emit))
	return trigger.Trigger(exec)
}

// newLineEmitter writes each emitted item as a JSON line.
func newLineEmitter(w io.Writer) func([]runtime.Item) error {
	var mu sync.Mutex
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return func(items []runtime.Item) error {
		mu.Lock()
		defer mu.Unlock()
		for _, item := range items {
			if err := enc.Encode(item.JSON); err != nil {
				return err
			}
		}
		return nil
	}
}
