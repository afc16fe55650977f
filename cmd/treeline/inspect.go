package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/treeline-dev/treeline/pkg/devtools"
	"github.com/treeline-dev/treeline/pkg/state"
)

func inspectCmd() *cobra.Command {
	var (
		address string
		demo    bool
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Serve the development inspector",
		Long: `Inspect starts the HTTP inspector: a JSON view of the path store,
Prometheus metrics, and a WebSocket stream of live mutations. With
--demo it also runs a demo engine that mutates itself so the stream
has something to show.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := state.New()
			defer engine.Close()

			srv := devtools.New(engine, &devtools.Config{Address: address})
			engine.AddObserver(srv.Observer())

			stop := make(chan struct{})
			if demo {
				go runDemo(engine, stop)
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				close(stop)
				return err
			case <-sig:
				close(stop)
				slog.Info("shutting down inspector")
				return srv.Shutdown(context.Background())
			}
		},
	}

	cmd.Flags().StringVarP(&address, "address", "a", "127.0.0.1:6390", "Inspector listen address")
	cmd.Flags().BoolVar(&demo, "demo", false, "Run a self-mutating demo engine")

	return cmd
}

// runDemo mutates a small clock-and-counter tree so the live stream and
// store views have content.
func runDemo(e *state.Engine, stop <-chan struct{}) {
	e.Observe("demo.summary", func() any {
		tick := e.Get("demo.tick", 0)
		return fmt.Sprintf("tick %v", tick)
	}, func(v any) {
		e.Set("demo.summary", v)
	})

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	n := 0
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			n++
			e.Batch(func() {
				e.Set("demo.tick", n)
				e.Set("demo.time", now.UTC().Format(time.RFC3339))
			})
		}
	}
}
