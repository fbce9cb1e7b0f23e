package cmd

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/driftwatch/driftwatch/internal/metrics"
	"github.com/driftwatch/driftwatch/internal/pipeline"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run evaluation cycles continuously",
	Long: `Run evaluation cycles at the configured interval until interrupted.

The config file is hot-reloaded on change. When http.addr is set, a status
server exposes /metrics (Prometheus), /healthz, and /api/alerts.

Examples:
  # Watch with a 5 minute cycle interval (config default)
  driftwatch watch --config driftwatch.yaml

  # Watch with the status server
  driftwatch watch --config driftwatch.yaml   # http.addr: ":8080" in config`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reload := make(chan struct{}, 1)
	if configPath != "" {
		watcher, err := watchConfig(configPath, reload)
		if err != nil {
			log.Printf("config watch disabled: %v", err)
		} else {
			defer watcher.Close()
		}
	}

	for {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		runner, eng, cleanup, err := buildRunner(ctx, cfg)
		if err != nil {
			return err
		}

		if err := runner.RestoreState(ctx); err != nil {
			cleanup()
			return err
		}

		var statusServer *metrics.Server
		if cfg.HTTP.Addr != "" {
			statusServer = metrics.NewServer(cfg.HTTP.Addr, eng)
			go func() {
				if err := statusServer.Start(); err != nil {
					log.Printf("%v", err)
				}
			}()
		}

		again := runCycles(ctx, runner, cfg.Cycle.Interval, reload)

		if statusServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			statusServer.Shutdown(shutdownCtx)
			cancel()
		}
		cleanup()

		if !again {
			log.Printf("watch stopped")
			return nil
		}
		log.Printf("config changed, reloading")
	}
}

// runCycles runs cycles on the interval until ctx is cancelled (returns
// false) or a reload is requested (returns true).
func runCycles(ctx context.Context, runner *pipeline.Runner, interval time.Duration, reload <-chan struct{}) bool {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runOnce := func() {
		result, err := runner.RunCycle(ctx)
		switch {
		case errors.Is(err, context.Canceled):
		case err != nil:
			log.Printf("cycle failed: %v", err)
		default:
			log.Printf("cycle ok in %s: %d keys, %d skipped, %d groups, %d events",
				result.Duration, result.KeysEvaluated, result.KeysSkipped,
				result.GroupsScanned, len(result.Events))
		}
	}

	runOnce()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-reload:
			return true
		case <-ticker.C:
			runOnce()
		}
	}
}

// watchConfig signals reload when the config file changes. Editors often
// replace the file, so the path is re-added after remove/rename events.
func watchConfig(path string, reload chan<- struct{}) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					// Re-add after atomic replace; tolerate a brief gap.
					time.Sleep(100 * time.Millisecond)
					watcher.Add(path)
				}
				select {
				case reload <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("config watcher: %v", err)
			}
		}
	}()
	return watcher, nil
}
