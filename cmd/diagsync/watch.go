package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"diagsync/internal/buildreport"
	"diagsync/internal/notify"
)

var watchCmd = &cobra.Command{
	Use:   "watch [flags] <dir>",
	Short: "Reconcile every build report written to a directory",
	Long: `Watch a directory for build reports and reconcile each one as it is
written. Runs until interrupted. With --metrics-addr the controller's
Prometheus metrics are served on /metrics.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Duration("debounce", 100*time.Millisecond, "quiet period before a changed report is read")
	watchCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9464)")
	watchCmd.Flags().Bool("events", false, "print every change notification")
}

func runWatch(cmd *cobra.Command, args []string) error {
	debounce, err := cmd.Flags().GetDuration("debounce")
	if err != nil {
		return fmt.Errorf("failed to get debounce flag: %w", err)
	}
	metricsAddr, err := cmd.Flags().GetString("metrics-addr")
	if err != nil {
		return fmt.Errorf("failed to get metrics-addr flag: %w", err)
	}
	showEvents, err := cmd.Flags().GetBool("events")
	if err != nil {
		return fmt.Errorf("failed to get events flag: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	changes := notify.NewChannel(64)
	var printer sync.WaitGroup
	printer.Add(1)
	go func() {
		defer printer.Done()
		for ev := range changes.Events() {
			if showEvents {
				printEvent(out, ev)
			}
		}
	}()
	defer func() {
		changes.Close()
		printer.Wait()
	}()

	a, err := openApp(cmd, changes)
	if err != nil {
		return err
	}
	defer a.close(cmd)

	if metricsAddr != "" {
		srv := &http.Server{
			Addr:              metricsAddr,
			Handler:           metricsHandler(a),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fmt.Fprintf(cmd.ErrOrStderr(), "metrics: %v\n", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	w, err := buildreport.NewWatcher(args[0], debounce)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()
	fmt.Fprintf(out, "watching %s\n", w.Dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "watch: %v\n", err)
		case path, ok := <-w.Reports:
			if !ok {
				return nil
			}
			// Failed reports are logged and the next one is awaited.
			if err := reconcileReport(ctx, a, out, path); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
			}
		}
	}
}

func reconcileReport(ctx context.Context, a *app, out io.Writer, path string) error {
	rep, err := buildreport.ReadFile(path)
	if err != nil {
		return err
	}
	if rep.Workspace != "" && rep.Workspace != a.ws.Name() {
		return fmt.Errorf("report is for workspace %q, manifest declares %q", rep.Workspace, a.ws.Name())
	}
	res, err := a.ctrl.ApplyBuild(ctx, rep.Event())
	if err != nil {
		return err
	}
	a.events.Reset()
	printResult(out, path, res)
	return nil
}

func metricsHandler(a *app) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.promReg, promhttp.HandlerOpts{}))
	return mux
}
