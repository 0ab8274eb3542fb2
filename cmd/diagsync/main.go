package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"diagsync/internal/config"
	"diagsync/internal/prof"
	"diagsync/internal/version"
)

var (
	cfgFile string
	v       = config.New()
)

var rootCmd = &cobra.Command{
	Use:   "diagsync",
	Short: "Reconcile build and live diagnostics into a persistent store",
	Long: `diagsync keeps per-analyzer diagnostic cells for the projects and documents
of a workspace and reconciles external build reports with live results.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ReadFile(v, cfgFile); err != nil {
			return err
		}
		cleanup, err := setupTracing(cmd, v)
		if err != nil {
			return err
		}
		traceCleanup = cleanup
		profSession, err = prof.Start(prof.Options{
			CPU:   flagString(cmd, "cpuprofile"),
			Mem:   flagString(cmd, "memprofile"),
			Trace: flagString(cmd, "runtime-trace"),
		})
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		release(cmd)
	},
}

// Opened by PersistentPreRunE, released by PersistentPostRun.
var (
	traceCleanup func()
	profSession  *prof.Session
)

func init() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(liveCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(versionCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default .diagsync.yaml in the working or home directory)")
	pf.String("manifest", "", "workspace manifest (default: diagsync.toml found from the working directory up)")
	pf.String("store", config.BackendDisk, "cell store backend (memory|disk|sqlite)")
	pf.String("store-path", "", "store directory or database file (default: user cache directory)")
	pf.Int("jobs", 1, "max projects reconciled in parallel")
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.Bool("timings", false, "show timing information")
	pf.StringSlice("open", nil, "treat project/document as open in the editor (repeatable)")

	pf.String("trace", "", "trace output file (\"-\" for stderr)")
	pf.String("trace-level", "off", "trace level (off|error|event|artifact|debug)")
	pf.String("trace-mode", "stream", "trace storage mode (stream|ring|both)")
	pf.Int("trace-ring-size", 4096, "ring buffer size for ring mode")
	pf.Duration("trace-heartbeat", 0, "emit heartbeat events at this interval (0 = off)")

	pf.String("cpuprofile", "", "write a CPU profile to this file")
	pf.String("memprofile", "", "write a heap profile to this file on exit")
	pf.String("runtime-trace", "", "write a Go runtime trace to this file")

	bindFlag(v, "manifest", "manifest")
	bindFlag(v, "store.backend", "store")
	bindFlag(v, "store.path", "store-path")
	bindFlag(v, "jobs", "jobs")
	bindFlag(v, "trace.output", "trace")
	bindFlag(v, "trace.level", "trace-level")
	bindFlag(v, "trace.mode", "trace-mode")
	bindFlag(v, "trace.ring_size", "trace-ring-size")
	bindFlag(v, "trace.heartbeat", "trace-heartbeat")
}

func bindFlag(v *viper.Viper, key, flag string) {
	if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag, err))
	}
}

// release stops profiling and flushes the tracer. Cobra skips
// PersistentPostRun when a command fails, so main calls it as well.
func release(cmd *cobra.Command) {
	if err := profSession.Stop(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "prof: %v\n", err)
	}
	profSession = nil
	if traceCleanup != nil {
		traceCleanup()
		traceCleanup = nil
	}
}

// flagString reads a root persistent flag that is known to exist.
func flagString(cmd *cobra.Command, name string) string {
	s, _ := cmd.Root().PersistentFlags().GetString(name)
	return s
}

func main() {
	err := rootCmd.Execute()
	release(rootCmd)
	if err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// useColor resolves the --color flag against the command's output.
func useColor(cmd *cobra.Command) (bool, error) {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, fmt.Errorf("failed to get color flag: %w", err)
	}
	switch mode {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "auto":
		f, ok := cmd.OutOrStdout().(*os.File)
		return ok && isTerminal(f), nil
	default:
		return false, fmt.Errorf("invalid color mode %q (expected: auto|on|off)", mode)
	}
}
