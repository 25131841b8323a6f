// limits is the Orchestrator: it wires the Filter Set, Child Spawner,
// Fingerprinter, Environment Prober, Search Engine, and Script Emitter
// together, runs the environment probe, then searches every resource
// limit in registry order, printing operator-facing progress and hints.
//
// Grounded on the teacher's cmd/root.go cobra wiring, generalized from a
// multi-command OCI runtime CLI down to the single-command shape this
// tool needs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	ferrors "limitfuzz/errors"
	"limitfuzz/filter"
	flog "limitfuzz/logging"
	"limitfuzz/probe"
	"limitfuzz/rlimit"
	"limitfuzz/script"
	"limitfuzz/search"
	"limitfuzz/spawn"
)

// mallocCheckEnv is injected into every spawned child's environment to
// elicit glibc heap-corruption diagnostics (spec.md §4.E, §6).
const mallocCheckEnv = "MALLOC_CHECK_=2"

var (
	flagTimeout    float64
	flagFilterFile string
	flagScriptFile string
	flagStdinFile  string
	flagDebug      bool
	flagLogFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "limits [-t TIMEOUT] [-b FILTER_FILE] [-o SCRIPT_FILE] [-i STDIN_FILE] [--] COMMAND [ARGS...]",
	Short: "Differential fuzzer for POSIX resource limits",
	Long: `limits searches, one resource limit at a time, for values of that
limit which change a command's observable behavior: its exit status,
termination signal, or the content of its stdout/stderr.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	// This hidden subcommand is intercepted in main() before cobra ever
	// sees os.Args, so it is never registered as a cobra flag/command.
	rootCmd.Flags().Float64VarP(&flagTimeout, "timeout", "t", 1, "per-spawn wall-clock timeout, in seconds")
	rootCmd.Flags().StringVarP(&flagFilterFile, "filter-file", "b", "", "path to a file of regex output filters, one per line")
	rootCmd.Flags().StringVarP(&flagScriptFile, "script", "o", "", "path to write a replay script of newly discovered behaviors")
	rootCmd.Flags().StringVarP(&flagStdinFile, "stdin", "i", "", "path to a file used as the command's stdin on every spawn")
	rootCmd.Flags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.Flags().StringVar(&flagLogFormat, "log-format", "text", "log output format (text or json)")
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == spawn.ReexecFlag {
		if err := spawn.RunInit(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "limits: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "limits: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	setupLogging()

	dashAt := cmd.ArgsLenAtDash()
	var argv []string
	if dashAt >= 0 {
		argv = args[dashAt:]
	} else {
		argv = args
	}
	if len(argv) == 0 {
		return ferrors.ErrNoCommand
	}

	var filters *filter.Set
	if flagFilterFile != "" {
		f, err := filter.Load(flagFilterFile)
		if err != nil {
			return err
		}
		filters = f
	} else {
		filters = filter.Empty()
	}

	if flagStdinFile == "" {
		flagStdinFile = os.DevNull
	}
	stdin, err := os.Open(flagStdinFile)
	if err != nil {
		return ferrors.WrapWithDetail(err, ferrors.ErrConfiguration, "open stdin file", flagStdinFile)
	}
	defer stdin.Close()

	var emitter *script.Emitter
	if flagScriptFile != "" {
		e, err := script.NewEmitter(flagScriptFile)
		if err != nil {
			return err
		}
		emitter = e
		defer emitter.Close()
	}

	env := append(os.Environ(), mallocCheckEnv)
	timeout := time.Duration(flagTimeout * float64(time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	probeResult, err := probe.Probe(ctx, argv, env, stdin, timeout, filters)
	if err != nil {
		return err
	}
	if len(probeResult.Influential) > 0 {
		flog.Info("environment variables influence output", "count", len(probeResult.Influential), "variables", probeResult.Influential)
	}

	set := search.NewFingerprintSet()
	engine := search.NewEngine(search.Config{
		Argv:      argv,
		Env:       env,
		Timeout:   timeout,
		Filters:   filters,
		Emitter:   emitter,
		Stdin:     stdin,
		StdinPath: flagStdinFile,
	}, set)

	flog.Info("starting search", "limits", len(rlimit.Searchable()))
	if err := engine.Run(ctx); err != nil {
		return err
	}

	if flagScriptFile == "" && set.Len() > 0 {
		printHint("%d distinct behaviors found; pass -o FILE to save a replay script\n", set.Len())
	}
	return nil
}

func setupLogging() {
	level := flog.ParseLevel("info")
	if flagDebug {
		level = flog.ParseLevel("debug")
	}
	flog.SetDefault(flog.NewLogger(flog.Config{
		Level:  level,
		Format: flagLogFormat,
		Output: os.Stderr,
	}))
}

// printHint writes an operator-facing message to stderr, emphasized when
// stderr is attached to a terminal.
func printHint(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if term.IsTerminal(int(os.Stderr.Fd())) {
		fmt.Fprintf(os.Stderr, "\033[1m%s\033[0m", msg)
		return
	}
	fmt.Fprint(os.Stderr, msg)
}
