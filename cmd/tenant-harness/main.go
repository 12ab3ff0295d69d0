package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coopdigital/tenant-harness/internal/command"
	"github.com/coopdigital/tenant-harness/internal/config"
	"github.com/coopdigital/tenant-harness/internal/driver"
	"github.com/coopdigital/tenant-harness/internal/events"
	"github.com/coopdigital/tenant-harness/internal/logger"
	"github.com/coopdigital/tenant-harness/internal/metrics"
	"github.com/coopdigital/tenant-harness/internal/probe"
	"github.com/coopdigital/tenant-harness/internal/tracing"
	harness "github.com/coopdigital/tenant-harness/pkg/harness/v1"
	harnesserrors "github.com/coopdigital/tenant-harness/pkg/harness/v1/errors"
	harnessevents "github.com/coopdigital/tenant-harness/pkg/harness/v1/events"
	harnesslog "github.com/coopdigital/tenant-harness/pkg/harness/v1/log"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const (
	ExitSuccess        = 0
	ExitFailure        = 1
	ExitUsageError     = 2
	ExitTimeout        = 124
	ExitSigBase        = 128
	ExitSigInt         = ExitSigBase + int(syscall.SIGINT)
	ExitSigTerm        = ExitSigBase + int(syscall.SIGTERM)
	DefaultLogLevel    = "info"
	DefaultLogFmt      = "text"
	DefaultEventBusLen = 256
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "validate" {
		runValidateCommand(os.Args[2:])
		return
	}
	if len(os.Args) == 2 && (os.Args[1] == "--version" || os.Args[1] == "-version") {
		printVersion()
		os.Exit(ExitSuccess)
	}
	exitCode := runExecuteCommand(os.Args[1:])
	os.Exit(exitCode)
}

func printVersion() {
	fmt.Printf("tenant-harness version %s\n", version)
	fmt.Printf("commit: %s\n", commit)
	fmt.Printf("built: %s\n", buildDate)
	fmt.Printf("go version: %s\n", runtime.Version())
	fmt.Printf("os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func runValidateCommand(args []string) {
	validateFlags := flag.NewFlagSet("validate", flag.ExitOnError)
	planPath := validateFlags.String("plan", "", "Path to the plan YAML file to validate (required)")
	logLevel := validateFlags.String("log-level", DefaultLogLevel, "Log level for validation output (debug, info, warn, error)")

	validateFlags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s validate -plan <path> [flags...]\n\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Validates the structure and schema compatibility of a harness plan.")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		validateFlags.PrintDefaults()
	}

	if err := validateFlags.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing validate flags: %v\n", err)
		os.Exit(ExitUsageError)
	}

	if *planPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -plan flag is required for validation")
		validateFlags.Usage()
		os.Exit(ExitUsageError)
	}

	log := logger.NewLogger(*logLevel, "text", os.Stderr)
	log.Infof("Validating plan: %s", *planPath)

	if _, err := config.LoadPlanFromFile(*planPath); err != nil {
		var validationErr *harnesserrors.ValidationError
		var configErr *harnesserrors.ConfigError
		if errors.As(err, &validationErr) {
			log.Errorf("Plan validation failed:\n%s", validationErr.Error())
		} else if errors.As(err, &configErr) {
			log.Errorf("Plan configuration error:\n%s", configErr.Error())
		} else {
			log.Errorf("Failed to load or validate plan: %v", err)
		}
		os.Exit(ExitFailure)
	}

	log.Infof("Plan validation successful: %s", *planPath)
	os.Exit(ExitSuccess)
}

func runExecuteCommand(args []string) int {
	execFlags := flag.NewFlagSet("tenant-harness", flag.ExitOnError)
	planPath := execFlags.String("plan", "", "Path to a plan YAML file (optional; built-in defaults apply without one)")
	databaseHost := execFlags.String("database-host", "", "Database host to probe (overrides plan and DATABASE_HOST)")
	databasePort := execFlags.Int("database-port", 0, "Database port to probe (overrides plan and DATABASE_PORT)")
	keepDB := execFlags.Bool("keepdb", false, "Pass the keep-database flag to every suite invocation")
	timeout := execFlags.Duration("timeout", 0, "Overall deadline for probe plus suite (0 = none)")
	logLevel := execFlags.String("log-level", DefaultLogLevel, "Log level (debug, info, warn, error)")
	logFormat := execFlags.String("log-format", DefaultLogFmt, "Log format (text, json)")
	metricsListen := execFlags.String("metrics-listen", "", "Address to serve Prometheus metrics on during the run (e.g. :9120; empty = disabled)")
	versionFlag := execFlags.Bool("version", false, "Print version information and exit")

	execFlags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags...]\n\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Waits for the database endpoint, then runs the test suite once per executor mode.")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		execFlags.PrintDefaults()
	}

	if err := execFlags.Parse(args); err != nil {
		return ExitUsageError
	}

	if *versionFlag {
		printVersion()
		return ExitSuccess
	}
	if *logFormat != "text" && *logFormat != "json" {
		fmt.Fprintln(os.Stderr, "Error: -log-format must be 'text' or 'json'")
		return ExitUsageError
	}

	plan, err := loadPlan(*planPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitFailure
	}
	if err := plan.ApplyEnv(os.LookupEnv); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitUsageError
	}
	// Flags win over both the plan file and the environment. Only flags the
	// user actually passed are applied.
	execFlags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "database-host":
			plan.Database.Host = *databaseHost
		case "database-port":
			plan.Database.Port = *databasePort
		case "keepdb":
			plan.Suite.KeepDB = *keepDB
		}
	})
	if plan.Database.Port < 0 || plan.Database.Port > 65535 {
		fmt.Fprintf(os.Stderr, "Error: -database-port %d is out of range\n", plan.Database.Port)
		return ExitUsageError
	}

	var logWriter io.Writer = os.Stderr
	log := logger.NewLogger(*logLevel, *logFormat, logWriter)
	log = log.With("harness_version", version)

	log.Infof("tenant-harness v%s starting...", version)
	log.Debugf("Probe target: %s:%d (strategy %s, %d attempts, %v apart)",
		plan.Database.GetHost(), plan.Database.GetPort(), plan.Probe.GetStrategy(),
		plan.Probe.GetAttempts(), plan.Probe.GetInterval())

	metricsProvider := metrics.NewPrometheusRegistryProvider()
	instruments := metrics.NewInstruments(metricsProvider.Registry())
	tracerProvider, err := tracing.NewProviderFromEnv(context.Background())
	if err != nil {
		log.Warnf("Failed to initialize tracing from environment: %v. Using NoOp tracer.", err)
		tracerProvider, _ = tracing.NewNoOpProvider()
	}
	tracer := tracerProvider.GetTracer("tenant-harness")

	eventBus := events.NewChannelEventBus(DefaultEventBusLen, log)
	defer eventBus.Close()

	ctx := context.Background()
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	if *timeout > 0 {
		runCtx, cancelRun = context.WithTimeout(runCtx, *timeout)
		defer cancelRun()
	}

	listener := events.NewMetricsEventListener(eventBus, instruments, log)
	go listener.Start(runCtx)

	if *metricsListen != "" {
		serveMetrics(*metricsListen, metricsProvider, log)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var receivedSignal os.Signal
	var sigMu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case sig := <-sigChan:
			log.Warnf("Received signal: %v. Initiating graceful shutdown...", sig)
			sigMu.Lock()
			receivedSignal = sig
			sigMu.Unlock()
			cancelRun()
		case <-runCtx.Done():
			log.Debugf("Signal handler exiting because run context is done.")
		}
	}()
	defer wg.Wait()

	report, execErr := execute(runCtx, plan, log, eventBus, tracer)
	// The run is over; release the signal goroutine so the deferred Wait
	// returns even when no signal was ever delivered.
	cancelRun()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if shutdownErr := tracerProvider.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Warnf("Error shutting down tracer provider: %v", shutdownErr)
	}

	printReportSummary(log, report, execErr)

	sigMu.Lock()
	finalSignal := receivedSignal
	sigMu.Unlock()
	return determineExitCode(execErr, finalSignal, log)
}

// loadPlan reads the plan file when one is given, otherwise starts from the
// built-in defaults.
func loadPlan(planPath string) (*config.Plan, error) {
	if planPath == "" {
		return config.Default(), nil
	}
	return config.LoadPlanFromFile(planPath)
}

// execute runs the two phases: wait for the database, then drive the suite.
func execute(ctx context.Context, plan *config.Plan, log harnesslog.Logger, bus harnessevents.Bus, tracer oteltrace.Tracer) (*harness.Report, error) {
	prober, err := buildProber(plan)
	if err != nil {
		return nil, err
	}
	waiter := probe.NewWaiter(prober, probe.WaiterConfig{
		Host:     plan.Database.GetHost(),
		Port:     plan.Database.GetPort(),
		Attempts: plan.Probe.GetAttempts(),
		Interval: plan.Probe.GetInterval(),
	}, log, bus, tracer)
	if err := waiter.Wait(ctx); err != nil {
		return nil, err
	}

	suiteDriver := driver.New(command.NewRunner(), log, bus, tracer, os.Stdout, os.Stderr)
	return suiteDriver.Run(ctx, driver.Plan{
		Command:     plan.Suite.GetCommand(),
		Args:        plan.Suite.GetArgs(),
		Target:      plan.Suite.GetTarget(),
		Executors:   plan.Suite.GetExecutors(),
		ExecutorVar: plan.Suite.GetExecutorVar(),
		KeepDB:      plan.Suite.KeepDB,
		KeepDBFlag:  plan.Suite.GetKeepDBFlag(),
		WorkDir:     plan.Suite.WorkDir,
	})
}

// buildProber selects the readiness strategy configured in the plan.
func buildProber(plan *config.Plan) (probe.Prober, error) {
	switch plan.Probe.GetStrategy() {
	case config.StrategyTCP:
		return &probe.TCPProber{
			Host:    plan.Database.GetHost(),
			Port:    plan.Database.GetPort(),
			Timeout: plan.Probe.GetTimeout(),
		}, nil
	case config.StrategyPing:
		return &probe.PingProber{
			Host:     plan.Database.GetHost(),
			Port:     plan.Database.GetPort(),
			User:     plan.Database.User,
			Password: plan.Database.Password,
			Database: plan.Database.DBName,
			SSLMode:  plan.Database.SSLMode,
			Timeout:  plan.Probe.GetTimeout(),
		}, nil
	default:
		return nil, harnesserrors.NewConfigError(
			fmt.Sprintf("unknown probe strategy '%s'", plan.Probe.Strategy), nil)
	}
}

func printReportSummary(log harnesslog.Logger, report *harness.Report, execErr error) {
	if report == nil {
		log.Warnf("Run finished but no report was generated (likely probe failure or early abort).")
		if execErr != nil {
			logExecutionErrorReason(log, execErr)
		}
		return
	}

	statusLine := fmt.Sprintf("Suite '%s' finished. Status: %s", report.Target, report.OverallStatus)
	duration := report.Duration.Truncate(time.Millisecond)
	summaryLine := fmt.Sprintf("Duration: %v. Runs: Total=%d, Completed=%d, Failed=%d, Skipped=%d",
		duration,
		report.TotalRuns, report.CompletedRuns, report.FailedRuns, report.SkippedRuns)

	if report.OverallStatus == harness.StatusFailed || execErr != nil {
		log.Errorf("%s. %s", statusLine, summaryLine)
		if report.Error != "" {
			log.Errorf("Overall Error: %s", report.Error)
		} else if execErr != nil {
			logExecutionErrorReason(log, execErr)
		}
		logFailedRuns(log, report)
	} else {
		log.Infof("%s. %s", statusLine, summaryLine)
	}
}

func logExecutionErrorReason(log harnesslog.Logger, execErr error) {
	if errors.Is(execErr, context.Canceled) {
		log.Warnf("Execution Reason: Cancelled.")
	} else if errors.Is(execErr, context.DeadlineExceeded) {
		log.Errorf("Execution Reason: Timeout.")
	} else {
		log.Errorf("Execution Error: %v", execErr)
	}
}

func logFailedRuns(log harnesslog.Logger, report *harness.Report) {
	if report.FailedRuns > 0 {
		log.Warnf("Failed Run Details:")
		for _, run := range report.Runs {
			if run.Status == harness.StatusFailed {
				log.Errorf("  - Executor '%s': %s", run.Executor, run.Error)
			}
		}
	}
}

func determineExitCode(execErr error, sig os.Signal, log harnesslog.Logger) int {
	if execErr == nil {
		log.Infof("All suite runs completed successfully.")
		return ExitSuccess
	}

	if errors.Is(execErr, context.Canceled) && sig != nil {
		switch sig {
		case syscall.SIGINT:
			log.Warnf("Run interrupted by signal: SIGINT")
			return ExitSigInt
		case syscall.SIGTERM:
			log.Warnf("Run terminated by signal: SIGTERM")
			return ExitSigTerm
		default:
			log.Warnf("Run terminated by signal: %v", sig)
			return ExitFailure
		}
	}
	if errors.Is(execErr, context.DeadlineExceeded) {
		log.Errorf("Run timed out.")
		return ExitTimeout
	}

	// A failing suite invocation propagates the child's own exit code;
	// probe exhaustion and everything else map to 1.
	return harnesserrors.ExitCode(execErr)
}

// serveMetrics exposes the registry over HTTP for the duration of the run.
func serveMetrics(addr string, provider *metrics.PrometheusRegistryProvider, log harnesslog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(provider.Registry(), promhttp.HandlerOpts{}))
	go func() {
		log.Infof("Serving Prometheus metrics on %s/metrics", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Warnf("Metrics endpoint stopped: %v", err)
		}
	}()
}
