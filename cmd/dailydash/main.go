package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/tartampluch/go-dailydash/internal/config"
	"github.com/tartampluch/go-dailydash/internal/engine"
	"github.com/tartampluch/go-dailydash/internal/llm"
	"github.com/tartampluch/go-dailydash/internal/locale"
	"github.com/tartampluch/go-dailydash/internal/publish"
	"github.com/tartampluch/go-dailydash/internal/server"
)

// main is the application entry point.
// It delegates execution to runMain so deferred calls (like closing the log
// file) run before the process terminates.
func main() {
	os.Exit(runMain(os.Args[1:]))
}

// options holds the parsed command line.
type options struct {
	command     string
	configPath  string
	addr        string
	debug       bool
	showVersion bool
}

// parseArgs reads the global flags and the optional command name.
func parseArgs(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}

	flags := pflag.NewFlagSet(config.AppName, pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() {
		_, _ = fmt.Fprint(stderr, config.MsgUsage)
		flags.PrintDefaults()
	}
	flags.StringVarP(&opts.configPath, config.FlagConfig, config.FlagConfigShort, "", config.FlagDescConfig)
	flags.StringVar(&opts.addr, config.FlagAddr, config.DefaultServeAddr, config.FlagDescAddr)
	flags.BoolVar(&opts.debug, config.FlagDebug, false, config.FlagDescDebug)
	flags.BoolVar(&opts.showVersion, config.FlagVersion, false, config.FlagDescVersion)

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	opts.command = config.CmdGenerate
	rest := flags.Args()
	if len(rest) > 1 {
		return nil, fmt.Errorf("%s: %v", config.ErrUnknownCommand, rest)
	}
	if len(rest) == 1 {
		opts.command = rest[0]
	}
	switch opts.command {
	case config.CmdGenerate, config.CmdPrompt, config.CmdServe:
	default:
		return nil, fmt.Errorf("%s: %q", config.ErrUnknownCommand, opts.command)
	}

	opts.configPath = resolveConfigPath(opts.configPath)
	return opts, nil
}

// resolveConfigPath applies flag > environment > default.
func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(config.EnvConfigPath); env != "" {
		return env
	}
	return config.DefaultConfigPath
}

// runMain manages the application lifecycle, argument parsing, and exit codes.
func runMain(args []string) int {
	// -------------------------------------------------------------------------
	// 1. CLI Argument Parsing
	// -------------------------------------------------------------------------
	opts, err := parseArgs(args, os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return config.ExitCodeSuccess
	}
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		_, _ = fmt.Fprint(os.Stderr, config.MsgUsage)
		return config.ExitCodeError
	}

	if opts.showVersion {
		printVersion(os.Stdout)
		return config.ExitCodeSuccess
	}

	// -------------------------------------------------------------------------
	// 2. Logging Initialization
	// -------------------------------------------------------------------------
	// The prompt dry run owns stdout, so its console logs go to stderr.
	console := io.Writer(os.Stdout)
	if opts.command == config.CmdPrompt {
		console = os.Stderr
	}
	logCloser := setupLogging(opts.debug, console)
	if logCloser != nil {
		defer func() {
			_ = logCloser.Close()
		}()
	}

	// -------------------------------------------------------------------------
	// 3. Context & Signal Handling
	// -------------------------------------------------------------------------
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logStartupInfo(opts.command)

	// -------------------------------------------------------------------------
	// 4. Application Logic
	// -------------------------------------------------------------------------
	if err := run(ctx, opts); err != nil {
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyCommand, opts.command,
			config.LogKeyError, err,
		)
		if errors.Is(err, engine.ErrContentUnavailable) {
			return config.ExitCodeNoContent
		}
		return config.ExitCodeError
	}

	slog.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
	return config.ExitCodeSuccess
}

// run loads the settings and dispatches the command.
func run(ctx context.Context, opts *options) error {
	s, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if err := config.LoadEnvFile(s.BaseDir); err != nil {
		return err
	}

	switch opts.command {
	case config.CmdPrompt:
		return printPrompt(ctx, s, os.Stdout)
	case config.CmdServe:
		return server.NewArtifactServer(opts.addr, s.DataFile, s.ICSFile).Start(ctx)
	default:
		return generate(ctx, s)
	}
}

// generate wires the pipeline and runs it once.
func generate(ctx context.Context, s *config.Settings) error {
	key, err := config.ResolveAPIKey()
	if err != nil {
		return err
	}

	labels, err := locale.New(config.DefaultLanguage)
	if err != nil {
		return err
	}

	gen := &engine.Generator{
		Clock:    engine.RealClock{},
		Settings: s,
		Calendar: &engine.FeedCalendar{Fetcher: engine.NewHTTPFetcher()},
		Gateway: &engine.ContentGateway{
			Provider:    llm.NewAnthropic(s.APIBaseURL, key),
			Model:       s.Model,
			MaxTokens:   s.MaxTokens,
			MaxAttempts: config.MaxAIAttempts,
		},
		Publisher: publish.New(),
		Labels:    labels,
	}

	_, err = gen.Run(ctx)
	return err
}

// printPrompt writes both prompts for today without calling the AI service.
func printPrompt(ctx context.Context, s *config.Settings, w io.Writer) error {
	gen := &engine.Generator{
		Clock:    engine.RealClock{},
		Settings: s,
		Calendar: &engine.FeedCalendar{Fetcher: engine.NewHTTPFetcher()},
	}

	prep, err := gen.Prepare(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n\n%s\n", engine.SystemPrompt, prep.UserPrompt)
	return err
}

// printVersion outputs the build information.
func printVersion(w io.Writer) {
	_, _ = fmt.Fprintf(w, config.MsgVersionOutput,
		config.AppName,
		config.Version,
		config.Commit,
		config.BuildDate,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo(command string) {
	slog.Info(config.MsgAppStarting,
		config.LogKeyComponent, config.CompMain,
		config.LogKeyCommand, command,
		slog.Group(config.LogKeyBuild,
			slog.String(config.LogKeyApp, config.AppName),
			slog.String(config.LogKeyVersion, config.Version),
			slog.String(config.LogKeyCommit, config.Commit),
			slog.String(config.LogKeyBuilt, config.BuildDate),
			slog.String(config.LogKeyGoVer, runtime.Version()),
		),
		slog.Group(config.LogKeyEnv,
			slog.String(config.LogKeyOS, runtime.GOOS),
			slog.String(config.LogKeyArch, runtime.GOARCH),
			slog.Int(config.LogKeyPID, os.Getpid()),
		),
	)
}

// setupLogging configures the default slog logger.
func setupLogging(debugMode bool, console io.Writer) io.Closer {
	writers := []io.Writer{console}
	var logFile *os.File

	if logPath, err := getLogFilePath(); err == nil {
		// O_TRUNC resets logs on every run to prevent indefinite growth.
		f, err := os.OpenFile(logPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, config.FilePermUserRW)
		if err == nil {
			writers = append(writers, f)
			logFile = f
		} else {
			fmt.Fprintf(os.Stderr, config.MsgLogWarning, config.ErrLogFile, logPath, err)
		}
	}

	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: debugMode,
	}

	logger := slog.New(slog.NewJSONHandler(io.MultiWriter(writers...), opts))
	slog.SetDefault(logger)

	if logFile == nil {
		return nil
	}
	return logFile
}

// getLogFilePath determines the platform-specific cache directory for logs.
func getLogFilePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCacheDir, err)
	}

	appDir := filepath.Join(cacheDir, config.AppID)
	if err := os.MkdirAll(appDir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}

	return filepath.Join(appDir, config.LogFileName), nil
}
