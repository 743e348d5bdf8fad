package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/clipforge/clipforge/internal/clipboard"
	"github.com/clipforge/clipforge/internal/config"
	"github.com/clipforge/clipforge/internal/engine"
	"github.com/clipforge/clipforge/internal/settings"
	"github.com/clipforge/clipforge/internal/slm"
	"github.com/clipforge/clipforge/internal/telemetry"
	"github.com/clipforge/clipforge/internal/tools"
)

var (
	// Version is set via -ldflags at build time.
	Version = "dev"
	// Commit is set via -ldflags at build time.
	Commit = "unknown"
	// BuildTime is set via -ldflags at build time.
	BuildTime = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "run":
		runCmd(os.Args[2:])
	case "set-key":
		setKeyCmd(os.Args[2:])
	case "events":
		eventsCmd(os.Args[2:])
	case "version":
		fmt.Printf("clipforge %s (%s) %s\n", Version, Commit, BuildTime)
	default:
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `clipforge

Usage:
  clipforge run [flags]
  clipforge set-key [flags]
  clipforge events [flags]
  clipforge version

Commands:
  run       Transform the current clipboard content with AI.
  set-key   Store the API key for the configured provider.
  events    Print recent completion telemetry events.
  version   Print build information.

`)
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.EffectiveLogLevel() {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.EffectiveLogFormat() == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func loadConfig(path string) *config.Config {
	cfg, err := config.Load(filepath.Clean(path))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func runCmd(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", config.DefaultConfigPath(), "Config file path")
	strategy := fs.String("strategy", "cloud", "Completion strategy: local|cloud|agent")
	instructions := fs.String("instructions", "", "Transformation instructions (prompted interactively when omitted)")
	timeout := fs.Duration("timeout", 2*time.Minute, "Overall request timeout")
	_ = fs.Parse(args)

	cfg := loadConfig(*cfgPath)
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	instr := strings.TrimSpace(*instructions)
	if instr == "" {
		instr = promptInstructions()
	}
	if instr == "" {
		fmt.Fprintln(os.Stderr, "no instructions given")
		os.Exit(2)
	}

	switch *strategy {
	case "local", "cloud", "agent":
	default:
		fmt.Fprintf(os.Stderr, "unknown strategy %q\n", *strategy)
		os.Exit(2)
	}

	secrets := settings.NewSecretsStore(cfg.SecretsPath())
	apiKey := ""
	if key, ok, err := secrets.APIKey(cfg.EffectiveProvider()); err != nil {
		logger.Warn("secrets store unavailable", "error", err)
	} else if ok {
		apiKey = key
	}

	store, err := telemetry.Open(cfg.TelemetryPath(), logger)
	var sink telemetry.Sink = telemetry.NopSink{}
	if err != nil {
		logger.Warn("telemetry store unavailable", "error", err)
	} else {
		sink = store
		defer store.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// Graceful shutdown on SIGINT/SIGTERM.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()

	snap := clipboard.NewSnapshot()
	if !snap.Reset(clipboard.NewSystemSource()) {
		fmt.Fprintln(os.Stderr, "clipboard is empty")
		os.Exit(1)
	}
	logger.Info("clipboard captured", "formats", snap.FormatKinds())

	var runner slm.Runner
	if *strategy == "local" {
		r := slm.NewSimulatedRunner(logger)
		if err := r.Initialize(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "local model warm-up failed: %v\n", err)
			os.Exit(1)
		}
		defer r.Close()
		runner = r
	}

	eng, err := engine.New(engine.Options{
		Logger:          logger,
		Provider:        cfg.EffectiveProvider(),
		APIKey:          apiKey,
		BaseURL:         cfg.BaseURL,
		Model:           cfg.EffectiveModel(),
		Temperature:     cfg.EffectiveTemperature(),
		MaxOutputTokens: cfg.EffectiveMaxOutputTokens(),
		MaxToolRounds:   cfg.EffectiveMaxToolRounds(),
		Runner:          runner,
		Snapshot:        snap,
		Files:           tools.NewTempFileArea(cfg.EffectiveTempDir()),
		Sink:            sink,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init engine: %v\n", err)
		os.Exit(1)
	}
	if *strategy != "local" && !eng.Enabled() {
		fmt.Fprintf(os.Stderr, "no API key stored for provider %q; run: clipforge set-key\n", cfg.EffectiveProvider())
		os.Exit(1)
	}

	switch *strategy {
	case "local":
		runLocal(ctx, eng, snap, instr)
	case "cloud":
		runCloud(ctx, eng, snap, instr)
	case "agent":
		runAgent(ctx, eng, snap, instr)
	}
}

func runLocal(ctx context.Context, eng *engine.Engine, snap *clipboard.Snapshot, instr string) {
	text, ok := snap.Text()
	if !ok {
		fmt.Fprintln(os.Stderr, "clipboard has no text to transform")
		os.Exit(1)
	}
	sess, err := eng.RunLocalStreaming(ctx, instr, text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "streaming failed: %v\n", err)
		os.Exit(1)
	}
	for update := range sess.Updates() {
		if update != "" {
			fmt.Fprintf(os.Stderr, "\r%d chars...", len(update))
		}
	}
	final := sess.Wait()
	fmt.Fprint(os.Stderr, "\r")
	finishWithText(snap, final)
}

func runCloud(ctx context.Context, eng *engine.Engine, snap *clipboard.Snapshot, instr string) {
	text, ok := snap.Text()
	if !ok {
		fmt.Fprintln(os.Stderr, "clipboard has no text to transform")
		os.Exit(1)
	}
	res := eng.RunCloudCompletion(ctx, instr, text)
	if !res.OK() {
		fmt.Fprintf(os.Stderr, "completion failed (status %d)\n", res.Status)
		os.Exit(1)
	}
	if res.Truncated {
		fmt.Fprintln(os.Stderr, "warning: output was truncated by the token limit")
	}
	finishWithText(snap, res.Text)
}

func runAgent(ctx context.Context, eng *engine.Engine, snap *clipboard.Snapshot, instr string) {
	answer := eng.RunAgentCompletion(ctx, instr)
	fmt.Println(answer)
	if err := clipboard.WriteSystem(snap); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write clipboard: %v\n", err)
		os.Exit(1)
	}
}

func finishWithText(snap *clipboard.Snapshot, text string) {
	snap.SetText(text)
	if err := clipboard.WriteSystem(snap); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write clipboard: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(text)
}

func promptInstructions() string {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		// Piped input: treat the whole of stdin as the instructions.
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(b))
	}
	fmt.Fprint(os.Stderr, "Instructions: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return ""
	}
	return strings.TrimSpace(line)
}

func setKeyCmd(args []string) {
	fs := flag.NewFlagSet("set-key", flag.ExitOnError)
	cfgPath := fs.String("config", config.DefaultConfigPath(), "Config file path")
	provider := fs.String("provider", "", "Provider to store the key for (default: configured provider)")
	clear := fs.Bool("clear", false, "Remove the stored key instead of setting one")
	_ = fs.Parse(args)

	cfg := loadConfig(*cfgPath)
	p := strings.TrimSpace(*provider)
	if p == "" {
		p = cfg.EffectiveProvider()
	}

	secrets := settings.NewSecretsStore(cfg.SecretsPath())
	if *clear {
		if err := secrets.ClearAPIKey(p); err != nil {
			fmt.Fprintf(os.Stderr, "failed to clear key: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Key cleared for %s\n", p)
		return
	}

	key := readSecret(fmt.Sprintf("API key for %s: ", p))
	if key == "" {
		fmt.Fprintln(os.Stderr, "no key given")
		os.Exit(2)
	}
	if err := secrets.SetAPIKey(p, key); err != nil {
		fmt.Fprintf(os.Stderr, "failed to store key: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Key stored for %s\n", p)
}

// readSecret reads without echo on a terminal and falls back to a plain
// line read when stdin is piped.
func readSecret(prompt string) string {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(b))
	}
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimSpace(line)
}

func eventsCmd(args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	cfgPath := fs.String("config", config.DefaultConfigPath(), "Config file path")
	limit := fs.Int("limit", 20, "Maximum number of events to print")
	_ = fs.Parse(args)

	cfg := loadConfig(*cfgPath)
	store, err := telemetry.Open(cfg.TelemetryPath(), newLogger(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open telemetry store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	events, err := store.Recent(*limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read events: %v\n", err)
		os.Exit(1)
	}
	if len(events) == 0 {
		fmt.Println("no events recorded")
		return
	}
	for _, e := range events {
		ts := time.UnixMilli(e.CreatedAtUnixMs).Format(time.RFC3339)
		switch e.Kind {
		case telemetry.KindError:
			fmt.Printf("%s  %-10s %s  %s\n", ts, e.Kind, e.Model, e.Error)
		default:
			fmt.Printf("%s  %-10s %s  prompt=%d completion=%d\n", ts, e.Kind, e.Model, e.PromptTokens, e.CompletionTokens)
		}
	}
}
