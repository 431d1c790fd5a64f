// Package main provides the CLI entrypoint for sprint.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/sprint/internal/config"
	"github.com/verte-zerg/sprint/internal/model"
	"github.com/verte-zerg/sprint/internal/passage"
	"github.com/verte-zerg/sprint/internal/picker"
	"github.com/verte-zerg/sprint/internal/session"
	"github.com/verte-zerg/sprint/internal/stats"
	"github.com/verte-zerg/sprint/internal/statsui"
	"github.com/verte-zerg/sprint/internal/store"
	"github.com/verte-zerg/sprint/internal/tui"
)

const (
	defaultMode         = "timed"
	defaultDifficulty   = "medium"
	defaultDuration     = 60
	defaultPBWarmupMs   = 1000
	defaultTrendWindow  = 5
	terminalWidthBackup = 80
)

var (
	practiceMode       string
	practiceDifficulty string
	practiceDuration   int
	practicePassages   string
	practicePBWarmup   int

	historyMode       string
	historyDifficulty string
	historySince      string
	historyLast       int
	historyWindow     int
	historyPlain      bool

	bestReset bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sprint",
		Short:         "Terminal typing-speed test",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.Flags().StringVar(&practiceMode, "mode", defaultMode, "session mode (timed or passage)")
	rootCmd.Flags().StringVar(&practiceDifficulty, "difficulty", defaultDifficulty, "passage difficulty (easy, medium, hard)")
	rootCmd.Flags().IntVar(&practiceDuration, "duration", defaultDuration, "timed session length in seconds")
	rootCmd.Flags().StringVar(&practicePassages, "passages", "", "custom passages (.toml pools or one passage per line)")
	rootCmd.Flags().IntVar(&practicePBWarmup, "pb-warmup", defaultPBWarmupMs, "milliseconds of typing before a score can become the best")

	rootCmd.AddCommand(newBestCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newHistoryCmd())

	return rootCmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyConfig(cmd, fileCfg.Session)

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	src, err := buildSource(cfg, picker.New())
	if err != nil {
		return err
	}

	status := &tui.StatusLog{}
	opts := []session.Option{
		session.WithLogger(status.Logf),
		session.WithWarmup(time.Duration(practicePBWarmup) * time.Millisecond),
	}

	var best session.BestStore
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		logErrf("failed to open db, best score will not be kept: %v\n", err)
		mem := &session.MemoryStore{}
		best = mem
		opts = append(opts, session.WithRecorder(mem))
	} else {
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logErrf("failed to close db: %v\n", cerr)
			}
		}()
		best = st
		opts = append(opts, session.WithRecorder(st))
	}

	ctx := context.Background()
	engine := session.New(src, best, opts...)
	if err := engine.Start(ctx, cfg.Mode, cfg.Difficulty, cfg.DurationSec); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	m := tui.NewModel(ctx, engine, cfg, status)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func buildConfig() (model.Config, error) {
	mode, err := model.ParseMode(practiceMode)
	if err != nil {
		return model.Config{}, fmt.Errorf("invalid --mode: %w", err)
	}
	difficulty, err := model.ParseDifficulty(practiceDifficulty)
	if err != nil {
		return model.Config{}, fmt.Errorf("invalid --difficulty: %w", err)
	}
	cfg := model.Config{
		Mode:         mode,
		Difficulty:   difficulty,
		DurationSec:  practiceDuration,
		PassagesPath: config.ResolvePath(practicePassages),
	}
	if err := validateConfig(cfg); err != nil {
		return model.Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg model.Config) error {
	if cfg.DurationSec <= 0 {
		return fmt.Errorf("--duration must be > 0")
	}
	if practicePBWarmup < 0 {
		return fmt.Errorf("--pb-warmup must be >= 0")
	}
	return nil
}

// buildSource returns the built-in pools unless a custom passages file is set.
func buildSource(cfg model.Config, pick *picker.Picker) (session.PassageSource, error) {
	if cfg.PassagesPath == "" {
		return passage.Builtin(pick), nil
	}
	pools, err := passage.LoadFile(cfg.PassagesPath, pick)
	if err != nil {
		return nil, fmt.Errorf("failed to load passages: %w", err)
	}
	return pools, nil
}

func newBestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "best",
		Short: "Show or reset the stored best WPM",
		Args:  cobra.NoArgs,
		RunE:  runBestCmd,
	}
	cmd.Flags().BoolVar(&bestReset, "reset", false, "clear the stored best WPM")
	return cmd
}

func runBestCmd(cmd *cobra.Command, _ []string) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	return best(cmd.Context(), cmd.OutOrStdout(), st, bestReset)
}

func best(ctx context.Context, w io.Writer, st *store.Store, reset bool) error {
	if reset {
		if err := st.ResetBest(ctx); err != nil {
			return fmt.Errorf("failed to reset best wpm: %w", err)
		}
		_, err := fmt.Fprintln(w, "Best WPM reset.")
		return err
	}
	wpm, err := st.BestWPM(ctx)
	if err != nil {
		return fmt.Errorf("failed to load best wpm: %w", err)
	}
	_, err = fmt.Fprintf(w, "Best WPM: %d\n", wpm)
	return err
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := ensureConfigFile(path); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func ensureConfigFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show finished sessions",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historyMode, "mode", "", "mode filter (timed or passage)")
	cmd.Flags().StringVar(&historyDifficulty, "difficulty", "", "difficulty filter")
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&historyWindow, "window", defaultTrendWindow, "moving average window for the WPM trend")
	cmd.Flags().BoolVar(&historyPlain, "plain", false, "print plain text instead of the interactive view")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildHistoryConfig(historyMode, historyDifficulty, historySince, historyLast, historyWindow)
	if err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if historyPlain || !term.IsTerminal(int(os.Stdout.Fd())) {
		return printHistory(cmd.Context(), cmd.OutOrStdout(), st, cfg, terminalWidth())
	}

	m := statsui.NewModel(st, cfg)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run history TUI: %w", err)
	}
	return nil
}

func buildHistoryConfig(mode, difficulty, since string, last, window int) (model.HistoryConfig, error) {
	cfg := model.HistoryConfig{Last: last, Window: window}
	if mode != "" {
		m, err := model.ParseMode(mode)
		if err != nil {
			return cfg, fmt.Errorf("invalid --mode: %w", err)
		}
		cfg.Mode = &m
	}
	if difficulty != "" {
		d, err := model.ParseDifficulty(difficulty)
		if err != nil {
			return cfg, fmt.Errorf("invalid --difficulty: %w", err)
		}
		cfg.Difficulty = &d
	}
	if since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return cfg, fmt.Errorf("invalid --since value: %w", err)
		}
		cfg.Since = &parsed
	}
	if last < 0 {
		return cfg, fmt.Errorf("--last must be >= 0")
	}
	if window < 1 {
		return cfg, fmt.Errorf("--window must be >= 1")
	}
	return cfg, nil
}

func printHistory(ctx context.Context, w io.Writer, st *store.Store, cfg model.HistoryConfig, width int) error {
	report, err := stats.BuildReport(ctx, st, cfg)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if _, err := fmt.Fprintf(w, "Stored best: %d WPM\n\n", report.BestWPM); err != nil {
		return err
	}
	if err := stats.RenderSummary(w, report.Sessions); err != nil {
		return err
	}
	if err := stats.RenderTrend(w, report.Sessions, cfg.Window, width); err != nil {
		return err
	}
	return stats.RenderHistoryTable(w, report.Sessions)
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func applyConfig(cmd *cobra.Command, cfg config.SessionConfig) {
	applyStringConfig(cmd, "mode", &practiceMode, cfg.Mode)
	applyStringConfig(cmd, "difficulty", &practiceDifficulty, cfg.Difficulty)
	applyIntConfig(cmd, "duration", &practiceDuration, cfg.Duration)
	applyStringConfig(cmd, "passages", &practicePassages, cfg.Passages)
	applyIntConfig(cmd, "pb-warmup", &practicePBWarmup, cfg.PBWarmup)
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# sprint configuration
# Uncomment a value to enable it. CLI flags override config values.
# Relative paths are resolved against this file's directory.

[session]
# mode = %q           # timed or passage
# difficulty = %q     # easy, medium or hard
# duration = %d             # Seconds per timed session
# passages = "passages.toml"  # easy/medium/hard arrays, or a .txt with one passage per line
# pb-warmup = %d          # Milliseconds of typing before a score can become the best
`,
		defaultMode,
		defaultDifficulty,
		defaultDuration,
		defaultPBWarmupMs,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
