// Package main provides the CLI entrypoint for recall.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/recall/internal/config"
	"github.com/verte-zerg/recall/internal/deck"
	"github.com/verte-zerg/recall/internal/model"
	"github.com/verte-zerg/recall/internal/statsui"
	"github.com/verte-zerg/recall/internal/store"
	"github.com/verte-zerg/recall/internal/tui"
)

const (
	defaultLimit       = 0
	defaultCurveWindow = 20
)

var (
	reviewDeck  string
	reviewLimit int

	statsDeck        string
	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsCards       string

	importName string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "recall",
		Short:         "TUI flashcard review trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runReviewCmd,
	}

	rootCmd.Flags().StringVar(&reviewDeck, "deck", "", "deck to review")
	rootCmd.Flags().IntVar(&reviewLimit, "limit", defaultLimit, "max cards per session (0 = all)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newDeckCmd())
	rootCmd.AddCommand(newStatsCmd())

	return rootCmd
}

func runReviewCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "deck", &reviewDeck, fileCfg.Review.Deck)
	applyIntConfig(cmd, "limit", &reviewLimit, fileCfg.Review.Limit)

	cfg := model.Config{
		Deck:  reviewDeck,
		Limit: reviewLimit,
	}

	if err := validateConfig(cfg); err != nil {
		return err
	}

	storePath := config.DefaultDBPath()
	st, err := store.Open(storePath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	reviewModel, err := tui.NewModel(cfg, st)
	if err != nil {
		return deckLoadError(cfg.Deck, err)
	}
	program := tea.NewProgram(reviewModel, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
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

func newDeckCmd() *cobra.Command {
	deckCmd := &cobra.Command{
		Use:   "deck",
		Short: "Manage decks",
	}
	deckCmd.AddCommand(newDeckImportCmd())
	deckCmd.AddCommand(newDeckListCmd())
	return deckCmd
}

func newDeckImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a deck from a TSV file",
		Args:  cobra.ExactArgs(1),
		RunE:  runDeckImportCmd,
	}
	cmd.Flags().StringVar(&importName, "name", "", "deck name (default: file name without extension)")
	return cmd
}

func runDeckImportCmd(_ *cobra.Command, args []string) error {
	path := args[0]
	name := strings.TrimSpace(importName)
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if name == "" {
		return fmt.Errorf("--name must not be empty")
	}

	cards, err := deck.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load deck: %w", err)
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

	if err := st.ImportDeck(context.Background(), name, cards); err != nil {
		return fmt.Errorf("failed to import deck: %w", err)
	}
	logErrf("Imported %d cards into deck %q\n", len(cards), name)
	return nil
}

func newDeckListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List imported decks",
		Args:  cobra.NoArgs,
		RunE:  runDeckListCmd,
	}
}

func runDeckListCmd(cmd *cobra.Command, _ []string) error {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	decks, err := st.ListDecks(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list decks: %w", err)
	}
	if len(decks) == 0 {
		logErrln("No decks found. Import with: recall deck import --name <name> <file>")
		return fmt.Errorf("no decks found")
	}
	for _, d := range decks {
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d cards\n", d.Name, d.Cards); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsDeck, "deck", "", "deck filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().StringVar(&statsCards, "card", "", "card keys for per-card curves")
	return cmd
}

func runStatsCmd(_ *cobra.Command, _ []string) error {
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}

	cfg := model.StatsConfig{
		Deck:        statsDeck,
		Since:       sinceTime,
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
		Cards:       statsCards,
	}

	storePath := config.DefaultDBPath()
	st, err := store.Open(storePath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	statsModel := statsui.NewModel(st, cfg)
	program := tea.NewProgram(statsModel, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
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
	return `# recall configuration
# Uncomment a value to enable it. CLI flags override config values.

[review]
# deck = "n5"     # Deck to review
# limit = 0       # Max cards per session (0 = all)
`
}

func validateConfig(cfg model.Config) error {
	if cfg.Deck == "" {
		return fmt.Errorf("--deck must not be empty (set it via flag or config)")
	}
	if cfg.Limit < 0 {
		return fmt.Errorf("--limit must be >= 0")
	}
	return nil
}

func deckLoadError(deckName string, err error) error {
	lines := []string{
		fmt.Sprintf("failed to start review: %v", err),
		fmt.Sprintf("deck %q may not be imported yet", deckName),
		"List decks: recall deck list",
		fmt.Sprintf("Import: recall deck import --name %s <file>", deckName),
	}
	return fmt.Errorf("%s", strings.Join(lines, "\n"))
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
