// Command audino is a terminal client for an audino annotation backend:
// it plays through one audio item and edits its segments, transcriptions,
// and labels.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kimmchii/audino/internal/api"
	"github.com/kimmchii/audino/internal/app"
	"github.com/kimmchii/audino/internal/config"
	"github.com/kimmchii/audino/internal/db"
)

var (
	flagServer  string
	flagToken   string
	flagProject int
	flagData    int
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "audino",
	Short: "Terminal audio annotation editor",
	Long: `audino opens one audio item from an annotation backend, renders its
segments on a textual timeline, and lets you edit transcriptions and labels
segment by segment. Every segment saves individually; unsaved edits are
journaled locally.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&flagServer, "server", "", "backend base URL (overrides config)")
	rootCmd.Flags().StringVar(&flagToken, "token", "", "API auth token (overrides config)")
	rootCmd.Flags().IntVar(&flagProject, "project", 0, "project id (overrides config)")
	rootCmd.Flags().IntVar(&flagData, "data", 0, "audio item id (overrides config)")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if flagServer != "" {
		cfg.ServerURL = flagServer
	}
	if flagToken != "" {
		cfg.AuthToken = flagToken
	}
	if flagProject > 0 {
		cfg.ProjectID = flagProject
	}
	if flagData > 0 {
		cfg.DataID = flagData
	}

	log, closeLog, err := openLogger(cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	// The draft journal is best-effort: the editor runs without it.
	var drafts *db.Store
	if store, err := db.Open(cfg.DraftDB); err != nil {
		log.WithError(err).Warn("draft journal unavailable")
	} else {
		drafts = store
		defer drafts.Close()
	}

	client := api.NewClient(cfg.ServerURL, cfg.AuthToken, cfg.ProjectID)
	log.WithFields(logrus.Fields{
		"server":  cfg.ServerURL,
		"project": cfg.ProjectID,
		"data":    cfg.DataID,
	}).Info("starting editor")

	model := app.New(client, drafts, log, cfg.DataID)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("run editor: %w", err)
	}
	return nil
}

// openLogger writes structured logs to a file; the terminal belongs to the
// TUI.
func openLogger(path string) (*logrus.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	log := logrus.New()
	log.SetOutput(f)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if flagVerbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log, func() { f.Close() }, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
