package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"twitsent/pkg/config"
	"twitsent/pkg/logger"
	"twitsent/pkg/sentiment"
	"twitsent/pkg/storage"
	"twitsent/pkg/ui"
)

var (
	historyLimit int
	assumeYes    bool
)

// seriesCmd represents the series command
var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "Inspect and manage stored series",
	Long: `Inspect and manage the series stored by earlier collect runs.

Series are keyed by max items per interval and interval length, so runs with
different settings are kept side by side.`,
}

var seriesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show per-interval sentiment of the stored run",
	Example: `  # Show the run collected with default settings
  twitsent series show

  # Show the hourly run with 200 tweets per interval
  twitsent series show --interval 60 --max-items 200`,
	Args: cobra.NoArgs,
	RunE: runSeriesShow,
}

var seriesHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent collection runs",
	Args:  cobra.NoArgs,
	RunE:  runSeriesHistory,
}

var seriesArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Archive the stored run so the next collect starts over",
	Long: `Rename the four series of the stored run with an archived_ prefix.

Archived series are kept on disk but are no longer extended or shown. An older
archive with the same name is replaced.`,
	Args: cobra.NoArgs,
	RunE: runSeriesArchive,
}

func init() {
	rootCmd.AddCommand(seriesCmd)
	seriesCmd.AddCommand(seriesShowCmd)
	seriesCmd.AddCommand(seriesHistoryCmd)
	seriesCmd.AddCommand(seriesArchiveCmd)

	for _, cmd := range []*cobra.Command{seriesShowCmd, seriesArchiveCmd} {
		cmd.Flags().IntVar(&intervalMins, "interval", 0, "interval length in minutes of the run")
		cmd.Flags().IntVar(&maxItems, "max-items", 0, "max tweets per interval of the run")
	}
	for _, cmd := range []*cobra.Command{seriesShowCmd, seriesHistoryCmd, seriesArchiveCmd} {
		cmd.Flags().StringVar(&dataDir, "data-dir", "", "directory holding stored series")
	}
	seriesShowCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the series as JSON")
	seriesHistoryCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to list")
	seriesArchiveCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")
}

func openStore(cmd *cobra.Command) (*config.Config, *storage.Store, error) {
	cfg, err := loadConfig(cmd, windowFlags(cmd))
	if err != nil {
		return nil, nil, err
	}
	store, err := storage.Open(cfg.Storage.Directory, logger.GetLogger())
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}
	return cfg, store, nil
}

type intervalSummary struct {
	Ending   time.Time `json:"ending"`
	Tweets   int       `json:"tweets"`
	Keyword  float64   `json:"keyword"`
	Sample   float64   `json:"sample"`
	Baseline int       `json:"sample_tweets"`
}

func runSeriesShow(cmd *cobra.Command, args []string) error {
	cfg, store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	interval := cfg.Collection.IntervalMinutes
	run, err := store.LoadRun(cfg.Collection.MaxItemsPerInterval, interval)
	if err != nil {
		return err
	}
	keywordScores, err := run.Sentiment.Floats()
	if err != nil {
		return err
	}
	sampleScores, err := run.SentimentSample.Floats()
	if err != nil {
		return err
	}
	keywordAvg := sentiment.Averages(keywordScores)
	sampleAvg := sentiment.Averages(sampleScores)

	// Rows are stored newest interval first.
	rows := make([]intervalSummary, len(keywordAvg))
	for i := range rows {
		rows[i] = intervalSummary{
			Ending:  run.End.Add(-time.Duration(i*interval) * time.Minute),
			Keyword: keywordAvg[i],
		}
		if i < len(run.Text.Rows) {
			rows[i].Tweets = len(run.Text.Rows[i])
		}
		if i < len(sampleAvg) {
			rows[i].Sample = sampleAvg[i]
		}
		if i < len(run.TextSample.Rows) {
			rows[i].Baseline = len(run.TextSample.Rows[i])
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	ui.PrintInfo("Series", run.Sentiment.Identity.String())
	ui.PrintInfo("Window", fmt.Sprintf("%s to %s, %d intervals",
		run.Start.Format(dateFlagLayout), run.End.Format(dateFlagLayout), len(rows)))

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ENDING", "TWEETS", "KEYWORD", "SAMPLE", "DIFF")
	for _, r := range rows {
		t.Row(
			r.Ending.Format("Jan 2 15:04"),
			fmt.Sprintf("%d/%d", r.Tweets, r.Baseline),
			fmt.Sprintf("%+.3f", r.Keyword),
			fmt.Sprintf("%+.3f", r.Sample),
			fmt.Sprintf("%+.3f", r.Keyword-r.Sample),
		)
	}
	fmt.Fprintln(ui.Output, t.String())
	ui.PrintInfo("Overall", fmt.Sprintf("keyword %+.3f, sample %+.3f",
		sentiment.Mean(keywordAvg), sentiment.Mean(sampleAvg)))
	return nil
}

func runSeriesHistory(cmd *cobra.Command, args []string) error {
	_, store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		ui.PrintWarning("No runs recorded yet")
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "STARTED", "MODE", "WINDOW", "SETTINGS", "REQUESTS", "OUTCOME")
	for _, r := range runs {
		outcome := r.Outcome
		if r.Error != "" {
			outcome += ": " + truncate(r.Error, 40)
		}
		t.Row(
			fmt.Sprintf("%d", r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Mode,
			r.Start.Format(dateFlagLayout)+" - "+r.End.Format(dateFlagLayout),
			fmt.Sprintf("%d x %dm", r.MaxItems, r.IntervalMinutes),
			fmt.Sprintf("%d", r.RequestCount),
			outcome,
		)
	}
	fmt.Fprintln(ui.Output, t.String())
	return nil
}

func runSeriesArchive(cmd *cobra.Command, args []string) error {
	cfg, store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	maxItems, interval := cfg.Collection.MaxItemsPerInterval, cfg.Collection.IntervalMinutes
	id, err := store.Lookup(storage.KindText, false, maxItems, interval)
	if err != nil {
		ui.PrintWarning("Nothing to archive", err.Error())
		return nil
	}
	if !assumeYes {
		fmt.Fprintf(ui.Output, "Archive the run from %s to %s with %d tweets per %d minute interval? (y/N): ",
			id.StartDate.Format(dateFlagLayout), id.EndDate.Format(dateFlagLayout), maxItems, interval)
		input, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	n, err := store.Archive(maxItems, interval)
	if err != nil {
		return err
	}
	if n == 0 {
		ui.PrintWarning("Nothing to archive")
		return nil
	}
	ui.PrintSuccess(fmt.Sprintf("Archived %d series", n))
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
