package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"twitsent/pkg/auth"
	"twitsent/pkg/checkpoint"
	"twitsent/pkg/collector"
	"twitsent/pkg/config"
	"twitsent/pkg/logger"
	"twitsent/pkg/metrics"
	"twitsent/pkg/models"
	"twitsent/pkg/pipeline"
	"twitsent/pkg/query"
	"twitsent/pkg/quota"
	"twitsent/pkg/ratelimit"
	"twitsent/pkg/sentiment"
	"twitsent/pkg/storage"
	"twitsent/pkg/twitter"
	"twitsent/pkg/ui"
	"twitsent/pkg/ui/tui"
)

const dateFlagLayout = "2006-01-02"

var (
	// Window flags, shared by collect and plan
	extendRun    bool
	startDate    string
	endDate      string
	days         int
	intervalMins int
	maxItems     int
	keywordTerms string
	sampleTerms  string
	languages    []string
	elevated     bool
	dataDir      string

	// Collect command flags
	accountName   string
	useTUI        bool
	metricsAddr   string
	workers       int
	densityProbe  bool
	notifications bool
	jsonOutput    bool
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect and score keyword and baseline tweets",
	Long: `Collect tweets matching the keyword rule and a baseline sample of ordinary
tweets over a window of whole days, split into fixed-length intervals.

Each interval keeps up to --max-items tweets. Texts are normalized, scored for
sentiment and stored as four series (keyword text, sample text and their
scores) named after the window, max items and interval length.

A fresh run archives the previous series with the same max items and interval
once the new run has succeeded. --extend continues the stored series from
their end date instead.

The bearer token is taken from, in order:
  - TWITSENT_BEARER_TOKEN or the config file
  - The account named by --account
  - The default stored account (use 'twitsent auth login' to store one)`,
	Example: `  # Collect the last six days with default keywords
  twitsent collect

  # Collect a custom rule, 'a b' means both terms and commas separate alternatives
  twitsent collect --keywords "vaccine,mask mandate" --interval 120 --max-items 50

  # Full-archive search over an explicit window
  twitsent collect --elevated --start 2021-01-01 --end 2021-02-01

  # Extend the stored run up to today
  twitsent collect --extend

  # Interactive terminal UI with a Prometheus endpoint
  twitsent collect --tui --metrics-addr :9090`,
	Args: cobra.NoArgs,
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)
	addWindowFlags(collectCmd)

	collectCmd.Flags().StringVarP(&accountName, "account", "a", "", "use a specific stored account")
	collectCmd.Flags().BoolVar(&useTUI, "tui", false, "use interactive terminal UI with real-time progress")
	collectCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")
	collectCmd.Flags().IntVar(&workers, "workers", 0, "number of sentiment scoring workers")
	collectCmd.Flags().BoolVar(&densityProbe, "density-probe", true, "warn when intervals cannot hold --max-items tweets")
	collectCmd.Flags().BoolVar(&notifications, "notifications", true, "enable desktop notifications")
	collectCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the run report as JSON")
}

// addWindowFlags registers the flags that shape the collection window.
func addWindowFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&extendRun, "extend", false, "extend the stored run instead of starting over")
	cmd.Flags().StringVar(&startDate, "start", "", "first day to collect, YYYY-MM-DD (default: --days before --end)")
	cmd.Flags().StringVar(&endDate, "end", "", "day the window ends on, YYYY-MM-DD (default: today, UTC)")
	cmd.Flags().IntVar(&days, "days", 6, "window length in days when --start is not given")
	cmd.Flags().IntVar(&intervalMins, "interval", 0, "interval length in minutes")
	cmd.Flags().IntVar(&maxItems, "max-items", 0, "maximum tweets kept per interval")
	cmd.Flags().StringVar(&keywordTerms, "keywords", "", "keyword rule: comma-separated alternatives of space-separated terms")
	cmd.Flags().StringVar(&sampleTerms, "sample-terms", "", "baseline rule in the same format (default: common words)")
	cmd.Flags().StringSliceVar(&languages, "languages", nil, "language codes to restrict tweets to")
	cmd.Flags().BoolVar(&elevated, "elevated", false, "use the full-archive search tier")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "directory holding stored series")
}

// windowFlags returns the window flags the user set, keyed for config.Load.
func windowFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	f := cmd.Flags()
	if f.Changed("interval") {
		flags["interval"] = intervalMins
	}
	if f.Changed("max-items") {
		flags["max-items"] = maxItems
	}
	if f.Changed("languages") {
		flags["languages"] = languages
	}
	if f.Changed("elevated") {
		flags["elevated"] = elevated
	}
	if f.Changed("data-dir") {
		flags["data-dir"] = dataDir
	}
	return flags
}

func collectFlags(cmd *cobra.Command) map[string]interface{} {
	flags := windowFlags(cmd)
	f := cmd.Flags()
	if f.Changed("account") {
		flags["account"] = accountName
	}
	if f.Changed("metrics-addr") {
		flags["metrics-addr"] = metricsAddr
	}
	if f.Changed("workers") {
		flags["workers"] = workers
	}
	if f.Changed("density-probe") {
		flags["density-probe"] = densityProbe
	}
	if f.Changed("notifications") {
		flags["notifications"] = notifications
	}
	// Console logs would tear the full-screen UI.
	if useTUI && !quiet && !verbose && !f.Changed("log-level") {
		flags["log-level"] = "error"
	}
	return flags
}

// buildRequest turns the config and window flags into a pipeline request.
func buildRequest(cfg *config.Config, now time.Time) (pipeline.Request, error) {
	req := pipeline.Request{
		Mode:        pipeline.ModeFresh,
		Keywords:    cfg.Collection.Keywords,
		SampleTerms: cfg.Collection.SampleTerms,
		Languages:   cfg.Collection.Languages,
		Interval:    time.Duration(cfg.Collection.IntervalMinutes) * time.Minute,
		MaxItems:    cfg.Collection.MaxItemsPerInterval,
		Elevated:    cfg.Twitter.Elevated,
	}
	if extendRun {
		req.Mode = pipeline.ModeExtend
	}
	if keywordTerms != "" {
		req.Keywords = query.ParseTerms(keywordTerms)
	}
	if sampleTerms != "" {
		req.SampleTerms = query.ParseTerms(sampleTerms)
	}

	end := storage.CivilDate(now)
	if endDate != "" {
		t, err := time.Parse(dateFlagLayout, endDate)
		if err != nil {
			return req, fmt.Errorf("invalid --end %q: expected YYYY-MM-DD", endDate)
		}
		end = t
	}

	var start time.Time
	switch {
	case startDate != "":
		t, err := time.Parse(dateFlagLayout, startDate)
		if err != nil {
			return req, fmt.Errorf("invalid --start %q: expected YYYY-MM-DD", startDate)
		}
		start = t
	case days < 1:
		return req, fmt.Errorf("--days must be at least 1, got %d", days)
	default:
		start = end.AddDate(0, 0, -days)
	}

	req.Start, req.End = start, end
	return req, nil
}

// credentialDir is where the encrypted credential file lives.
func credentialDir() string {
	return filepath.Dir(config.DefaultConfigPath())
}

// resolveToken finds the bearer token and whether it belongs to the
// full-archive tier.
func resolveToken(cfg *config.Config) (string, bool, error) {
	if cfg.Twitter.BearerToken != "" {
		logger.Info("Using bearer token from configuration")
		return cfg.Twitter.BearerToken, cfg.Twitter.Elevated, nil
	}

	manager, err := auth.NewManager(credentialDir())
	if err != nil {
		return "", false, fmt.Errorf("initializing credential manager: %w", err)
	}
	cred, err := manager.Resolve(cfg.Twitter.Account)
	if err != nil {
		ui.PrintError("No bearer token found")
		fmt.Fprintln(ui.Output, "\nTo store a token securely, run:")
		fmt.Fprintln(ui.Output, "  twitsent auth login")
		fmt.Fprintln(ui.Output, "\nOr set it in the environment:")
		fmt.Fprintln(ui.Output, "  export TWITSENT_BEARER_TOKEN=your_token")
		return "", false, err
	}

	logger.WithField("account", cred.Name).Info("Using stored credentials")
	ui.PrintInfo("Using account", cred.Name)
	return cred.BearerToken, cfg.Twitter.Elevated || cred.Elevated, nil
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, collectFlags(cmd))
	if err != nil {
		return err
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("twitsent starting")

	token, tier, err := resolveToken(cfg)
	if err != nil {
		return err
	}

	req, err := buildRequest(cfg, time.Now())
	if err != nil {
		return err
	}
	req.Elevated = tier

	store, err := storage.Open(cfg.Storage.Directory, log)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	keywordSpec, sampleSpec, err := pipeline.BuildSpecs(store, req)
	if err != nil {
		return err
	}
	keywordPlan, samplePlan := quota.Estimate(keywordSpec), quota.Estimate(sampleSpec)
	ceiling := ratelimit.Ceiling(req.Elevated)
	if !useTUI {
		printPlan(req.Mode, keywordSpec, keywordPlan, samplePlan)
	}

	client, err := twitter.NewClient(twitter.Config{
		BearerToken: token,
		Elevated:    req.Elevated,
		BaseURL:     cfg.Twitter.BaseURL,
		Timeout:     cfg.Twitter.Timeout,
		UserAgent:   cfg.Twitter.UserAgent,
	}, log)
	if err != nil {
		return err
	}

	checkpoints, err := checkpoint.NewManager(cfg.Storage.Directory, log)
	if err != nil {
		return err
	}

	var scorer sentiment.Scorer
	if cfg.Scoring.Lexicon != "" {
		lex, err := sentiment.LoadLexiconFile(cfg.Scoring.Lexicon)
		if err != nil {
			return err
		}
		scorer = sentiment.NewLexiconScorer(lex)
	}

	pacing := cfg.Throttle.StandardPacing
	if req.Elevated {
		pacing = cfg.Throttle.ElevatedPacing
	}

	opts := pipeline.Options{
		Store:     store,
		Transport: client,
		Client: collector.ClientConfig{
			Elevated:       req.Elevated,
			ExpectThrottle: keywordPlan.RequestCount+samplePlan.RequestCount > ceiling,
			Cooldown:       cfg.Throttle.Cooldown,
			Pacing:         pacing,
		},
		Scorer:       scorer,
		Workers:      cfg.Scoring.Workers,
		DensityProbe: cfg.Collection.DensityProbe,
		Checkpoints:  checkpoints,
		Logger:       log,
	}

	if cfg.Metrics.Address != "" {
		m := metrics.New()
		reg := prometheus.NewRegistry()
		if err := m.Register(reg); err != nil {
			return err
		}
		srv := metrics.NewServer(cfg.Metrics.Address, reg, log)
		if err := srv.Start(); err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
		opts.Metrics = m
		if !useTUI {
			ui.PrintInfo("Metrics", "http://"+srv.Addr()+"/metrics")
		}
	}

	notifier := ui.NewNotifier(cfg.Notifications)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var report *pipeline.Report
	if useTUI {
		report, err = collectWithTUI(ctx, opts, req, keywordSpec.IntervalCount(), ceiling, notifier)
	} else {
		report, err = collectWithProgress(ctx, opts, req, notifier)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			ui.PrintWarning("Interrupted", "completed intervals were saved to "+checkpoints.Dir())
		}
		log.WithError(err).Error("Collection failed")
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(report)
	return nil
}

func collectWithProgress(ctx context.Context, opts pipeline.Options, req pipeline.Request, notifier *ui.Notifier) (*pipeline.Report, error) {
	var current *ui.ProgressDisplay
	opts.Observe = func(series string) collector.Observer {
		if current != nil {
			current.Complete()
		}
		current = ui.NewProgressDisplay(ui.Output, series, verbose)
		return collector.Observers{notifier.Observer(), current}
	}

	runner, err := pipeline.NewRunner(opts)
	if err != nil {
		return nil, err
	}

	ui.PrintHighlight("[COLLECTING]")
	report, err := runner.Run(ctx, req)
	if current != nil {
		current.Complete()
	}
	if err != nil {
		notifier.Failed(err)
		ui.PrintError("COLLECTION FAILED", err.Error())
		return nil, err
	}

	notifier.Completed(summarize(report))
	ui.PrintSuccess("[COLLECTION COMPLETED]")
	return report, nil
}

type runOutcome struct {
	report *pipeline.Report
	err    error
}

func collectWithTUI(ctx context.Context, opts pipeline.Options, req pipeline.Request, intervals, ceiling int, notifier *ui.Notifier) (*pipeline.Report, error) {
	terminal := tui.NewTUI(ceiling)
	notifier.SetOutput(io.Discard)

	opts.Observe = func(series string) collector.Observer {
		terminal.SeriesStarted(series, intervals)
		return collector.Observers{notifier.Observer(), terminal.Observer(series)}
	}
	runner, err := pipeline.NewRunner(opts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go terminal.TrackUsage(ctx, time.Second, runner.Usage)

	runDone := make(chan runOutcome, 1)
	go func() {
		report, err := runner.Run(ctx, req)
		runDone <- runOutcome{report, err}
	}()

	tuiDone := make(chan error, 1)
	go func() {
		tuiDone <- terminal.Start()
	}()

	select {
	case res := <-runDone:
		if res.err != nil {
			terminal.LogError("%v", res.err)
			notifier.Failed(res.err)
		} else {
			summary := summarize(res.report)
			terminal.Done(summary)
			notifier.Completed(summary)
		}
		if err := <-tuiDone; err != nil {
			logger.WithError(err).Error("TUI failed")
		}
		return res.report, res.err

	case err := <-tuiDone:
		// The user quit early; stop collecting and keep what was finished.
		cancel()
		res := <-runDone
		if err != nil {
			return nil, fmt.Errorf("terminal UI: %w", err)
		}
		return res.report, res.err
	}
}

func summarize(r *pipeline.Report) string {
	return fmt.Sprintf("%d keyword and %d sample tweets over %d intervals in %d requests",
		r.Keyword.Items(), r.Sample.Items(), len(r.Keyword.Intervals), r.Requests)
}

func printPlan(mode pipeline.Mode, spec models.CollectionSpec, keyword, sample quota.Plan) {
	ui.PrintInfo("Mode", string(mode))
	ui.PrintInfo("Window", fmt.Sprintf("%s to %s", spec.Start.Format(dateFlagLayout), spec.End.Format(dateFlagLayout)))
	ui.PrintInfo("Intervals", fmt.Sprintf("%d of %s", spec.IntervalCount(), spec.IntervalLength.String()))
	ui.PrintInfo("Rule", spec.Rule)
	ui.PrintInfo("Keyword series", keyword.String())
	ui.PrintInfo("Sample series", sample.String())
	if keyword.RequestCount+sample.RequestCount > keyword.Ceiling {
		ui.PrintWarning("Rate limit", fmt.Sprintf("expect cooldowns, the run exceeds %d requests per window", keyword.Ceiling))
	}
}

func printReport(r *pipeline.Report) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "WINDOW", "TWEETS", "KEYWORD", "SAMPLE", "DIFF")

	for i, iv := range r.Keyword.Intervals {
		sample := 0.0
		if i < len(r.Sample.Averages) {
			sample = r.Sample.Averages[i]
		}
		keyword := 0.0
		if i < len(r.Keyword.Averages) {
			keyword = r.Keyword.Averages[i]
		}
		t.Row(
			fmt.Sprintf("%d", i+1),
			iv.Window.Start.Format("Jan 2 15:04")+" - "+iv.Window.End.Format("15:04"),
			fmt.Sprintf("%d", len(iv.Items)),
			fmt.Sprintf("%+.3f", keyword),
			fmt.Sprintf("%+.3f", sample),
			fmt.Sprintf("%+.3f", keyword-sample),
		)
	}

	fmt.Fprintln(ui.Output)
	fmt.Fprintln(ui.Output, t.String())
	ui.PrintInfo("Run", fmt.Sprintf("#%d %s, %s", r.RunID, r.Mode, r.Duration.Round(time.Second)))
	ui.PrintInfo("Summary", summarize(r))
	if r.Archived > 0 {
		ui.PrintInfo("Archived", fmt.Sprintf("%d previous series", r.Archived))
	}
	for _, res := range []*pipeline.SeriesResult{r.Keyword, r.Sample} {
		for _, w := range res.Warnings {
			ui.PrintWarning(res.Name, w.Message)
		}
	}
}
