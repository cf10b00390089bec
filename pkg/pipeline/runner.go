package pipeline

import (
	"context"
	"fmt"
	"time"

	"twitsent/internal/scoring"
	"twitsent/pkg/checkpoint"
	"twitsent/pkg/collector"
	errs "twitsent/pkg/errors"
	"twitsent/pkg/logger"
	"twitsent/pkg/metrics"
	"twitsent/pkg/models"
	"twitsent/pkg/query"
	"twitsent/pkg/quota"
	"twitsent/pkg/retry"
	"twitsent/pkg/sentiment"
	"twitsent/pkg/storage"
)

// Mode selects between starting over and extending the stored run
type Mode string

const (
	ModeFresh  Mode = "fresh"
	ModeExtend Mode = "extend"
)

// Series names used for observers, metrics and checkpoints.
const (
	SeriesKeyword = "keyword"
	SeriesSample  = "sample"
)

// Run outcomes recorded in the runs table.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// Request describes one collection run
type Request struct {
	Mode Mode
	// Keywords and SampleTerms are OR groups of AND terms. Empty values fall
	// back to query.DefaultKeywords and query.BaselineGroups.
	Keywords    [][]string
	SampleTerms [][]string
	Languages   []string
	// Start and End are truncated to UTC dates. Start is ignored in extend
	// mode, where the stored end is used instead.
	Start    time.Time
	End      time.Time
	Interval time.Duration
	MaxItems int
	Elevated bool
}

// IntervalMinutes is the interval length in whole minutes.
func (r Request) IntervalMinutes() int {
	return int(r.Interval / time.Minute)
}

// Options wires the Runner's collaborators. Store and Transport are required.
type Options struct {
	Store     *storage.Store
	Transport collector.Transport
	Client    collector.ClientConfig
	Scorer    sentiment.Scorer
	Workers   int

	DensityProbe bool

	// Checkpoints, Metrics and Observe are optional.
	Checkpoints *checkpoint.Manager
	Metrics     *metrics.Metrics
	Observe     func(series string) collector.Observer

	Sleeper retry.Sleeper
	Logger  logger.Logger
	Now     func() time.Time
}

// SeriesResult is the outcome of collecting and scoring one series
type SeriesResult struct {
	Name      string              `json:"name"`
	Rule      string              `json:"rule"`
	Plan      quota.Plan          `json:"plan"`
	Intervals []models.Interval   `json:"intervals"`
	Warnings  []collector.Warning `json:"warnings,omitempty"`
	Scores    [][]float64         `json:"scores"`
	Averages  []float64           `json:"averages"`

	texts [][]string
}

// Items counts every collected text in the series.
func (s *SeriesResult) Items() int {
	n := 0
	for _, iv := range s.Intervals {
		n += len(iv.Items)
	}
	return n
}

// Report summarizes a completed run
type Report struct {
	RunID    int64         `json:"run_id"`
	Mode     Mode          `json:"mode"`
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Requests int           `json:"requests"`
	Keyword  *SeriesResult `json:"keyword"`
	Sample   *SeriesResult `json:"sample"`
	Archived int           `json:"archived,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Runner executes collection runs against one store
type Runner struct {
	store       *storage.Store
	throttler   *collector.Throttler
	scorer      sentiment.Scorer
	workers     int
	probe       bool
	checkpoints *checkpoint.Manager
	metrics     *metrics.Metrics
	observe     func(series string) collector.Observer
	logger      logger.Logger
	now         func() time.Time
}

// NewRunner creates a runner from opts
func NewRunner(opts Options) (*Runner, error) {
	if opts.Store == nil {
		return nil, errs.Validation("pipeline needs a store")
	}
	if opts.Transport == nil {
		return nil, errs.Validation("pipeline needs a transport")
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	scorer := opts.Scorer
	if scorer == nil {
		scorer = sentiment.NewVaderScorer()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Runner{
		store:       opts.Store,
		throttler:   collector.NewThrottler(opts.Transport, opts.Client, opts.Sleeper, log),
		scorer:      scorer,
		workers:     opts.Workers,
		probe:       opts.DensityProbe,
		checkpoints: opts.Checkpoints,
		metrics:     opts.Metrics,
		observe:     opts.Observe,
		logger:      log.WithField("component", "pipeline"),
		now:         now,
	}, nil
}

// Usage reports requests issued in the trailing rate-limit window.
func (r *Runner) Usage() (used, ceiling int, resetAt time.Time) {
	return r.throttler.Usage()
}

// seriesSpec pairs a series name with its collection spec
type seriesSpec struct {
	name string
	spec models.CollectionSpec
}

// Plan builds the collection specs for req without touching the network.
func (r *Runner) Plan(req Request) (keyword, sample models.CollectionSpec, err error) {
	return BuildSpecs(r.store, req)
}

// BuildSpecs turns req into the keyword and sample collection specs. In extend
// mode the window starts at the end of the run stored in store.
func BuildSpecs(store *storage.Store, req Request) (keyword, sample models.CollectionSpec, err error) {
	if req.Mode == "" {
		req.Mode = ModeFresh
	}
	if req.Mode != ModeFresh && req.Mode != ModeExtend {
		return keyword, sample, errs.Validation("unknown run mode %q", req.Mode)
	}

	// Stored series are named by civil dates, so runs cover whole UTC days.
	start, end := storage.CivilDate(req.Start), storage.CivilDate(req.End)
	if req.Mode == ModeExtend {
		if store == nil {
			return keyword, sample, errs.Validation("extending needs a store")
		}
		run, err := store.LoadRun(req.MaxItems, req.IntervalMinutes())
		if err != nil {
			return keyword, sample, err
		}
		if !end.After(run.End) {
			return keyword, sample, errs.Validation("stored series already end on %s; nothing to extend",
				run.End.Format(storage.DateLayout))
		}
		start = run.End
	}

	keywordGroups := req.Keywords
	if len(keywordGroups) == 0 {
		keywordGroups = query.DefaultKeywords
	}
	sampleGroups := req.SampleTerms
	if len(sampleGroups) == 0 {
		sampleGroups = query.BaselineGroups()
	}

	base := models.CollectionSpec{
		Languages:           req.Languages,
		Start:               start,
		End:                 end,
		IntervalLength:      req.Interval,
		MaxItemsPerInterval: req.MaxItems,
		Elevated:            req.Elevated,
	}
	keyword, sample = base, base
	keyword.Rule = query.Build(keywordGroups)
	sample.Rule = query.Build(sampleGroups)

	if keyword.Rule == "" || sample.Rule == "" {
		return keyword, sample, errs.Validation("search rule is empty after dropping unusable terms")
	}
	if err := keyword.Validate(); err != nil {
		return keyword, sample, err
	}
	if req.IntervalMinutes() < 1 {
		return keyword, sample, errs.Validation("interval must be at least one minute, got %s", req.Interval)
	}
	// Stored series record the interval in minutes.
	if req.Interval%time.Minute != 0 {
		return keyword, sample, errs.Validation("interval must be a whole number of minutes, got %s", req.Interval)
	}
	return keyword, sample, nil
}

// Run collects, scores and stores one run.
func (r *Runner) Run(ctx context.Context, req Request) (report *Report, err error) {
	if req.Mode == "" {
		req.Mode = ModeFresh
	}
	started := r.now()
	requests := &requestCounter{}

	record := storage.RunRecord{
		Mode:            string(req.Mode),
		MaxItems:        req.MaxItems,
		IntervalMinutes: req.IntervalMinutes(),
		StartedAt:       started,
	}
	defer func() {
		if r.metrics != nil {
			r.metrics.ObserveRun(string(req.Mode), r.now().Sub(started), err)
		}
		if err == nil || record.Rule == "" {
			return
		}
		record.Outcome = OutcomeFailed
		record.Error = err.Error()
		record.RequestCount = requests.count
		record.FinishedAt = r.now()
		if _, recErr := r.store.RecordRun(record); recErr != nil {
			r.logger.WithError(recErr).Warn("Failed to record failed run")
		}
	}()

	keywordSpec, sampleSpec, err := r.Plan(req)
	if err != nil {
		return nil, err
	}
	record.Rule = keywordSpec.Rule
	record.Start = keywordSpec.Start
	record.End = keywordSpec.End

	for _, spec := range []models.CollectionSpec{keywordSpec, sampleSpec} {
		if err := quota.CheckReach(spec, r.now()); err != nil {
			return nil, err
		}
	}

	report = &Report{Mode: req.Mode, Start: keywordSpec.Start, End: keywordSpec.End}
	specs := []seriesSpec{{SeriesKeyword, keywordSpec}, {SeriesSample, sampleSpec}}
	results := make([]*SeriesResult, len(specs))

	for i, s := range specs {
		res, err := r.collect(ctx, s, requests)
		record.Intervals += len(res.Intervals)
		if err != nil {
			return nil, err
		}
		results[i] = res
	}
	report.Keyword, report.Sample = results[0], results[1]

	for _, res := range results {
		if err := r.score(ctx, res); err != nil {
			return nil, err
		}
	}

	archived, err := r.save(req, report)
	if err != nil {
		return nil, err
	}
	report.Archived = archived
	report.Requests = requests.count
	report.Duration = r.now().Sub(started)

	record.Outcome = OutcomeCompleted
	record.RequestCount = requests.count
	record.FinishedAt = r.now()
	if report.RunID, err = r.store.RecordRun(record); err != nil {
		return nil, err
	}

	r.clearCheckpoints()
	r.logger.InfoWithFields("Run completed", map[string]interface{}{
		"mode":     req.Mode,
		"requests": report.Requests,
		"keyword":  report.Keyword.Items(),
		"sample":   report.Sample.Items(),
		"duration": report.Duration.Round(time.Second).String(),
	})
	return report, nil
}

// collect runs one series. On failure the completed intervals are kept in a
// checkpoint and returned alongside the error.
func (r *Runner) collect(ctx context.Context, s seriesSpec, requests *requestCounter) (*SeriesResult, error) {
	observers := collector.Observers{requests}
	if r.metrics != nil {
		observers = append(observers, r.metrics.Observer(s.name))
	}
	if r.observe != nil {
		if o := r.observe(s.name); o != nil {
			observers = append(observers, o)
		}
	}
	r.throttler.SetObserver(observers)

	c := collector.New(r.throttler, collector.Options{DensityProbe: r.probe}, r.logger)
	c.SetObserver(observers)

	plan := quota.Estimate(s.spec)
	r.logger.InfoWithFields("Collecting series", map[string]interface{}{
		"series": s.name,
		"rule":   s.spec.Rule,
		"plan":   plan.String(),
	})

	result, err := c.Run(ctx, s.spec)
	res := &SeriesResult{Name: s.name, Rule: s.spec.Rule, Plan: plan}
	if result != nil {
		res.Intervals = result.Intervals
		res.Warnings = result.Warnings
		res.texts = result.Texts()
	}
	if err != nil {
		r.saveCheckpoint(s, res.Intervals, err)
		return res, err
	}
	return res, nil
}

func (r *Runner) score(ctx context.Context, res *SeriesResult) error {
	scores, err := scoring.ScoreIntervals(ctx, r.workers, r.scorer, res.texts, r.logger)
	if err != nil {
		return err
	}
	res.Scores = scores
	res.Averages = sentiment.Averages(scores)
	return nil
}

// save writes the four series. Fresh runs archive the previous run only now,
// after collection has succeeded.
func (r *Runner) save(req Request, report *Report) (int, error) {
	maxItems, interval := req.MaxItems, req.IntervalMinutes()
	end := storage.CivilDate(report.End)

	archived := 0
	if req.Mode == ModeFresh {
		n, err := r.store.StartRun(report.Start, end, maxItems, interval)
		if err != nil {
			return 0, err
		}
		archived = n
	}

	err := r.store.SaveRun(maxItems, interval, end, storage.RunRows{
		Text:            report.Keyword.texts,
		TextSample:      report.Sample.texts,
		Sentiment:       storage.FormatFloats(report.Keyword.Scores),
		SentimentSample: storage.FormatFloats(report.Sample.Scores),
	})
	if err != nil {
		return archived, fmt.Errorf("saving run: %w", err)
	}
	return archived, nil
}

func (r *Runner) saveCheckpoint(s seriesSpec, intervals []models.Interval, cause error) {
	if r.checkpoints == nil {
		return
	}
	path, err := r.checkpoints.Save(checkpoint.NewSnapshot(s.name, s.spec, intervals, cause))
	if err != nil {
		r.logger.WithError(err).Warn("Failed to save partial run")
		return
	}
	r.logger.WithField("path", path).Info("Completed intervals kept for inspection")
}

func (r *Runner) clearCheckpoints() {
	if r.checkpoints == nil {
		return
	}
	for _, name := range []string{SeriesKeyword, SeriesSample} {
		if err := r.checkpoints.Delete(name); err != nil {
			r.logger.WithError(err).Debug("Failed to remove stale partial run")
		}
	}
}

// requestCounter counts transport calls across both series.
type requestCounter struct {
	collector.NopObserver
	count int
}

func (c *requestCounter) RequestCompleted(time.Duration, error) {
	c.count++
}
