package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"twitsent/pkg/logger"
	"twitsent/pkg/pipeline"
	"twitsent/pkg/quota"
	"twitsent/pkg/ratelimit"
	"twitsent/pkg/storage"
	"twitsent/pkg/ui"
)

// planCmd represents the plan command
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Estimate requests and run time without collecting",
	Long: `Show the window, search rule and request estimate a collect run with the same
flags would use. Nothing is sent to the search API.

The estimate counts one request per interval for every 100 tweets kept, and
assumes cooldowns once the run exceeds the tier's requests per window.`,
	Example: `  # Estimate a two-week full-archive run at hourly intervals
  twitsent plan --elevated --days 14 --interval 60 --max-items 200

  # Estimate extending the stored run
  twitsent plan --extend`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
	addWindowFlags(planCmd)
	planCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the plan as JSON")
}

type planOutput struct {
	Mode     pipeline.Mode `json:"mode"`
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Rule     string        `json:"rule"`
	Sample   string        `json:"sample_rule"`
	Keyword  quota.Plan    `json:"keyword"`
	Baseline quota.Plan    `json:"sample"`
	Requests int           `json:"requests"`
	Ceiling  int           `json:"ceiling"`
	Reach    string        `json:"reach_error,omitempty"`
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, windowFlags(cmd))
	if err != nil {
		return err
	}

	req, err := buildRequest(cfg, time.Now())
	if err != nil {
		return err
	}

	var store *storage.Store
	if req.Mode == pipeline.ModeExtend {
		store, err = storage.Open(cfg.Storage.Directory, logger.GetLogger())
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer store.Close()
	}

	keywordSpec, sampleSpec, err := pipeline.BuildSpecs(store, req)
	if err != nil {
		return err
	}

	out := planOutput{
		Mode:     req.Mode,
		Start:    keywordSpec.Start,
		End:      keywordSpec.End,
		Rule:     keywordSpec.Rule,
		Sample:   sampleSpec.Rule,
		Keyword:  quota.Estimate(keywordSpec),
		Baseline: quota.Estimate(sampleSpec),
		Ceiling:  ratelimit.Ceiling(req.Elevated),
	}
	out.Requests = out.Keyword.RequestCount + out.Baseline.RequestCount
	if err := quota.CheckReach(keywordSpec, time.Now()); err != nil {
		out.Reach = err.Error()
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	printPlan(req.Mode, keywordSpec, out.Keyword, out.Baseline)
	ui.PrintInfo("Total", fmt.Sprintf("%d requests, about %d minutes",
		out.Requests, out.Keyword.EstimatedMinutes+out.Baseline.EstimatedMinutes))
	if out.Reach != "" {
		ui.PrintError("Out of reach", out.Reach)
	}
	return nil
}
