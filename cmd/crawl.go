package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gaurav-prasanna/muniwatch/core"
	"github.com/gaurav-prasanna/muniwatch/core/output"
	"github.com/gaurav-prasanna/muniwatch/core/render"
	"github.com/gaurav-prasanna/muniwatch/pipeline"
)

var (
	flagCampaign    string
	flagPreset      string
	flagFormat      string
	flagOutputDir   string
	flagConcurrency int
	flagDeadline    time.Duration
	flagAnalyze     bool
	flagProvider    string
	flagAllDocs     bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl [site-url...]",
	Short: "Crawl the campaign's sites and write ranked reports",
	Long: `Crawl discovers the documents of each municipal site, extracts their
text, dates and scores them against the campaign, and writes one report per
site plus a JSON summary of the run.

Sites given as arguments replace the campaign's site list.

Examples:
  muniwatch crawl --campaign campagne.json
  muniwatch crawl --preset pompes_chaleur https://www.ville-riom.fr --format markdown
  muniwatch crawl --campaign campagne.json --analyze --provider groq --deadline 30m`,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().StringVar(&flagCampaign, "campaign", "", "Campaign JSON file")
	crawlCmd.Flags().StringVar(&flagPreset, "preset", "", "Built-in campaign preset, used when --campaign is not set")
	crawlCmd.Flags().StringVar(&flagFormat, "format", "", "Report format: json, markdown or pdf (default from config)")
	crawlCmd.Flags().StringVar(&flagOutputDir, "output_dir", "", "Output directory (default from config)")
	crawlCmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "Sites crawled at once (default from config)")
	crawlCmd.Flags().DurationVar(&flagDeadline, "deadline", 0, "Abort the run after this long, keeping partial results")
	crawlCmd.Flags().BoolVar(&flagAnalyze, "analyze", false, "Ask an AI provider to review pertinent documents")
	crawlCmd.Flags().StringVar(&flagProvider, "provider", "", "AI provider for --analyze (default from config)")
	crawlCmd.Flags().BoolVar(&flagAllDocs, "all-docs", false, "Keep non-pertinent documents in reports")
	crawlCmd.MarkFlagsMutuallyExclusive("campaign", "preset")
}

func runCrawl(cmd *cobra.Command, args []string) error {
	c, err := loadCampaign(flagCampaign, flagPreset)
	if err != nil {
		return err
	}

	sites := c.TargetSites()
	if len(args) > 0 {
		sites = make([]core.Site, 0, len(args))
		for _, a := range args {
			sites = append(sites, core.Site{URL: a})
		}
	}
	if len(sites) == 0 {
		return eris.New("cmd: no site to crawl (pass URLs or list sites in the campaign)")
	}

	format := firstNonEmpty(flagFormat, cfg.Output.Format)
	renderer, err := render.New(format)
	if err != nil {
		return err
	}
	writer, err := output.New(firstNonEmpty(flagOutputDir, cfg.Output.Dir))
	if err != nil {
		return err
	}

	st, err := buildStack(*c)
	if err != nil {
		return err
	}

	var reviewer pipeline.Reviewer
	if flagAnalyze {
		if reviewer, err = buildReviewer(*c, flagProvider); err != nil {
			return err
		}
		if reviewer == nil {
			return eris.New("cmd: --analyze needs a provider (--provider or analysis.provider)")
		}
	}

	concurrency := flagConcurrency
	if concurrency <= 0 {
		concurrency = cfg.Crawl.Concurrency
	}
	deadline := flagDeadline
	if deadline <= 0 {
		deadline = cfg.Crawl.Deadline
	}
	pertinentOnly := cfg.Output.PertinentOnly && !flagAllDocs

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var mu sync.Mutex
	onSite := func(report *core.SiteReport, crawlErr error) {
		out := *report
		if pertinentOnly {
			out = render.PertinentOnly(out)
		}
		data, err := renderer.Render(out)
		if err != nil {
			zap.L().Error("cmd: render report", zap.String("site", report.Site.URL), zap.Error(err))
			return
		}
		path, err := writer.WriteReport(report.Site.URL, report.GeneratedAt, data, renderer.Extension())

		mu.Lock()
		defer mu.Unlock()
		switch {
		case err != nil:
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", report.Site.Label(), err)
		case crawlErr != nil:
			fmt.Fprintf(os.Stderr, "✗ %s: %v (report: %s)\n", report.Site.Label(), crawlErr, path)
		default:
			d := report.Diagnostics
			fmt.Fprintf(os.Stdout, "✓ %s: %d pertinent / %d analysed, max score %d → %s\n",
				report.Site.Label(), d.Retained, d.Attempted, d.MaxScore, path)
		}
	}

	runner := pipeline.NewRunner(st.crawler, pipeline.RunnerOptions{
		Concurrency: concurrency,
		Deadline:    deadline,
		Reviewer:    reviewer,
		OnSite:      onSite,
	})
	run := runner.Run(ctx, c.Name, sites)

	if path, err := writer.WriteRun(run.ID, run); err != nil {
		zap.L().Error("cmd: write run summary", zap.Error(err))
	} else {
		fmt.Fprintf(os.Stdout, "Run %s: %d sites, %d pertinent documents, %d failures → %s\n",
			run.ID, len(run.Sites), run.Pertinent(), run.Failed(), path)
	}

	if cfg.Cache.Path != "" {
		if err := st.cache.Save(cfg.Cache.Path); err != nil {
			zap.L().Warn("cmd: save section cache", zap.Error(err))
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
