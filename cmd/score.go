package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/muniwatch/core"
	"github.com/gaurav-prasanna/muniwatch/core/fetch"
	"github.com/gaurav-prasanna/muniwatch/pipeline"
)

var flagSource string

var scoreCmd = &cobra.Command{
	Use:   "score <file-or-url>",
	Short: "Extract and score a single document against the campaign",
	Long: `Score runs one document through extraction, date inference, keyword
scoring and weak-signal classification, and prints the ranked result as JSON.

Examples:
  muniwatch score ./deliberation-2026-03.pdf --preset chaufferies_biomasse
  muniwatch score https://www.ville.fr/conseil-municipal/pv-mars --source deliberation`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringVar(&flagCampaign, "campaign", "", "Campaign JSON file")
	scoreCmd.Flags().StringVar(&flagPreset, "preset", "", "Built-in campaign preset, used when --campaign is not set")
	scoreCmd.Flags().StringVar(&flagSource, "source", string(core.SourceGenerique),
		"Source type: rss, deliberation, actualites, bulletin, budget or generique")
}

func runScore(cmd *cobra.Command, args []string) error {
	target := args[0]
	source, ok := core.ParseSourceType(flagSource)
	if !ok {
		return eris.Errorf("cmd: unknown --source %q", flagSource)
	}
	c, err := loadCampaign(flagCampaign, flagPreset)
	if err != nil {
		return err
	}

	var f core.Fetcher
	if isURL(target) {
		f = fetch.New(fetch.Options{UserAgent: cfg.Crawl.UserAgent, Timeout: c.Scraping.Timeout()})
	} else {
		f = fileFetcher{}
	}

	cand := core.Candidate{
		URL:        target,
		Source:     source,
		FileName:   filepath.Base(target),
		IsDocument: true,
	}
	if isURL(target) {
		cand.FileName = ""
	}

	doc, err := buildExtractor(f).Extract(cmd.Context(), cand, target)
	if err != nil {
		return err
	}

	crawler := pipeline.NewSiteCrawler(*c, pipeline.Deps{}, pipeline.Options{})
	ranked := crawler.Score(cand, doc)

	data, err := json.MarshalIndent(ranked, "", "  ")
	if err != nil {
		return eris.Wrap(err, "cmd: marshal result")
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// fileFetcher serves local files to the extractor.
type fileFetcher struct{}

func (fileFetcher) Fetch(_ context.Context, path string) (*core.FetchResult, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "cmd: read %s", path)
	}
	return &core.FetchResult{URL: path, StatusCode: http.StatusOK, Header: http.Header{}, Body: body}, nil
}

func (fileFetcher) Head(_ context.Context, path string) (*core.FetchResult, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, eris.Wrapf(err, "cmd: stat %s", path)
	}
	return &core.FetchResult{URL: path, StatusCode: http.StatusOK, Header: http.Header{}}, nil
}
