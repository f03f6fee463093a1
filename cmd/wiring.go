package cmd

import (
	"github.com/rotisserie/eris"

	"github.com/gaurav-prasanna/muniwatch/analysis"
	"github.com/gaurav-prasanna/muniwatch/core"
	"github.com/gaurav-prasanna/muniwatch/core/campaign"
	"github.com/gaurav-prasanna/muniwatch/core/extract"
	"github.com/gaurav-prasanna/muniwatch/core/fetch"
	"github.com/gaurav-prasanna/muniwatch/crawl"
	"github.com/gaurav-prasanna/muniwatch/internal/resilience"
	"github.com/gaurav-prasanna/muniwatch/pipeline"
)

// stack is the wired pipeline for one campaign.
type stack struct {
	fetcher *fetch.PoliteFetcher
	cache   *crawl.SectionCache
	crawler *pipeline.SiteCrawler
}

// loadCampaign reads the campaign file, or the named preset, or the
// built-in default.
func loadCampaign(path, preset string) (*campaign.Campaign, error) {
	switch {
	case path != "":
		return campaign.Load(path)
	case preset != "":
		c, ok := campaign.Preset(preset)
		if !ok {
			return nil, eris.Errorf("cmd: unknown preset %q (available: %v)", preset, campaign.PresetNames())
		}
		return &c, nil
	default:
		c := campaign.Default()
		return &c, nil
	}
}

func buildStack(c campaign.Campaign) (*stack, error) {
	httpFetcher := fetch.New(fetch.Options{
		UserAgent:    cfg.Crawl.UserAgent,
		Timeout:      c.Scraping.Timeout(),
		MaxBodyBytes: int64(cfg.Extract.MaxBodyMBytes) << 20,
	})

	var robots *fetch.RobotsChecker
	if cfg.Crawl.RespectRobots {
		robots = fetch.NewRobotsChecker(httpFetcher.Client(), httpFetcher.UserAgent())
	}
	polite := fetch.NewPolite(httpFetcher, c.Scraping.RequestDelay(), robots)

	cache, err := crawl.LoadSectionCache(cfg.Cache.Path)
	if err != nil {
		return nil, err
	}

	nav := crawl.NewNavigator(polite, cache, crawl.Options{
		MaxSections:    cfg.Crawl.MaxSections,
		MaxSubsections: cfg.Crawl.MaxSubsections,
		MaxCandidates:  cfg.Crawl.MaxCandidates,
		ProbeDefaults:  cfg.Crawl.ProbeDefaultSections,
	})

	crawler := pipeline.NewSiteCrawler(c, pipeline.Deps{
		Navigator: nav,
		Extractor: buildExtractor(polite),
		Fetcher:   polite,
		Robots:    polite,
		Cache:     cache,
	}, pipeline.Options{UseLastModified: cfg.Crawl.UseLastModified})

	return &stack{fetcher: polite, cache: cache, crawler: crawler}, nil
}

func buildExtractor(f core.Fetcher) *extract.Extractor {
	ec := cfg.Extract
	pdf := &extract.PDFExtractor{
		Primary:   extract.TextLayer{},
		Secondary: extract.NewPdfToText(ec.PdfToTextBin),
		MinChars:  ec.MinChars,
	}
	if !ec.DisableOCR {
		pdf.OCR = extract.NewOCR(extract.OCROptions{
			PdfToPPMBin:  ec.PdfToPPMBin,
			TesseractBin: ec.TesseractBin,
			DPI:          ec.OCRDPI,
			Languages:    ec.OCRLanguages,
			MaxPages:     ec.OCRMaxPages,
			Contrast:     ec.OCRContrast,
			Sharpen:      ec.OCRSharpen,
		})
	}
	return extract.New(f, extract.NewHTML(nil, ec.MinChars), pdf, extract.Options{
		MinChars: ec.MinChars,
		MaxChars: ec.MaxTextChars,
	})
}

// buildReviewer returns nil when no provider is configured.
func buildReviewer(c campaign.Campaign, provider string) (pipeline.Reviewer, error) {
	ac := cfg.Analysis
	if provider == "" {
		provider = ac.Provider
	}
	if provider == "" {
		return nil, nil
	}

	retry := resilience.DefaultRetryConfig()
	if ac.MaxAttempts > 0 {
		retry.MaxAttempts = ac.MaxAttempts
	}
	if ac.InitialBackoff > 0 {
		retry.InitialBackoff = ac.InitialBackoff
	}

	a, err := analysis.New(analysis.Config{
		Provider: provider,
		Model:    ac.Model,
		APIKey:   ac.APIKey,
		BaseURL:  ac.BaseURL,
		Retry:    retry,
	})
	if err != nil {
		return nil, err
	}
	return analysis.NewReviewer(a, c.AIScoreThreshold, ac.MaxChars), nil
}
