// Package campaign loads and validates the campaign configuration that
// drives a crawl: keyword taxonomy, thresholds, temporal window and
// weak-signal settings.
package campaign

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"

	"github.com/gaurav-prasanna/muniwatch/core"
)

// DefaultWindowDays applies when a campaign does not set windowDays.
const DefaultWindowDays = 365

// Campaign is an immutable per-run snapshot of the campaign settings.
type Campaign struct {
	Name             string             `json:"name" mapstructure:"name"`
	Description      string             `json:"description,omitempty" mapstructure:"description"`
	Keywords         Keywords           `json:"keywords" mapstructure:"keywords"`
	Zones            Zones              `json:"zones" mapstructure:"zones"`
	Scraping         ScrapingParameters `json:"scrapingParameters" mapstructure:"scrapingParameters"`
	AIScoreThreshold int                `json:"aiScoreThreshold" mapstructure:"aiScoreThreshold"`
	WindowDays       int                `json:"windowDays" mapstructure:"windowDays"`
	Signals          SignalToggles      `json:"signals" mapstructure:"signals"`
	SignalPhrases    SignalPhrases      `json:"signalPhrases" mapstructure:"signalPhrases"`
	MaturityFloor    core.Maturity      `json:"maturityFloor" mapstructure:"maturityFloor"`
	Sites            []core.Site        `json:"sites,omitempty" mapstructure:"sites"`
}

// Keywords are the three weighted phrase sets, in priority order.
type Keywords struct {
	Priority  []string `json:"priority" mapstructure:"priority"`
	Secondary []string `json:"secondary" mapstructure:"secondary"`
	Budget    []string `json:"budget" mapstructure:"budget"`
}

// Zones restricts which sites of a campaign are crawled.
type Zones struct {
	Departments   []string `json:"departments" mapstructure:"departments"`
	PopulationMin int      `json:"populationMin,omitempty" mapstructure:"populationMin"`
	PopulationMax int      `json:"populationMax,omitempty" mapstructure:"populationMax"`
}

// ScrapingParameters are the politeness and scoring knobs.
type ScrapingParameters struct {
	RequestDelaySeconds float64 `json:"requestDelaySeconds" mapstructure:"requestDelaySeconds"`
	TimeoutSeconds      float64 `json:"timeoutSeconds" mapstructure:"timeoutSeconds"`
	MinConfidence       int     `json:"minConfidence" mapstructure:"minConfidence"`
	Depth               string  `json:"depth,omitempty" mapstructure:"depth"`
}

// RequestDelay is the minimum delay between two requests to one origin.
func (p ScrapingParameters) RequestDelay() time.Duration {
	return time.Duration(p.RequestDelaySeconds * float64(time.Second))
}

// Timeout is the per-request timeout.
func (p ScrapingParameters) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds * float64(time.Second))
}

// SignalToggles switch weak-signal categories on or off.
type SignalToggles struct {
	Budgetary    bool `json:"budgetary" mapstructure:"budgetary"`
	Reflection   bool `json:"reflection" mapstructure:"reflection"`
	Consultation bool `json:"consultation" mapstructure:"consultation"`
}

// SignalPhrases override the built-in weak-signal phrase lists. A nil
// list keeps the default for that category.
type SignalPhrases struct {
	Budgetary    []string `json:"budgetary,omitempty" mapstructure:"budgetary"`
	Reflection   []string `json:"reflection,omitempty" mapstructure:"reflection"`
	Consultation []string `json:"consultation,omitempty" mapstructure:"consultation"`
}

// Threshold is the minimum relevance score for pertinence.
func (c Campaign) Threshold() int { return c.Scraping.MinConfidence }

// TargetSites returns the campaign sites inside the configured zones.
// Sites without a department, or campaigns without departments, always pass.
func (c Campaign) TargetSites() []core.Site {
	if len(c.Zones.Departments) == 0 {
		return c.Sites
	}
	out := make([]core.Site, 0, len(c.Sites))
	for _, s := range c.Sites {
		if s.Department == "" || slices.Contains(c.Zones.Departments, s.Department) {
			out = append(out, s)
		}
	}
	return out
}

// ConfigurationError reports a malformed or missing campaign field.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("campaign: field %q: %s", e.Field, e.Reason)
}

// IsConfigurationError reports whether err carries a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// requiredFields must be present in every campaign document.
var requiredFields = []string{
	"name",
	"keywords",
	"keywords.priority",
	"keywords.secondary",
	"keywords.budget",
	"zones",
	"scrapingParameters",
	"scrapingParameters.requestDelaySeconds",
	"scrapingParameters.timeoutSeconds",
	"scrapingParameters.minConfidence",
	"aiScoreThreshold",
}

// Load reads and validates a campaign JSON file.
func Load(path string) (*Campaign, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "campaign: read %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a campaign JSON document.
func Parse(data []byte) (*Campaign, error) {
	v := viper.New()
	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, &ConfigurationError{Field: "$", Reason: "invalid JSON: " + err.Error()}
	}

	for _, field := range requiredFields {
		if !v.IsSet(field) {
			return nil, &ConfigurationError{Field: field, Reason: "required field missing"}
		}
	}

	v.SetDefault("windowDays", DefaultWindowDays)
	v.SetDefault("signals.budgetary", true)
	v.SetDefault("signals.reflection", true)
	v.SetDefault("signals.consultation", true)
	v.SetDefault("maturityFloor", string(core.MaturityReflexion))

	var c Campaign
	if err := v.Unmarshal(&c); err != nil {
		return nil, &ConfigurationError{Field: "$", Reason: err.Error()}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the invariants a crawl relies on.
func (c *Campaign) Validate() error {
	if c.Name == "" {
		return &ConfigurationError{Field: "name", Reason: "must not be empty"}
	}
	if c.Scraping.MinConfidence < 0 {
		return &ConfigurationError{Field: "scrapingParameters.minConfidence", Reason: "must be non-negative"}
	}
	if c.WindowDays <= 0 {
		return &ConfigurationError{Field: "windowDays", Reason: "must be positive"}
	}
	if c.Scraping.RequestDelaySeconds < 0 {
		return &ConfigurationError{Field: "scrapingParameters.requestDelaySeconds", Reason: "must be non-negative"}
	}
	if c.Scraping.TimeoutSeconds < 0 {
		return &ConfigurationError{Field: "scrapingParameters.timeoutSeconds", Reason: "must be non-negative"}
	}
	floor, ok := core.ParseMaturity(string(c.MaturityFloor))
	if !ok {
		return &ConfigurationError{Field: "maturityFloor", Reason: fmt.Sprintf("unknown maturity %q", c.MaturityFloor)}
	}
	c.MaturityFloor = floor
	return nil
}

// Save writes the campaign as indented JSON.
func Save(path string, c Campaign) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return eris.Wrap(err, "campaign: marshal")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "campaign: write %s", path)
	}
	return nil
}
