// Package analyzer identifies the heaviest elements contributing to an HTML
// page's file size. The primary detectors cover inline content that bloats
// the document itself (inline scripts, styles, SVGs, base64 data URIs,
// JSON-LD blocks, large DOM subtrees); the secondary detectors catalog
// external resource references for completeness.
package analyzer

import (
	"log/slog"

	"github.com/htmlephant/htmlephant/internal/htmldoc"
	"github.com/htmlephant/htmlephant/internal/model"
)

// Minimum sizes in bytes before an element counts as heavy.
const (
	minInlineScriptBytes     = 500
	minInlineStyleBytes      = 500
	minSVGBytes              = 1000
	minDataURIBytes          = 500
	minJSONLDBytes           = 500
	minDOMSubtreeDescendants = 100
	minHiddenContentBytes    = 2000
	minCommentBytes          = 1000
	minNoscriptBytes         = 2000
	minStyleAttributeBytes   = 3000
)

// Detector inspects a parsed page for one category of heavy element.
// Detectors are pure: same document in, same findings out, no I/O.
//
// Design decision: We use an interface rather than concrete types because:
//  1. Allows for easy extension with new detectors
//  2. Enables testing each detector in isolation
//  3. The page analyzer stays a dumb loop over registered detectors
type Detector interface {
	// Name returns the detector's name for logging.
	Name() string

	// Detect inspects the document and returns findings. pageURL is only
	// used to populate the pages_found_on field of each finding.
	Detect(doc *htmldoc.Document, pageURL string) []model.Finding
}

// Analyzer runs all registered detectors over a page and assembles the
// results into a PageAnalysis.
type Analyzer struct {
	primary   []Detector
	secondary []Detector
	options   Options
	logger    *slog.Logger
}

// Options configures analyzer behavior.
type Options struct {
	// IncludeSecondary controls whether external-resource detectors run.
	// Secondary findings add little to the HTML file size but catalog
	// what the page loads.
	IncludeSecondary bool

	// Logger receives per-detector debug output. Defaults to slog.Default.
	Logger *slog.Logger
}

// DefaultOptions returns the default analyzer options.
func DefaultOptions() Options {
	return Options{IncludeSecondary: true}
}

// WithoutSecondary disables the external-resource detectors.
func WithoutSecondary() func(*Options) {
	return func(o *Options) { o.IncludeSecondary = false }
}

// WithLogger sets the logger used for per-detector debug output.
func WithLogger(logger *slog.Logger) func(*Options) {
	return func(o *Options) { o.Logger = logger }
}

// New creates an Analyzer with all built-in detectors registered. Detector
// order is fixed so that repeated analysis of the same page produces
// identical output.
func New(opts ...func(*Options)) *Analyzer {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	a := &Analyzer{
		options: options,
		logger:  logger,
	}

	// Primary detectors: inline content contributing to file size.
	a.primary = []Detector{
		&inlineScriptDetector{},
		&inlineStyleDetector{},
		&inlineSVGDetector{},
		&dataURIDetector{},
		&domSubtreeDetector{},
		&hiddenContentDetector{},
		&commentDetector{},
		&noscriptDetector{},
		&styleAttributeDetector{},
	}

	// Secondary detectors: external resource references.
	a.secondary = []Detector{
		&externalScriptDetector{},
		&externalStylesheetDetector{},
		&imageDetector{},
		&iframeDetector{},
	}

	return a
}

// Analyze performs a complete weight analysis of a single HTML page. The
// returned findings are sorted by size descending; ties keep detector order.
func (a *Analyzer) Analyze(pageURL, rawHTML string) (*model.PageAnalysis, error) {
	doc, err := htmldoc.Parse(rawHTML)
	if err != nil {
		return nil, err
	}

	var findings []model.Finding
	for _, d := range a.primary {
		found := d.Detect(doc, pageURL)
		a.logger.Debug("detector finished", "detector", d.Name(), "findings", len(found))
		findings = append(findings, found...)
	}
	if a.options.IncludeSecondary {
		for _, d := range a.secondary {
			found := d.Detect(doc, pageURL)
			a.logger.Debug("detector finished", "detector", d.Name(), "findings", len(found))
			findings = append(findings, found...)
		}
	}

	model.SortBySizeDesc(findings)

	return &model.PageAnalysis{
		URL:            pageURL,
		TotalHTMLBytes: doc.Size(),
		Findings:       findings,
	}, nil
}

// percentOf returns size as a percentage of total, 0 when total is 0.
func percentOf(size, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(size) / float64(total) * 100
}
