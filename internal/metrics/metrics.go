package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nao1215/sitecorpus/internal/model"
)

const namespace = "sitecorpus"

// Metrics holds the crawl collectors. It is safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	pages         *prometheus.CounterVec
	skips         *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	pageDuration  *prometheus.HistogramVec
	pageChars     *prometheus.HistogramVec
	runs          *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	corpusRecords *prometheus.GaugeVec
}

// New creates and registers the crawl collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Pages processed, by outcome.",
		}, []string{"site", "outcome"}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_skipped_total",
			Help:      "Pages that produced no record, by reason.",
		}, []string{"site", "reason"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_dropped_total",
			Help:      "Links dropped without a fetch, by reason.",
		}, []string{"site", "reason"}),
		pageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "page_duration_seconds",
			Help:      "Time spent fetching and extracting one page.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"site"}),
		pageChars: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "page_content_characters",
			Help:      "Cleaned content length of extracted pages.",
			Buckets:   prometheus.ExponentialBuckets(100, 2, 10),
		}, []string{"site"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Crawl runs, by final status.",
		}, []string{"site", "status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a crawl run.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"site"}),
		corpusRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "corpus_records",
			Help:      "Records written by the last completed run.",
		}, []string{"site"}),
	}

	m.registry.MustRegister(
		m.pages,
		m.skips,
		m.dropped,
		m.pageDuration,
		m.pageChars,
		m.runs,
		m.runDuration,
		m.corpusRecords,
	)

	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ForSite returns an observer that records page outcomes for site.
func (m *Metrics) ForSite(site string) *SiteObserver {
	return &SiteObserver{metrics: m, site: site}
}

// ObservePage records one page outcome.
func (m *Metrics) ObservePage(site string, o model.PageOutcome) {
	m.pages.WithLabelValues(site, o.Kind.String()).Inc()
	m.pageDuration.WithLabelValues(site).Observe(o.Duration.Seconds())

	switch o.Kind {
	case model.OutcomeSkipped:
		m.skips.WithLabelValues(site, string(o.Reason)).Inc()
	case model.OutcomeExtracted:
		if o.Record != nil {
			m.pageChars.WithLabelValues(site).Observe(float64(o.Record.Length()))
		}
	}
}

// ObserveRun records the end of a run.
func (m *Metrics) ObserveRun(run *model.CrawlRun) {
	m.runs.WithLabelValues(run.Site, string(run.Status)).Inc()
	m.runDuration.WithLabelValues(run.Site).Observe(run.Duration().Seconds())

	m.dropped.WithLabelValues(run.Site, "visited").Add(float64(run.Stats.DroppedVisited))
	m.dropped.WithLabelValues(run.Site, "depth").Add(float64(run.Stats.DroppedDepth))
	m.dropped.WithLabelValues(run.Site, "filtered").Add(float64(run.Stats.DroppedFiltered))

	if run.Status == model.RunCompleted {
		m.corpusRecords.WithLabelValues(run.Site).Set(float64(len(run.Records)))
	}
}

// WriteTextfile writes all metrics to path in the text exposition format.
// The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}

// SiteObserver feeds the page outcomes of one site into Metrics.
type SiteObserver struct {
	metrics *Metrics
	site    string
}

// Observe records one page outcome.
func (o *SiteObserver) Observe(outcome model.PageOutcome) {
	o.metrics.ObservePage(o.site, outcome)
}
