package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zombor/invoice-categorizer/internal/categorize"
)

// Recorder counts processed documents and classified lines. It satisfies
// invoice.Recorder.
type Recorder struct {
	documents *prometheus.CounterVec
	lines     *prometheus.CounterVec
}

// NewRecorder creates the counters and registers them with reg. Every
// category starts at zero so dashboards see all of them from the first scrape.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invoice_documents_processed_total",
			Help: "Total processed documents by outcome",
		}, []string{"outcome"}),
		lines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invoice_lines_classified_total",
			Help: "Total classified lines by category",
		}, []string{"category"}),
	}

	for _, c := range []prometheus.Collector{r.documents, r.lines} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
	}
	for _, cat := range categorize.Categories() {
		r.lines.WithLabelValues(cat.String())
	}
	return r, nil
}

// DocumentProcessed counts a document by outcome
func (r *Recorder) DocumentProcessed(outcome string) {
	r.documents.WithLabelValues(outcome).Inc()
}

// LineClassified counts a line by category
func (r *Recorder) LineClassified(category categorize.Category) {
	r.lines.WithLabelValues(category.String()).Inc()
}

// Handler serves the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
