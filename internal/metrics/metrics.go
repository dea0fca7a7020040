package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the domain counters exposed on /metrics.
type Metrics struct {
	DocumentsIngested prometheus.Counter
	IngestFailures    *prometheus.CounterVec
	BlobsReclaimed    prometheus.Counter
	InconsistentReads prometheus.Counter
}

// New registers the domain counters against the provided registry.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		DocumentsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "documents_ingested_total",
			Help: "Documents successfully ingested and made available.",
		}),
		IngestFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "document_ingest_failures_total",
			Help: "Ingestion failures by stage.",
		}, []string{"stage"}),
		BlobsReclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orphan_blobs_reclaimed_total",
			Help: "Blobs removed by the reconciliation sweep.",
		}),
		InconsistentReads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "document_inconsistent_reads_total",
			Help: "Reads that found a metadata row pointing at missing bytes.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.DocumentsIngested, m.IngestFailures, m.BlobsReclaimed, m.InconsistentReads,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// NewUnregistered returns counters bound to a throwaway registry, for tests
// and for constructing services without a live registry.
func NewUnregistered() *Metrics {
	m, _ := New(prometheus.NewRegistry())
	return m
}
