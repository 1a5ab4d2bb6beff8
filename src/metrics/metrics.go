// Package metrics exposes the activity of causal processes as Prometheus
// metrics.
package metrics

import (
	"strconv"

	"github.com/mosaicnetworks/causal/src/envelope"
	"github.com/mosaicnetworks/causal/src/node"
	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements node.Observer and records the signals of one or more
// processes running the same algorithm. Series are labelled by process ID.
type Collector struct {
	algorithm string

	SentTotal       *prometheus.CounterVec
	DeliveredTotal  *prometheus.CounterVec
	BufferedTotal   *prometheus.CounterVec
	DuplicatesTotal *prometheus.CounterVec
	MalformedTotal  *prometheus.CounterVec
	BufferSize      *prometheus.GaugeVec
	MetadataEntries *prometheus.HistogramVec
}

// NewCollector creates the metrics of processes running algo.
func NewCollector(algo envelope.Algorithm) *Collector {
	labels := prometheus.Labels{"algorithm": algo.String()}

	return &Collector{
		algorithm: algo.String(),
		SentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "causal_sent_total",
			Help:        "Messages sent",
			ConstLabels: labels,
		}, []string{"process"}),
		DeliveredTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "causal_delivered_total",
			Help:        "Messages delivered to the application",
			ConstLabels: labels,
		}, []string{"process"}),
		BufferedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "causal_buffered_total",
			Help:        "Envelopes received before their causal predecessors",
			ConstLabels: labels,
		}, []string{"process"}),
		DuplicatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "causal_duplicates_total",
			Help:        "Envelopes discarded because they were already delivered or buffered",
			ConstLabels: labels,
		}, []string{"process"}),
		MalformedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "causal_malformed_total",
			Help:        "Envelopes rejected because of inconsistent metadata",
			ConstLabels: labels,
		}, []string{"process"}),
		BufferSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "causal_buffer_size",
			Help:        "Envelopes currently waiting in the delivery buffer",
			ConstLabels: labels,
		}, []string{"process"}),
		MetadataEntries: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "causal_envelope_metadata_entries",
			Help:        "Counters attached to each outgoing envelope",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"process"}),
	}
}

// Register registers the metrics on the given registry (or default if nil).
func (c *Collector) Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, col := range c.collectors() {
		if err := reg.Register(col); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.SentTotal,
		c.DeliveredTotal,
		c.BufferedTotal,
		c.DuplicatesTotal,
		c.MalformedTotal,
		c.BufferSize,
		c.MetadataEntries,
	}
}

func label(p int) string {
	return strconv.Itoa(p)
}

// Sent implements node.Observer
func (c *Collector) Sent(p int, seq uint64, envs []*envelope.Envelope) {
	c.SentTotal.WithLabelValues(label(p)).Inc()
	for _, env := range envs {
		c.MetadataEntries.WithLabelValues(label(p)).Observe(float64(env.Metadata.Entries()))
	}
}

// Delivered implements node.Observer
func (c *Collector) Delivered(d *envelope.Delivery) {
	c.DeliveredTotal.WithLabelValues(label(d.Receiver)).Inc()
}

// Buffered implements node.Observer
func (c *Collector) Buffered(p int, env *envelope.Envelope) {
	c.BufferedTotal.WithLabelValues(label(p)).Inc()
}

// Discarded implements node.Observer
func (c *Collector) Discarded(p int, env *envelope.Envelope, reason node.DiscardReason) {
	switch reason {
	case node.Duplicate:
		c.DuplicatesTotal.WithLabelValues(label(p)).Inc()
	case node.Malformed:
		c.MalformedTotal.WithLabelValues(label(p)).Inc()
	}
}

// BufferResized implements node.Observer
func (c *Collector) BufferResized(p int, size int) {
	c.BufferSize.WithLabelValues(label(p)).Set(float64(size))
}
