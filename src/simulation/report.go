package simulation

import (
	"fmt"
	"strings"
	"time"

	"github.com/mosaicnetworks/causal/src/node"
)

// Report summarises a simulation run.
type Report struct {
	Algorithm  string        `json:"algorithm"`
	Processes  int           `json:"processes"`
	Seed       int64         `json:"seed"`
	Messages   int           `json:"messages"`
	Envelopes  uint64        `json:"envelopes"`
	Deliveries uint64        `json:"deliveries"`
	Buffered   uint64        `json:"buffered"`
	MaxBuffer  int           `json:"max_buffer"`
	Entries    uint64        `json:"metadata_entries"`
	Elapsed    time.Duration `json:"elapsed"`
	Stats      []node.Stats  `json:"stats"`
}

// EntriesPerEnvelope is the average size of the envelope metadata.
func (r *Report) EntriesPerEnvelope() float64 {
	if r.Envelopes == 0 {
		return 0
	}
	return float64(r.Entries) / float64(r.Envelopes)
}

func (r *Report) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "algorithm:       %s\n", r.Algorithm)
	fmt.Fprintf(&b, "processes:       %d\n", r.Processes)
	fmt.Fprintf(&b, "seed:            %d\n", r.Seed)
	fmt.Fprintf(&b, "messages:        %d\n", r.Messages)
	fmt.Fprintf(&b, "envelopes:       %d\n", r.Envelopes)
	fmt.Fprintf(&b, "deliveries:      %d\n", r.Deliveries)
	fmt.Fprintf(&b, "buffered:        %d\n", r.Buffered)
	fmt.Fprintf(&b, "max buffer:      %d\n", r.MaxBuffer)
	fmt.Fprintf(&b, "entries/env:     %.2f\n", r.EntriesPerEnvelope())
	fmt.Fprintf(&b, "elapsed:         %v\n", r.Elapsed)

	return b.String()
}

func (s *Simulation) report(elapsed time.Duration) *Report {
	r := &Report{
		Algorithm: s.algorithm.String(),
		Processes: s.conf.Processes,
		Seed:      s.conf.Seed,
		Messages:  s.recorder.Messages(),
		Elapsed:   elapsed,
	}

	for _, p := range s.procs {
		stats := p.Stats()

		r.Envelopes += stats.Envelopes
		r.Deliveries += stats.Delivered
		r.Buffered += stats.Buffered
		r.Entries += stats.MetadataEntries
		if stats.MaxBuffer > r.MaxBuffer {
			r.MaxBuffer = stats.MaxBuffer
		}

		r.Stats = append(r.Stats, stats)
	}

	return r
}

// Report returns the summary of the activity so far.
func (s *Simulation) Report() *Report {
	return s.report(0)
}
