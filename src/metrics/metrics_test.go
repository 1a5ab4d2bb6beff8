package metrics

import (
	"testing"

	"github.com/mosaicnetworks/causal/src/clock"
	"github.com/mosaicnetworks/causal/src/envelope"
	"github.com/mosaicnetworks/causal/src/node"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(envelope.BSS)

	if err := c.Register(reg); err != nil {
		t.Fatal(err)
	}
	// registering twice is tolerated
	if err := c.Register(reg); err != nil {
		t.Fatal(err)
	}

	var o node.Observer = c

	env := envelope.New(0, 1, envelope.Broadcast, nil, envelope.NewVectorMetadata(clock.VectorClock{1, 0, 0}))
	o.Sent(0, 1, []*envelope.Envelope{env})
	o.Buffered(2, env)
	o.BufferResized(2, 1)
	o.Discarded(2, env, node.Duplicate)
	o.Discarded(2, env, node.Malformed)
	o.Delivered(&envelope.Delivery{Receiver: 2, Sender: 0, Seq: 1})
	o.BufferResized(2, 0)

	if v := testutil.ToFloat64(c.SentTotal.WithLabelValues("0")); v != 1 {
		t.Fatalf("sent should be 1, not %v", v)
	}
	if v := testutil.ToFloat64(c.DeliveredTotal.WithLabelValues("2")); v != 1 {
		t.Fatalf("delivered should be 1, not %v", v)
	}
	if v := testutil.ToFloat64(c.BufferedTotal.WithLabelValues("2")); v != 1 {
		t.Fatalf("buffered should be 1, not %v", v)
	}
	if v := testutil.ToFloat64(c.DuplicatesTotal.WithLabelValues("2")); v != 1 {
		t.Fatalf("duplicates should be 1, not %v", v)
	}
	if v := testutil.ToFloat64(c.MalformedTotal.WithLabelValues("2")); v != 1 {
		t.Fatalf("malformed should be 1, not %v", v)
	}
	if v := testutil.ToFloat64(c.BufferSize.WithLabelValues("2")); v != 0 {
		t.Fatalf("buffer size should be 0, not %v", v)
	}

	if n := testutil.CollectAndCount(c.MetadataEntries); n != 1 {
		t.Fatalf("metadata histogram should have 1 series, not %d", n)
	}
}
