package simulation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mosaicnetworks/causal/src/causal"
	"github.com/mosaicnetworks/causal/src/clock"
	"github.com/mosaicnetworks/causal/src/config"
	"github.com/mosaicnetworks/causal/src/envelope"
	"github.com/mosaicnetworks/causal/src/node"
	"github.com/sirupsen/logrus"
)

func newTestSimulation(t *testing.T, algo envelope.Algorithm, n int, seed int64, maxDelay int) *Simulation {
	conf := config.NewTestConfig(t, logrus.WarnLevel)
	conf.Algorithm = algo.String()
	conf.Processes = n
	conf.Messages = 15
	conf.Seed = seed
	conf.MaxDelay = maxDelay

	sim, err := New(conf)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(sim.Stop)

	return sim
}

func TestSimulationRun(t *testing.T) {
	for _, algo := range envelope.Algorithms() {
		for _, seed := range []int64{1, 2, 3} {
			for _, maxDelay := range []int{0, 4} {
				name := fmt.Sprintf("%s/seed-%d/delay-%d", algo, seed, maxDelay)
				t.Run(name, func(t *testing.T) {
					sim := newTestSimulation(t, algo, 4, seed, maxDelay)

					ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
					defer cancel()

					report, err := sim.Run(ctx)
					if err != nil {
						t.Fatal(err)
					}

					if report.Messages != 4*15 {
						t.Fatalf("60 messages should have been sent, not %d", report.Messages)
					}
					if report.Deliveries != 4*15*3 {
						t.Fatalf("180 deliveries expected, not %d", report.Deliveries)
					}
					for _, p := range sim.Processes() {
						if l := p.BufferLen(); l != 0 {
							t.Fatalf("process %d should have an empty buffer, not %d", p.ID(), l)
						}
					}
				})
			}
		}
	}
}

func TestSimulationMetadataSize(t *testing.T) {
	entries := map[envelope.Algorithm]float64{}

	for _, algo := range envelope.Algorithms() {
		sim := newTestSimulation(t, algo, 4, 1, 0)
		for r := 0; r < 5; r++ {
			if err := sim.Round(); err != nil {
				t.Fatal(err)
			}
		}
		if err := sim.Check(); err != nil {
			t.Fatal(err)
		}
		entries[algo] = sim.Report().EntriesPerEnvelope()
	}

	if entries[envelope.BSS] != 4 {
		t.Fatalf("BSS envelopes should carry 4 entries, not %v", entries[envelope.BSS])
	}
	if entries[envelope.Matrix] != 16 {
		t.Fatalf("Matrix envelopes should carry 16 entries, not %v", entries[envelope.Matrix])
	}
	if entries[envelope.SES] >= entries[envelope.BSS] {
		t.Fatalf("SES envelopes should be smaller than BSS ones, got %v", entries[envelope.SES])
	}
}

func TestSimulationRoundFrontier(t *testing.T) {
	sim := newTestSimulation(t, envelope.Matrix, 3, 7, 0)

	rounds := 4
	for r := 0; r < rounds; r++ {
		if err := sim.Round(); err != nil {
			t.Fatal(err)
		}
	}
	if err := sim.Check(); err != nil {
		t.Fatal(err)
	}

	for _, p := range sim.Processes() {
		if v := p.Clock(); v.String() != "[4 4 4]" {
			t.Fatalf("process %d clock should be [4 4 4], not %v", p.ID(), v)
		}
	}

	mfs, err := sim.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	if len(mfs) == 0 {
		t.Fatalf("the simulation registry should expose metrics")
	}
}

func TestSimulationStop(t *testing.T) {
	sim := newTestSimulation(t, envelope.SES, 3, 1, 0)

	sim.Stop()
	sim.Stop()

	for _, p := range sim.Processes() {
		if p.State() != node.Stopped {
			t.Fatalf("process %d should be Stopped, not %v", p.ID(), p.State())
		}
	}

	if err := sim.Round(); !causal.IsErr(err, causal.ErrStopped) {
		t.Fatalf("a round after Stop should fail, not %v", err)
	}
}

func TestNewSimulationErrors(t *testing.T) {
	conf := config.NewTestConfig(t, logrus.WarnLevel)
	conf.Algorithm = "lamport"
	if _, err := New(conf); err == nil {
		t.Fatalf("an unknown algorithm should be rejected")
	}

	conf = config.NewTestConfig(t, logrus.WarnLevel)
	conf.Processes = 0
	if _, err := New(conf); err == nil {
		t.Fatalf("an empty group should be rejected")
	}
}

func TestRecorderCheck(t *testing.T) {
	broadcast := func(p int, seq uint64) []*envelope.Envelope {
		return []*envelope.Envelope{{Sender: p, Seq: seq, Dest: envelope.Broadcast}}
	}
	deliver := func(r *Recorder, receiver, sender int, seq uint64) {
		r.Delivered(&envelope.Delivery{Receiver: receiver, Sender: sender, Seq: seq})
	}

	// P0 sends m1, P1 delivers it and sends m2, P2 delivers both in order
	r := NewRecorder(3)
	r.Sent(0, 1, broadcast(0, 1))
	deliver(r, 1, 0, 1)
	r.Sent(1, 1, broadcast(1, 1))
	deliver(r, 2, 0, 1)
	deliver(r, 2, 1, 1)
	deliver(r, 0, 1, 1)
	if err := r.Check(); err != nil {
		t.Fatalf("a causal run should pass the check: %v", err)
	}

	stamp, ok := r.Stamp(envelope.ID{Sender: 1, Seq: 1})
	if !ok || stamp.Compare(clock.VectorClock{1, 1, 0}) != clock.Equal {
		t.Fatalf("m2 should be stamped [1 1 0], not %v", stamp)
	}

	// same run, but P2 delivers m2 before m1
	r = NewRecorder(3)
	r.Sent(0, 1, broadcast(0, 1))
	deliver(r, 1, 0, 1)
	r.Sent(1, 1, broadcast(1, 1))
	deliver(r, 2, 1, 1)
	deliver(r, 2, 0, 1)
	deliver(r, 0, 1, 1)
	if err := r.Check(); err == nil {
		t.Fatalf("a causal violation should be reported")
	}

	// FIFO violation and missing delivery
	r = NewRecorder(2)
	r.Sent(0, 1, broadcast(0, 1))
	r.Sent(0, 2, broadcast(0, 2))
	deliver(r, 1, 0, 2)
	if err := r.Check(); err == nil {
		t.Fatalf("a missing delivery should be reported")
	}
	deliver(r, 1, 0, 1)
	if err := r.Check(); err == nil {
		t.Fatalf("a FIFO violation should be reported")
	}

	// duplicate
	r = NewRecorder(2)
	r.Sent(0, 1, broadcast(0, 1))
	deliver(r, 1, 0, 1)
	deliver(r, 1, 0, 1)
	if err := r.Check(); err == nil {
		t.Fatalf("a duplicate delivery should be reported")
	}

	// selective send
	r = NewRecorder(3)
	r.Sent(0, 1, []*envelope.Envelope{{Sender: 0, Seq: 1, Dest: 2}})
	deliver(r, 2, 0, 1)
	if err := r.Check(); err != nil {
		t.Fatalf("process 1 was not a destination: %v", err)
	}
}
