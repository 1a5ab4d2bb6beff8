package causal

import (
	"reflect"
	"testing"

	"github.com/mosaicnetworks/causal/src/clock"
	"github.com/mosaicnetworks/causal/src/envelope"
)

// group is a minimal driver around strategies and buffers, without
// transport, used to exercise the delivery conditions.
type group struct {
	t          *testing.T
	strategies []Strategy
	buffers    []*Buffer
	seqs       []uint64
	delivered  [][]envelope.ID
}

func newGroup(t *testing.T, algo envelope.Algorithm, n int) *group {
	g := &group{
		t:         t,
		buffers:   make([]*Buffer, n),
		seqs:      make([]uint64, n),
		delivered: make([][]envelope.ID, n),
	}
	for i := 0; i < n; i++ {
		s, err := NewStrategy(algo, i, n)
		if err != nil {
			t.Fatal(err)
		}
		g.strategies = append(g.strategies, s)
		g.buffers[i] = NewBuffer()
	}
	return g
}

func (g *group) others(i int) []int {
	var res []int
	for j := range g.strategies {
		if j != i {
			res = append(res, j)
		}
	}
	return res
}

// send returns the envelopes of a message from i to dests, indexed by
// destination.
func (g *group) send(i int, payload string, dests ...int) map[int]*envelope.Envelope {
	if len(dests) == 0 {
		dests = g.others(i)
	}
	g.seqs[i]++
	seq := g.seqs[i]

	s := g.strategies[i]
	mds := s.BuildMetadata(seq, dests)

	res := make(map[int]*envelope.Envelope)
	for k, d := range dests {
		md := mds[0]
		dest := envelope.Broadcast
		if s.PerDestination() {
			md = mds[k]
			dest = d
		}
		res[d] = envelope.New(i, seq, dest, []byte(payload), md)
	}
	return res
}

func (g *group) receive(j int, env *envelope.Envelope) {
	s := g.strategies[j]
	if err := s.Validate(env); err != nil {
		g.t.Fatalf("process %d: invalid envelope %v: %v", j, env, err)
	}
	if env.Seq <= s.Delivered(env.Sender) {
		return
	}
	if !s.IsDeliverable(env) {
		g.buffers[j].Add(env)
		return
	}
	g.deliver(j, env)
	g.buffers[j].Drain(s.IsDeliverable, func(e *envelope.Envelope) { g.deliver(j, e) })
}

func (g *group) deliver(j int, env *envelope.Envelope) {
	g.strategies[j].MergeOnDeliver(env)
	g.delivered[j] = append(g.delivered[j], env.ID())
}

func ids(ids ...envelope.ID) []envelope.ID {
	return ids
}

func TestNewStrategyErrors(t *testing.T) {
	if _, err := NewStrategy(envelope.BSS, 3, 3); !IsErr(err, ErrInvalidConfiguration) {
		t.Fatalf("process id out of range should be an invalid configuration, not %v", err)
	}
	if _, err := NewStrategy(envelope.SES, 0, 0); !IsErr(err, ErrInvalidConfiguration) {
		t.Fatalf("0 processes should be an invalid configuration, not %v", err)
	}
	if _, err := NewStrategy(envelope.Algorithm(9), 0, 1); !IsErr(err, ErrInvalidConfiguration) {
		t.Fatalf("unknown algorithm should be an invalid configuration, not %v", err)
	}
}

func TestBSSScenario(t *testing.T) {
	g := newGroup(t, envelope.BSS, 3)

	m1 := g.send(0, "m1")
	if !reflect.DeepEqual(m1[1].Metadata.Vector, clock.VectorClock{1, 0, 0}) {
		t.Fatalf("m1 should carry [1 0 0], not %v", m1[1].Metadata.Vector)
	}

	g.receive(1, m1[1])

	m2 := g.send(1, "m2")
	if !reflect.DeepEqual(m2[2].Metadata.Vector, clock.VectorClock{1, 1, 0}) {
		t.Fatalf("m2 should carry [1 1 0], not %v", m2[2].Metadata.Vector)
	}

	g.receive(2, m2[2])
	if g.buffers[2].Len() != 1 || len(g.delivered[2]) != 0 {
		t.Fatalf("P2 should buffer m2")
	}

	g.receive(2, m1[2])
	expected := ids(envelope.ID{Sender: 0, Seq: 1}, envelope.ID{Sender: 1, Seq: 1})
	if !reflect.DeepEqual(g.delivered[2], expected) {
		t.Fatalf("P2 should deliver %v, not %v", expected, g.delivered[2])
	}
	if g.buffers[2].Len() != 0 {
		t.Fatalf("P2 buffer should be empty")
	}
	if v := g.strategies[2].Vector(); !reflect.DeepEqual(v, clock.VectorClock{1, 1, 0}) {
		t.Fatalf("P2 clock should be [1 1 0], not %v", v)
	}
}

func TestBSSFIFOGap(t *testing.T) {
	g := newGroup(t, envelope.BSS, 2)

	a := g.send(0, "a")
	b := g.send(0, "b")
	c := g.send(0, "c")

	g.receive(1, c[1])
	g.receive(1, b[1])
	if len(g.delivered[1]) != 0 {
		t.Fatalf("nothing should be delivered before the first message")
	}

	g.receive(1, a[1])
	expected := ids(envelope.ID{Sender: 0, Seq: 1}, envelope.ID{Sender: 0, Seq: 2}, envelope.ID{Sender: 0, Seq: 3})
	if !reflect.DeepEqual(g.delivered[1], expected) {
		t.Fatalf("P1 should deliver %v, not %v", expected, g.delivered[1])
	}

	// redelivery is a no-op
	g.receive(1, b[1])
	if len(g.delivered[1]) != 3 || g.buffers[1].Len() != 0 {
		t.Fatalf("duplicate should be discarded")
	}
}

func TestBSSValidate(t *testing.T) {
	s := NewBSS(1, 3)
	env := envelope.New(0, 2, envelope.Broadcast, nil, envelope.NewVectorMetadata(clock.VectorClock{1, 0, 0}))
	if err := s.Validate(env); err == nil {
		t.Fatalf("vector entry inconsistent with sequence number should be rejected")
	}
	env = envelope.New(0, 1, envelope.Broadcast, nil, envelope.NewMatrixMetadata(clock.NewMatrixClock(3)))
	if err := s.Validate(env); err == nil {
		t.Fatalf("matrix metadata should be rejected by BSS")
	}

	s.BuildMetadata(1, []int{0, 2})
	env = envelope.New(0, 1, envelope.Broadcast, nil, envelope.NewVectorMetadata(clock.VectorClock{1, 1, 0}))
	if err := s.Validate(env); err != nil {
		t.Fatalf("P0 may have delivered the message P1 sent: %v", err)
	}
	env = envelope.New(0, 1, envelope.Broadcast, nil, envelope.NewVectorMetadata(clock.VectorClock{1, 2, 0}))
	if err := s.Validate(env); err == nil {
		t.Fatalf("a vector entry above the receiver's own sequence should be rejected")
	}
}

func TestSESScenario(t *testing.T) {
	g := newGroup(t, envelope.SES, 3)

	m1 := g.send(0, "m1", 1)
	if len(m1[1].Metadata.Deps) != 0 {
		t.Fatalf("m1 should have no dependencies, not %v", m1[1].Metadata.Deps)
	}
	if m1[1].Dest != 1 {
		t.Fatalf("m1 should be addressed to P1, not %d", m1[1].Dest)
	}

	m2 := g.send(0, "m2", 2)
	expectedDeps := []envelope.Dep{{Process: 0, Seq: 1}}
	if !reflect.DeepEqual(m2[2].Metadata.Deps, expectedDeps) {
		t.Fatalf("m2 dependencies should be %v, not %v", expectedDeps, m2[2].Metadata.Deps)
	}

	g.receive(1, m1[1])
	if len(g.delivered[1]) != 1 {
		t.Fatalf("P1 should deliver m1")
	}

	g.receive(2, m2[2])
	if len(g.delivered[2]) != 0 || g.buffers[2].Len() != 1 {
		t.Fatalf("P2 should buffer m2 until it learns about m1")
	}

	// P2 learns m1 through a relay
	g.receive(2, m1[1])
	expected := ids(envelope.ID{Sender: 0, Seq: 1}, envelope.ID{Sender: 0, Seq: 2})
	if !reflect.DeepEqual(g.delivered[2], expected) {
		t.Fatalf("P2 should deliver %v, not %v", expected, g.delivered[2])
	}
}

func TestSESDifferentialEncoding(t *testing.T) {
	g := newGroup(t, envelope.SES, 3)

	a := g.send(0, "a")
	b := g.send(0, "b")
	g.receive(1, a[1])
	g.receive(1, b[1])

	c := g.send(1, "c")
	if len(c[0].Metadata.Deps) != 0 {
		t.Fatalf("dependencies on the destination itself should be omitted, got %v", c[0].Metadata.Deps)
	}
	if !reflect.DeepEqual(c[2].Metadata.Deps, []envelope.Dep{{Process: 0, Seq: 2}}) {
		t.Fatalf("c to P2 should depend on (0,2), not %v", c[2].Metadata.Deps)
	}

	d := g.send(1, "d", 2)
	if !reflect.DeepEqual(d[2].Metadata.Deps, []envelope.Dep{{Process: 1, Seq: 1}}) {
		t.Fatalf("unchanged entries should be omitted, expected [(1,1)], not %v", d[2].Metadata.Deps)
	}

	// P2 receives in reverse order
	g.receive(2, d[2])
	g.receive(2, c[2])
	g.receive(2, b[2])
	g.receive(2, a[2])

	expected := ids(
		envelope.ID{Sender: 0, Seq: 1},
		envelope.ID{Sender: 0, Seq: 2},
		envelope.ID{Sender: 1, Seq: 1},
		envelope.ID{Sender: 1, Seq: 2},
	)
	if !reflect.DeepEqual(g.delivered[2], expected) {
		t.Fatalf("P2 should deliver %v, not %v", expected, g.delivered[2])
	}
}

func TestSESKnownBy(t *testing.T) {
	s := NewSES(1, 3)

	s.MergeOnDeliver(envelope.New(0, 1, 1, nil, envelope.NewDepsMetadata(nil)))
	s.MergeOnDeliver(envelope.New(0, 2, 1, nil, envelope.NewDepsMetadata([]envelope.Dep{{Process: 0, Seq: 1}})))

	// P2 has delivered both messages of P0
	fromP2 := envelope.New(2, 1, 1, nil, envelope.NewDepsMetadata([]envelope.Dep{{Process: 0, Seq: 2}}))
	if !s.IsDeliverable(fromP2) {
		t.Fatalf("message from P2 should be deliverable")
	}
	s.MergeOnDeliver(fromP2)

	mds := s.BuildMetadata(1, []int{0, 2})
	if !reflect.DeepEqual(mds[0].Deps, []envelope.Dep{{Process: 2, Seq: 1}}) {
		t.Fatalf("deps to P0 should be [(2,1)], not %v", mds[0].Deps)
	}
	if len(mds[1].Deps) != 0 {
		t.Fatalf("P2 is known to have delivered (0,2), deps should be empty, not %v", mds[1].Deps)
	}
}

func TestSESValidate(t *testing.T) {
	s := NewSES(1, 3)
	env := envelope.New(0, 2, 1, nil, envelope.NewDepsMetadata([]envelope.Dep{{Process: 0, Seq: 2}}))
	if err := s.Validate(env); err == nil {
		t.Fatalf("dependency on a message that is not earlier should be rejected")
	}
}

func TestMatrixRounds(t *testing.T) {
	n, rounds := 4, 3
	g := newGroup(t, envelope.Matrix, n)

	for r := 0; r < rounds; r++ {
		var sent []map[int]*envelope.Envelope
		for i := 0; i < n; i++ {
			sent = append(sent, g.send(i, "x"))
		}
		// deliver in reverse sender order
		for i := n - 1; i >= 0; i-- {
			for d, env := range sent[i] {
				g.receive(d, env)
			}
		}
	}

	for p := 0; p < n; p++ {
		mc := g.strategies[p].Matrix()
		for q := 0; q < n; q++ {
			if mc[q][q] != uint64(rounds) {
				t.Fatalf("P%d should know P%d sent %d messages, not %d", p, q, rounds, mc[q][q])
			}
			if mc[p][q] != uint64(rounds) {
				t.Fatalf("P%d own row should be all %d, got %v", p, rounds, mc[p])
			}
		}
		f := mc.StableFrontier()
		for q := 0; q < n; q++ {
			if f[q] != uint64(rounds-1) {
				t.Fatalf("P%d stable frontier should be all %d, got %v", p, rounds-1, f)
			}
		}
		if len(g.delivered[p]) != rounds*(n-1) {
			t.Fatalf("P%d should deliver %d messages, not %d", p, rounds*(n-1), len(g.delivered[p]))
		}
	}
}

func TestMatrixCausalChain(t *testing.T) {
	g := newGroup(t, envelope.Matrix, 3)

	m1 := g.send(0, "m1")
	g.receive(1, m1[1])
	m2 := g.send(1, "m2")

	g.receive(2, m2[2])
	if len(g.delivered[2]) != 0 {
		t.Fatalf("P2 should buffer m2")
	}
	g.receive(2, m1[2])

	expected := ids(envelope.ID{Sender: 0, Seq: 1}, envelope.ID{Sender: 1, Seq: 1})
	if !reflect.DeepEqual(g.delivered[2], expected) {
		t.Fatalf("P2 should deliver %v, not %v", expected, g.delivered[2])
	}

	mc := g.strategies[2].Matrix()
	if mc[1][0] != 1 {
		t.Fatalf("P2 should know P1 delivered m1, got\n%v", mc)
	}
}

func TestMatrixValidate(t *testing.T) {
	s := NewMatrix(0, 2)
	mc := clock.NewMatrixClock(2)
	env := envelope.New(1, 1, envelope.Broadcast, nil, envelope.NewMatrixMetadata(mc))
	if err := s.Validate(env); err == nil {
		t.Fatalf("diagonal inconsistent with sequence number should be rejected")
	}

	mc = clock.MatrixClock{{0, 0}, {1, 1}}
	env = envelope.New(1, 1, envelope.Broadcast, nil, envelope.NewMatrixMetadata(mc))
	if err := s.Validate(env); err == nil {
		t.Fatalf("a row claiming messages the receiver never sent should be rejected")
	}

	s.BuildMetadata(1, []int{1})
	if err := s.Validate(env); err != nil {
		t.Fatalf("P1 may have delivered the message P0 sent: %v", err)
	}
}
