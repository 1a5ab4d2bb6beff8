package node

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mosaicnetworks/causal/src/causal"
	"github.com/mosaicnetworks/causal/src/clock"
	"github.com/mosaicnetworks/causal/src/envelope"
	"github.com/mosaicnetworks/causal/src/net"
	"github.com/mosaicnetworks/causal/src/store"
	"github.com/sirupsen/logrus"
)

// Stats counts the activity of a Process.
type Stats struct {
	Sent            uint64 `json:"sent"`
	Envelopes       uint64 `json:"envelopes"`
	Delivered       uint64 `json:"delivered"`
	Buffered        uint64 `json:"buffered"`
	Duplicates      uint64 `json:"duplicates"`
	Malformed       uint64 `json:"malformed"`
	TransportErrors uint64 `json:"transport_errors"`
	MetadataEntries uint64 `json:"metadata_entries"`
	MaxBuffer       int    `json:"max_buffer"`
}

// Snapshot is a copy of the observable state of a Process.
type Snapshot struct {
	ID             int               `json:"id"`
	Algorithm      string            `json:"algorithm"`
	State          string            `json:"state"`
	Seq            uint64            `json:"seq"`
	Vector         clock.VectorClock `json:"vector"`
	Matrix         clock.MatrixClock `json:"matrix,omitempty"`
	StableFrontier clock.VectorClock `json:"stable_frontier,omitempty"`
	BufferLen      int               `json:"buffer_len"`
	Stats          Stats             `json:"stats"`
}

// Process is a participant of a causal group.
type Process struct {
	state

	mu sync.Mutex

	conf   *Config
	logger *logrus.Entry

	strategy causal.Strategy
	buffer   *causal.Buffer

	trans net.Transport
	store store.Store

	seq        uint64
	deliveries uint64

	onDeliver func(*envelope.Delivery)
	observers []Observer

	stats Stats

	shutdownCh chan struct{}
}

// NewProcess creates a Process. The transport is required; when st is nil
// deliveries are logged to an InmemStore.
func NewProcess(conf *Config, trans net.Transport, st store.Store) (*Process, error) {
	strategy, err := causal.NewStrategy(conf.Algorithm, conf.ProcessID, conf.Processes)
	if err != nil {
		return nil, err
	}

	if trans == nil {
		return nil, causal.NewErr(causal.ErrInvalidConfiguration, "transport", fmt.Errorf("nil transport"))
	}

	if st == nil {
		st = store.NewInmemStore(conf.CacheSize)
	}

	logger := conf.Logger
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	p := &Process{
		conf: conf,
		logger: logger.WithFields(logrus.Fields{
			"process":   conf.ProcessID,
			"algorithm": conf.Algorithm.String(),
		}),
		strategy:   strategy,
		buffer:     causal.NewBuffer(),
		trans:      trans,
		store:      st,
		shutdownCh: make(chan struct{}),
	}

	return p, nil
}

// ID returns the process ID.
func (p *Process) ID() int {
	return p.conf.ProcessID
}

// Algorithm returns the delivery algorithm of the process.
func (p *Process) Algorithm() envelope.Algorithm {
	return p.conf.Algorithm
}

// Store returns the delivery log.
func (p *Process) Store() store.Store {
	return p.store
}

// OnDeliver registers the delivery callback. It can only be registered once.
func (p *Process) OnDeliver(cb func(*envelope.Delivery)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.onDeliver != nil {
		return causal.NewErr(causal.ErrCallbackRegistered, "OnDeliver", nil)
	}
	p.onDeliver = cb
	return nil
}

// AddObserver registers an observer.
func (p *Process) AddObserver(o Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, o)
}

// Send broadcasts payload to every other process and returns its sequence
// number.
func (p *Process) Send(payload []byte) (uint64, error) {
	return p.SendTo(nil, payload)
}

// SendTo sends payload to the processes in dests, or to every other process
// if dests is empty. Only algorithms that build metadata per destination
// support strict subsets of the group; the others return ErrSelectiveSend.
//
// A destination that depends on an earlier message it was never sent buffers
// the envelope until that message reaches it some other way. For example, if
// P0 sends m1 to P1 only and then m2 to P2 only, P2 buffers m2 until m1 is
// relayed to it. Nothing in this package relays messages.
func (p *Process) SendTo(dests []int, payload []byte) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.getState() == Stopped {
		return 0, causal.NewErr(causal.ErrStopped, "Send", nil)
	}

	dests, err := p.destinations(dests)
	if err != nil {
		return 0, err
	}

	if !p.strategy.PerDestination() && len(dests) != p.conf.Processes-1 {
		return 0, causal.NewErr(causal.ErrSelectiveSend, p.conf.Algorithm.String(),
			fmt.Errorf("%d of %d destinations", len(dests), p.conf.Processes-1))
	}

	p.seq++
	seq := p.seq
	self := p.conf.ProcessID

	mds := p.strategy.BuildMetadata(seq, dests)

	var envs []*envelope.Envelope
	if p.strategy.PerDestination() {
		for i, d := range dests {
			envs = append(envs, envelope.New(self, seq, d, payload, mds[i]))
		}
	} else {
		envs = append(envs, envelope.New(self, seq, envelope.Broadcast, payload, mds[0]))
	}

	p.stats.Sent++
	for _, env := range envs {
		p.stats.Envelopes++
		p.stats.MetadataEntries += uint64(env.Metadata.Entries())
	}

	for _, o := range p.observers {
		o.Sent(self, seq, envs)
	}

	p.logger.WithFields(logrus.Fields{
		"seq":   seq,
		"dests": dests,
	}).Debug("Send")

	if p.strategy.PerDestination() {
		for _, env := range envs {
			if err := p.trans.Send(env.Dest, env); err != nil {
				p.transportError(env, err)
			}
		}
	} else if err := p.trans.Multicast(envs[0]); err != nil {
		p.transportError(envs[0], err)
	}

	p.drain()

	return seq, nil
}

func (p *Process) transportError(env *envelope.Envelope, err error) {
	p.stats.TransportErrors++
	p.logger.WithFields(logrus.Fields{
		"envelope": env.String(),
		"error":    err,
	}).Error("Transport")
}

// destinations returns the sorted, deduplicated list of destinations, or
// every other process if dests is empty.
func (p *Process) destinations(dests []int) ([]int, error) {
	self := p.conf.ProcessID

	if len(dests) == 0 {
		res := make([]int, 0, p.conf.Processes-1)
		for i := 0; i < p.conf.Processes; i++ {
			if i != self {
				res = append(res, i)
			}
		}
		return res, nil
	}

	seen := make(map[int]bool, len(dests))
	res := make([]int, 0, len(dests))
	for _, d := range dests {
		if d < 0 || d >= p.conf.Processes || d == self {
			return nil, causal.NewErr(causal.ErrInvalidConfiguration, "destination", fmt.Errorf("invalid destination %d", d))
		}
		if !seen[d] {
			seen[d] = true
			res = append(res, d)
		}
	}
	sort.Ints(res)
	return res, nil
}

// Receive processes an envelope handed over by the transport. Duplicates are
// silently discarded. Malformed envelopes are rejected with an
// ErrMalformedEnvelope error and never delivered.
func (p *Process) Receive(env *envelope.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.getState() == Stopped {
		return causal.NewErr(causal.ErrStopped, "Receive", nil)
	}

	if err := p.validate(env); err != nil {
		key := "nil"
		if env != nil {
			key = env.ID().String()
			for _, o := range p.observers {
				o.Discarded(p.conf.ProcessID, env, Malformed)
			}
		}
		p.stats.Malformed++
		p.logger.WithFields(logrus.Fields{
			"id":    key,
			"error": err,
		}).Warn("Malformed envelope")
		return causal.NewErr(causal.ErrMalformedEnvelope, key, err)
	}

	if env.Seq <= p.strategy.Delivered(env.Sender) || p.buffer.Contains(env.ID()) {
		p.stats.Duplicates++
		p.logger.WithField("id", env.ID().String()).Debug("Duplicate")
		for _, o := range p.observers {
			o.Discarded(p.conf.ProcessID, env, Duplicate)
		}
		return nil
	}

	if !p.strategy.IsDeliverable(env) {
		p.buffer.Add(env)
		p.stats.Buffered++
		size := p.buffer.Len()
		if size > p.stats.MaxBuffer {
			p.stats.MaxBuffer = size
		}

		p.logger.WithFields(logrus.Fields{
			"envelope": env.String(),
			"buffer":   size,
		}).Debug("Buffer")

		for _, o := range p.observers {
			o.Buffered(p.conf.ProcessID, env)
			o.BufferResized(p.conf.ProcessID, size)
		}
		return nil
	}

	p.deliver(env)
	p.drain()

	return nil
}

func (p *Process) validate(env *envelope.Envelope) error {
	if env == nil {
		return fmt.Errorf("nil envelope")
	}
	if err := env.Validate(p.conf.Algorithm, p.conf.Processes); err != nil {
		return err
	}
	if env.Sender == p.conf.ProcessID {
		return fmt.Errorf("envelope from self")
	}
	return p.strategy.Validate(env)
}

// deliver hands env to the application. The caller has checked that it is
// deliverable. The envelope may be shared with other receivers, so the
// payload is copied, and the callback gets a copy of its own.
func (p *Process) deliver(env *envelope.Envelope) {
	p.strategy.MergeOnDeliver(env)

	d := &envelope.Delivery{
		Receiver: p.conf.ProcessID,
		Index:    p.deliveries,
		Sender:   env.Sender,
		Seq:      env.Seq,
		Vector:   p.strategy.Vector(),
	}
	if env.Payload != nil {
		d.Payload = make([]byte, len(env.Payload))
		copy(d.Payload, env.Payload)
	}
	p.deliveries++
	p.stats.Delivered++

	p.logger.WithFields(logrus.Fields{
		"id":     env.ID().String(),
		"vector": d.Vector.String(),
	}).Debug("Deliver")

	if p.onDeliver != nil {
		p.onDeliver(d.Copy())
	}

	if err := p.store.Append(d); err != nil {
		p.logger.WithError(err).Error("Appending delivery to store")
	}

	for _, o := range p.observers {
		o.Delivered(d)
	}
}

// drain delivers every buffered envelope that became deliverable.
func (p *Process) drain() {
	before := p.buffer.Len()
	if before == 0 {
		return
	}

	delivered := p.buffer.Drain(p.strategy.IsDeliverable, p.deliver)

	if len(delivered) > 0 {
		size := p.buffer.Len()
		p.logger.WithFields(logrus.Fields{
			"delivered": len(delivered),
			"buffer":    size,
		}).Debug("Drain")
		for _, o := range p.observers {
			o.BufferResized(p.conf.ProcessID, size)
		}
	}
}

// Run consumes the transport's channel until ctx is cancelled or the
// process is stopped.
func (p *Process) Run(ctx context.Context) error {
	consumer := p.trans.Consumer()
	for {
		select {
		case env, ok := <-consumer:
			if !ok {
				return nil
			}
			if err := p.Receive(env); err != nil && causal.IsErr(err, causal.ErrStopped) {
				return nil
			}
		case <-p.shutdownCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stop moves the process to the Stopped state and closes the transport. It
// is idempotent.
func (p *Process) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.getState() == Stopped {
		return nil
	}

	p.logger.Debug("Stop")
	p.setState(Stopped)
	close(p.shutdownCh)

	return p.trans.Close()
}

// State returns the current state.
func (p *Process) State() State {
	return p.getState()
}

// BufferLen returns the number of buffered envelopes.
func (p *Process) BufferLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.Len()
}

// Buffered returns a snapshot of the buffered envelopes.
func (p *Process) Buffered() []*envelope.Envelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.Envelopes()
}

// Clock returns a copy of the local vector clock.
func (p *Process) Clock() clock.VectorClock {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.strategy.Vector()
}

// Matrix returns a copy of the local matrix clock, or nil if the algorithm
// does not keep one.
func (p *Process) Matrix() clock.MatrixClock {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.strategy.Matrix()
}

// Stats returns a copy of the counters.
func (p *Process) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Snapshot returns a copy of the observable state.
func (p *Process) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Snapshot{
		ID:        p.conf.ProcessID,
		Algorithm: p.conf.Algorithm.String(),
		State:     p.getState().String(),
		Seq:       p.seq,
		Vector:    p.strategy.Vector(),
		Matrix:    p.strategy.Matrix(),
		BufferLen: p.buffer.Len(),
		Stats:     p.stats,
	}
	if s.Matrix != nil {
		s.StableFrontier = s.Matrix.StableFrontier()
	}
	return s
}
