package net

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/mosaicnetworks/causal/src/envelope"
	"github.com/sirupsen/logrus"
)

// ErrUnknownTarget is returned when a transport is asked to send to a process
// that is not part of the network.
var ErrUnknownTarget = errors.New("unknown target")

// NewInmemAddr returns a new in-memory addr with
// a randomly generate UUID as the ID.
func NewInmemAddr() string {
	return uuid.New().String()
}

type inflight struct {
	env   *envelope.Envelope
	ready uint64
}

type link struct {
	from, to int
}

// InmemNetwork connects a group of in-memory transports. Each (from, to)
// link is a FIFO queue. Step delivers the head of a link chosen at random
// among the links that are not held and whose head is ready, so the relative
// order of different senders is scrambled while the order of each sender is
// preserved.
type InmemNetwork struct {
	sync.Mutex

	id         string
	n          int
	rnd        *rand.Rand
	maxDelay   int
	now        uint64
	links      [][][]inflight
	held       map[link]bool
	transports []*InmemTransport
	receivers  []Receiver
	delivered  uint64
	logger     *logrus.Entry
}

// NewInmemNetwork creates a network of n processes. seed makes the scheduling
// reproducible.
func NewInmemNetwork(n int, seed int64, logger *logrus.Entry) *InmemNetwork {
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	id := uuid.New().String()

	nw := &InmemNetwork{
		id:         id,
		n:          n,
		rnd:        rand.New(rand.NewSource(seed)),
		links:      make([][][]inflight, n),
		held:       make(map[link]bool),
		transports: make([]*InmemTransport, n),
		receivers:  make([]Receiver, n),
		logger:     logger.WithField("network", id),
	}

	for i := 0; i < n; i++ {
		nw.links[i] = make([][]inflight, n)
		nw.transports[i] = &InmemTransport{
			network:    nw,
			id:         i,
			localAddr:  NewInmemAddr(),
			consumerCh: make(chan *envelope.Envelope, 1024),
		}
	}

	return nw
}

// ID returns the unique identifier of the network.
func (nw *InmemNetwork) ID() string {
	return nw.id
}

// SetMaxDelay makes every envelope wait a random number of steps, up to d,
// before it can be delivered.
func (nw *InmemNetwork) SetMaxDelay(d int) {
	nw.Lock()
	defer nw.Unlock()
	nw.maxDelay = d
}

// Transport returns the transport of process id.
func (nw *InmemNetwork) Transport(id int) *InmemTransport {
	return nw.transports[id]
}

// Attach makes Step deliver the envelopes addressed to process id by calling
// r.Receive directly. Envelopes to processes without a Receiver go to the
// consumer channel of their transport.
func (nw *InmemNetwork) Attach(id int, r Receiver) {
	nw.Lock()
	defer nw.Unlock()
	nw.receivers[id] = r
}

func (nw *InmemNetwork) enqueue(from, to int, env *envelope.Envelope) error {
	if to < 0 || to >= nw.n || to == from {
		return fmt.Errorf("%w: %d", ErrUnknownTarget, to)
	}

	nw.Lock()
	defer nw.Unlock()

	ready := nw.now
	if nw.maxDelay > 0 {
		ready += uint64(nw.rnd.Intn(nw.maxDelay + 1))
	}

	nw.links[from][to] = append(nw.links[from][to], inflight{env: env, ready: ready})
	return nil
}

// Hold stops the delivery of envelopes from process from to process to until
// Release is called.
func (nw *InmemNetwork) Hold(from, to int) {
	nw.Lock()
	defer nw.Unlock()
	nw.held[link{from, to}] = true
}

// Release resumes a held link.
func (nw *InmemNetwork) Release(from, to int) {
	nw.Lock()
	defer nw.Unlock()
	delete(nw.held, link{from, to})
}

// Pending returns the number of envelopes in flight, including the ones on
// held links.
func (nw *InmemNetwork) Pending() int {
	nw.Lock()
	defer nw.Unlock()

	count := 0
	for _, row := range nw.links {
		for _, q := range row {
			count += len(q)
		}
	}
	return count
}

// Delivered returns the number of envelopes handed to receivers so far.
func (nw *InmemNetwork) Delivered() uint64 {
	nw.Lock()
	defer nw.Unlock()
	return nw.delivered
}

// next pops the head of a random deliverable link.
func (nw *InmemNetwork) next() (int, *envelope.Envelope, bool) {
	nw.Lock()
	defer nw.Unlock()

	for {
		var candidates []link
		earliest := uint64(0)
		waiting := false

		for from, row := range nw.links {
			for to, q := range row {
				if len(q) == 0 || nw.held[link{from, to}] {
					continue
				}
				if q[0].ready <= nw.now {
					candidates = append(candidates, link{from, to})
				} else if !waiting || q[0].ready < earliest {
					earliest = q[0].ready
					waiting = true
				}
			}
		}

		if len(candidates) == 0 {
			if !waiting {
				return 0, nil, false
			}
			nw.now = earliest
			continue
		}

		l := candidates[nw.rnd.Intn(len(candidates))]
		q := nw.links[l.from][l.to]
		env := q[0].env
		q[0] = inflight{}
		nw.links[l.from][l.to] = q[1:]

		nw.now++
		nw.delivered++

		return l.to, env, true
	}
}

// Step delivers one envelope. It returns false if no link can make
// progress. The error is the one returned by the receiver, if any.
func (nw *InmemNetwork) Step() (bool, error) {
	to, env, ok := nw.next()
	if !ok {
		return false, nil
	}

	nw.Lock()
	r := nw.receivers[to]
	nw.Unlock()

	if r == nil {
		nw.transports[to].consumerCh <- env
		return true, nil
	}

	if err := r.Receive(env); err != nil {
		nw.logger.WithFields(logrus.Fields{
			"to":       to,
			"envelope": env.String(),
			"error":    err,
		}).Warn("Receive")
		return true, err
	}

	return true, nil
}

// Flush steps until no link can make progress. It returns the receiver
// errors it came across.
func (nw *InmemNetwork) Flush() error {
	var errs []error
	for {
		ok, err := nw.Step()
		if err != nil {
			errs = append(errs, err)
		}
		if !ok {
			return errors.Join(errs...)
		}
	}
}

// InmemTransport implements the Transport interface on top of an
// InmemNetwork.
type InmemTransport struct {
	network    *InmemNetwork
	id         int
	localAddr  string
	consumerCh chan *envelope.Envelope
}

// Consumer implements the Transport interface.
func (i *InmemTransport) Consumer() <-chan *envelope.Envelope {
	return i.consumerCh
}

// LocalAddr implements the Transport interface.
func (i *InmemTransport) LocalAddr() string {
	return i.localAddr
}

// AdvertiseAddr implements the Transport interface.
func (i *InmemTransport) AdvertiseAddr() string {
	return i.localAddr
}

// Send implements the Transport interface.
func (i *InmemTransport) Send(target int, env *envelope.Envelope) error {
	return i.network.enqueue(i.id, target, env)
}

// Multicast implements the Transport interface.
func (i *InmemTransport) Multicast(env *envelope.Envelope) error {
	for to := 0; to < i.network.n; to++ {
		if to == i.id {
			continue
		}
		if err := i.network.enqueue(i.id, to, env); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op. Envelopes already in flight are still delivered.
func (i *InmemTransport) Close() error {
	return nil
}

// Listen is an empty function as there is no need to defer
// initialisation of the InMem service
func (i *InmemTransport) Listen() {
}
