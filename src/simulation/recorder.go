package simulation

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mosaicnetworks/causal/src/clock"
	"github.com/mosaicnetworks/causal/src/envelope"
	"github.com/mosaicnetworks/causal/src/node"
)

// Recorder observes a group of processes and keeps, independently of the
// delivery algorithm, the vector timestamp of every message at the time it
// was sent. Check uses them to verify the deliveries.
type Recorder struct {
	node.NopObserver

	sync.Mutex

	n          int
	clocks     []clock.VectorClock
	stamps     map[envelope.ID]clock.VectorClock
	dests      map[envelope.ID][]int
	deliveries [][]envelope.ID
	duplicates []error
	delivered  []map[envelope.ID]bool
}

// NewRecorder creates a Recorder for a group of n processes.
func NewRecorder(n int) *Recorder {
	r := &Recorder{
		n:          n,
		clocks:     make([]clock.VectorClock, n),
		stamps:     make(map[envelope.ID]clock.VectorClock),
		dests:      make(map[envelope.ID][]int),
		deliveries: make([][]envelope.ID, n),
		delivered:  make([]map[envelope.ID]bool, n),
	}
	for i := 0; i < n; i++ {
		r.clocks[i] = clock.NewVectorClock(n)
		r.delivered[i] = make(map[envelope.ID]bool)
	}
	return r
}

// Sent implements node.Observer. The send event ticks the sender's clock.
func (r *Recorder) Sent(p int, seq uint64, envs []*envelope.Envelope) {
	r.Lock()
	defer r.Unlock()

	id := envelope.ID{Sender: p, Seq: seq}

	r.clocks[p].Increment(p)
	r.stamps[id] = r.clocks[p].Copy()

	var dests []int
	for _, env := range envs {
		if env.Dest == envelope.Broadcast {
			for i := 0; i < r.n; i++ {
				if i != p {
					dests = append(dests, i)
				}
			}
			continue
		}
		dests = append(dests, env.Dest)
	}
	r.dests[id] = dests
}

// Delivered implements node.Observer. The delivery event merges the stamp of
// the message into the receiver's clock.
func (r *Recorder) Delivered(d *envelope.Delivery) {
	r.Lock()
	defer r.Unlock()

	id := d.ID()

	if r.delivered[d.Receiver][id] {
		r.duplicates = append(r.duplicates, fmt.Errorf("process %d delivered %v twice", d.Receiver, id))
		return
	}
	r.delivered[d.Receiver][id] = true
	r.deliveries[d.Receiver] = append(r.deliveries[d.Receiver], id)

	if stamp, ok := r.stamps[id]; ok {
		r.clocks[d.Receiver].Merge(stamp)
	}
}

// Deliveries returns the messages delivered by process p, in delivery order.
func (r *Recorder) Deliveries(p int) []envelope.ID {
	r.Lock()
	defer r.Unlock()

	res := make([]envelope.ID, len(r.deliveries[p]))
	copy(res, r.deliveries[p])
	return res
}

// Stamp returns the send-time vector timestamp of a message.
func (r *Recorder) Stamp(id envelope.ID) (clock.VectorClock, bool) {
	r.Lock()
	defer r.Unlock()

	stamp, ok := r.stamps[id]
	if !ok {
		return nil, false
	}
	return stamp.Copy(), true
}

// Messages returns the number of messages sent so far.
func (r *Recorder) Messages() int {
	r.Lock()
	defer r.Unlock()
	return len(r.stamps)
}

// Check verifies the deliveries recorded so far:
//
// - no process delivers a message twice,
//
// - a process delivers the messages of a sender in sequence order,
//
// - if m1 happened before m2, no process delivers m2 before m1,
//
// - every message was delivered by each of its destinations.
//
// It returns every violation it finds.
func (r *Recorder) Check() error {
	r.Lock()
	defer r.Unlock()

	errs := append([]error{}, r.duplicates...)

	for p := 0; p < r.n; p++ {
		errs = append(errs, r.checkProcess(p)...)
	}

	for id, dests := range r.dests {
		for _, d := range dests {
			if !r.delivered[d][id] {
				errs = append(errs, fmt.Errorf("process %d never delivered %v", d, id))
			}
		}
	}

	return errors.Join(errs...)
}

func (r *Recorder) checkProcess(p int) []error {
	var errs []error

	deliveries := r.deliveries[p]
	last := make(map[int]uint64)

	for j, id := range deliveries {
		if id.Seq <= last[id.Sender] {
			errs = append(errs, fmt.Errorf("process %d delivered %v after %d:%d", p, id, id.Sender, last[id.Sender]))
		}
		last[id.Sender] = id.Seq

		stamp, ok := r.stamps[id]
		if !ok {
			errs = append(errs, fmt.Errorf("process %d delivered %v which was never sent", p, id))
			continue
		}

		for _, earlier := range deliveries[:j] {
			if s, ok := r.stamps[earlier]; ok && stamp.Compare(s) == clock.Before {
				errs = append(errs, fmt.Errorf("process %d delivered %v before %v which happened before it", p, earlier, id))
			}
		}
	}

	return errs
}
