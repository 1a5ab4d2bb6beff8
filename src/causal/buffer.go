package causal

import (
	"github.com/mosaicnetworks/causal/src/envelope"
)

// Buffer holds received envelopes that are not yet deliverable. Entries are
// unique by (sender, seq).
type Buffer struct {
	items []*envelope.Envelope
	index map[envelope.ID]struct{}
}

// NewBuffer creates an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{
		index: make(map[envelope.ID]struct{}),
	}
}

// Add inserts env in the buffer. It returns false, and does nothing, if an
// envelope with the same ID is already buffered.
func (b *Buffer) Add(env *envelope.Envelope) bool {
	id := env.ID()
	if _, ok := b.index[id]; ok {
		return false
	}
	b.index[id] = struct{}{}
	b.items = append(b.items, env)
	return true
}

// Contains returns true if an envelope with the given ID is buffered.
func (b *Buffer) Contains(id envelope.ID) bool {
	_, ok := b.index[id]
	return ok
}

// Len returns the number of buffered envelopes.
func (b *Buffer) Len() int {
	return len(b.items)
}

// Envelopes returns a snapshot of the buffered envelopes.
func (b *Buffer) Envelopes() []*envelope.Envelope {
	res := make([]*envelope.Envelope, len(b.items))
	copy(res, b.items)
	return res
}

// Drain repeatedly scans the buffer and, for every envelope for which
// deliverable returns true, removes it and calls deliver. It stops when a
// full pass delivers nothing and returns the delivered envelopes in delivery
// order.
func (b *Buffer) Drain(deliverable func(*envelope.Envelope) bool, deliver func(*envelope.Envelope)) []*envelope.Envelope {
	var res []*envelope.Envelope

	for progress := true; progress && len(b.items) > 0; {
		progress = false

		kept := b.items[:0]
		for _, env := range b.items {
			if !deliverable(env) {
				kept = append(kept, env)
				continue
			}

			delete(b.index, env.ID())
			res = append(res, env)
			progress = true

			// later entries of this pass see the updated clocks
			deliver(env)
		}

		for i := len(kept); i < len(b.items); i++ {
			b.items[i] = nil
		}
		b.items = kept
	}

	return res
}
