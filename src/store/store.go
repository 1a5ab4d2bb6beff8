package store

import (
	"github.com/mosaicnetworks/causal/src/envelope"
)

// Store is an append-only log of deliveries.
type Store interface {
	// CacheSize returns the number of deliveries kept in memory.
	CacheSize() int
	// Append adds a delivery. Its Index must be Count().
	Append(d *envelope.Delivery) error
	// Get returns the delivery with the given index.
	Get(index int) (*envelope.Delivery, error)
	// Deliveries returns the deliveries with an index greater than skip.
	Deliveries(skip int) ([]*envelope.Delivery, error)
	// Last returns the most recent delivery.
	Last() (*envelope.Delivery, error)
	// Count returns the number of deliveries appended so far.
	Count() int
	// Close closes the store.
	Close() error
	// StorePath returns the location of the persistant store, if any.
	StorePath() string
}
