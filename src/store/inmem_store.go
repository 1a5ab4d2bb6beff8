package store

import (
	"strconv"
	"sync"

	cm "github.com/mosaicnetworks/causal/src/common"
	"github.com/mosaicnetworks/causal/src/envelope"
)

// InmemStore implements the Store interface with a rolling window of
// deliveries.
type InmemStore struct {
	sync.RWMutex
	cacheSize  int
	deliveries *cm.RollingIndex
}

// NewInmemStore creates an InmemStore keeping between cacheSize and
// 2*cacheSize deliveries.
func NewInmemStore(cacheSize int) *InmemStore {
	return &InmemStore{
		cacheSize:  cacheSize,
		deliveries: cm.NewRollingIndex("Delivery", cacheSize),
	}
}

// CacheSize implements the Store interface
func (s *InmemStore) CacheSize() int {
	return s.cacheSize
}

// Append implements the Store interface
func (s *InmemStore) Append(d *envelope.Delivery) error {
	s.Lock()
	defer s.Unlock()

	next := s.deliveries.LastIndex() + 1
	if int(d.Index) != next {
		if int(d.Index) < next {
			return cm.NewStoreErr("Delivery", cm.KeyAlreadyExists, strconv.FormatUint(d.Index, 10))
		}
		return cm.NewStoreErr("Delivery", cm.SkippedIndex, strconv.FormatUint(d.Index, 10))
	}

	s.deliveries.Append(d)
	return nil
}

// Get implements the Store interface
func (s *InmemStore) Get(index int) (*envelope.Delivery, error) {
	s.RLock()
	defer s.RUnlock()

	item, err := s.deliveries.GetItem(index)
	if err != nil {
		return nil, err
	}
	return item.(*envelope.Delivery), nil
}

// Deliveries implements the Store interface
func (s *InmemStore) Deliveries(skip int) ([]*envelope.Delivery, error) {
	s.RLock()
	defer s.RUnlock()

	items, err := s.deliveries.Get(skip)
	if err != nil {
		return nil, err
	}

	res := make([]*envelope.Delivery, len(items))
	for i, item := range items {
		res[i] = item.(*envelope.Delivery)
	}
	return res, nil
}

// Last implements the Store interface
func (s *InmemStore) Last() (*envelope.Delivery, error) {
	s.RLock()
	defer s.RUnlock()

	last := s.deliveries.LastIndex()
	if last < 0 {
		return nil, cm.NewStoreErr("Delivery", cm.Empty, "")
	}

	item, err := s.deliveries.GetItem(last)
	if err != nil {
		return nil, err
	}
	return item.(*envelope.Delivery), nil
}

// Count implements the Store interface
func (s *InmemStore) Count() int {
	s.RLock()
	defer s.RUnlock()
	return s.deliveries.LastIndex() + 1
}

// Close implements the Store interface
func (s *InmemStore) Close() error {
	return nil
}

// StorePath implements the Store interface
func (s *InmemStore) StorePath() string {
	return ""
}
