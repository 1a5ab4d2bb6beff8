package store

import (
	"fmt"
	"os"

	"github.com/dgraph-io/badger"
	cm "github.com/mosaicnetworks/causal/src/common"
	"github.com/mosaicnetworks/causal/src/envelope"
	"github.com/sirupsen/logrus"
)

const (
	deliveryPrefix = "delivery"
)

// BadgerStore implements the Store interface with a Badger database, and an
// InmemStore as a cache.
type BadgerStore struct {
	inmemStore *InmemStore
	db         *badger.DB
	path       string
	logger     *logrus.Entry
}

// NewBadgerStore opens the database in path, creating it if necessary, and
// loads the most recent deliveries into the cache.
func NewBadgerStore(cacheSize int, path string, logger *logrus.Entry) (*BadgerStore, error) {
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(path).
		WithSyncWrites(false).
		WithLogger(logger.WithFields(logrus.Fields{"ns": "badger"}))

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	store := &BadgerStore{
		inmemStore: NewInmemStore(cacheSize),
		db:         handle,
		path:       path,
		logger:     logger,
	}

	if err := store.loadCache(); err != nil {
		handle.Close()
		return nil, err
	}

	return store, nil
}

/*******************************************************************************
Keys
*******************************************************************************/

func deliveryKey(index int) []byte {
	return []byte(fmt.Sprintf("%s_%09d", deliveryPrefix, index))
}

/*******************************************************************************
Store interface implementation
*******************************************************************************/

// CacheSize implements the Store interface
func (s *BadgerStore) CacheSize() int {
	return s.inmemStore.CacheSize()
}

// Append writes the delivery to the database, then to the cache.
func (s *BadgerStore) Append(d *envelope.Delivery) error {
	if next := s.inmemStore.Count(); int(d.Index) != next {
		return s.inmemStore.Append(d)
	}

	if err := s.dbSetDelivery(d); err != nil {
		return err
	}

	return s.inmemStore.Append(d)
}

// Get tries the cache first and falls back to the database.
func (s *BadgerStore) Get(index int) (*envelope.Delivery, error) {
	d, err := s.inmemStore.Get(index)
	if err != nil && cm.IsStore(err, cm.TooLate) {
		d, err = s.dbGetDelivery(index)
	}
	return d, mapError(err, "Delivery", fmt.Sprint(index))
}

// Deliveries tries the cache first and falls back to the database.
func (s *BadgerStore) Deliveries(skip int) ([]*envelope.Delivery, error) {
	res, err := s.inmemStore.Deliveries(skip)
	if err != nil && cm.IsStore(err, cm.TooLate) {
		res, err = s.dbDeliveries(skip)
	}
	return res, err
}

// Last implements the Store interface
func (s *BadgerStore) Last() (*envelope.Delivery, error) {
	return s.inmemStore.Last()
}

// Count implements the Store interface
func (s *BadgerStore) Count() int {
	return s.inmemStore.Count()
}

// Close implements the Store interface
func (s *BadgerStore) Close() error {
	if err := s.inmemStore.Close(); err != nil {
		return err
	}
	return s.db.Close()
}

// StorePath implements the Store interface
func (s *BadgerStore) StorePath() string {
	return s.path
}

/*******************************************************************************
DB Methods
*******************************************************************************/

func (s *BadgerStore) loadCache() error {
	deliveries, err := s.dbDeliveries(-1)
	if err != nil {
		return err
	}

	for _, d := range deliveries {
		if err := s.inmemStore.Append(d); err != nil {
			return err
		}
	}

	s.logger.WithField("deliveries", len(deliveries)).Debug("Loaded delivery log")

	return nil
}

func (s *BadgerStore) dbGetDelivery(index int) (*envelope.Delivery, error) {
	d := new(envelope.Delivery)

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(deliveryKey(index))
		if err != nil {
			return err
		}
		return item.Value(func(data []byte) error {
			return d.Unmarshal(data)
		})
	})

	if err != nil {
		return nil, err
	}

	return d, nil
}

func (s *BadgerStore) dbDeliveries(skip int) ([]*envelope.Delivery, error) {
	res := []*envelope.Delivery{}

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(deliveryPrefix)
		for it.Seek(deliveryKey(skip + 1)); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()

			err := item.Value(func(data []byte) error {
				d := new(envelope.Delivery)
				if err := d.Unmarshal(data); err != nil {
					return err
				}
				res = append(res, d)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return res, nil
}

func (s *BadgerStore) dbSetDelivery(d *envelope.Delivery) error {
	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	val, err := d.Marshal()
	if err != nil {
		return err
	}

	//insert [delivery_index] => [Delivery]
	if err := tx.Set(deliveryKey(int(d.Index)), val); err != nil {
		return err
	}

	return tx.Commit()
}

func isDBKeyNotFound(err error) bool {
	return err.Error() == badger.ErrKeyNotFound.Error()
}

func mapError(err error, name, key string) error {
	if err != nil {
		if isDBKeyNotFound(err) {
			return cm.NewStoreErr(name, cm.KeyNotFound, key)
		}
	}
	return err
}
