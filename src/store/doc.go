// Package store implements the delivery log of a causal process.
//
// Every message a process hands to its application is appended to a Store as
// an envelope.Delivery, indexed from 0 in delivery order. The log is not
// needed by the delivery algorithms; it serves observers, which read it
// through the HTTP service, and operators, who can keep it on disk.
//
// InmemStore keeps a bounded window of recent deliveries in memory.
// BadgerStore writes every delivery to a Badger database and keeps the same
// in-memory window as a cache in front of it.
package store
