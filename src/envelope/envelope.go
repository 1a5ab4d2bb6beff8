package envelope

import (
	"bytes"
	"fmt"

	"github.com/ugorji/go/codec"
)

// Broadcast is the destination of envelopes addressed to every other process.
const Broadcast = -1

// ID uniquely identifies a message in a run.
type ID struct {
	Sender int
	Seq    uint64
}

// String returns the ID formatted as sender:seq
func (id ID) String() string {
	return fmt.Sprintf("%d:%d", id.Sender, id.Seq)
}

// Envelope wraps an application payload with causal metadata.
type Envelope struct {
	Sender   int      `json:"sender"`
	Seq      uint64   `json:"seq"`
	Dest     int      `json:"dest"`
	Payload  []byte   `json:"payload"`
	Metadata Metadata `json:"metadata"`
}

// New creates an Envelope. The payload and metadata are copied.
func New(sender int, seq uint64, dest int, payload []byte, md Metadata) *Envelope {
	var p []byte
	if payload != nil {
		p = make([]byte, len(payload))
		copy(p, payload)
	}
	return &Envelope{
		Sender:   sender,
		Seq:      seq,
		Dest:     dest,
		Payload:  p,
		Metadata: md.Copy(),
	}
}

// ID returns the (sender, seq) pair of the envelope.
func (e *Envelope) ID() ID {
	return ID{Sender: e.Sender, Seq: e.Seq}
}

// Validate checks the envelope against a group of n processes running algo.
// It does not check the metadata against the sender's sequence number, which
// is the strategy's job.
func (e *Envelope) Validate(algo Algorithm, n int) error {
	if e.Sender < 0 || e.Sender >= n {
		return fmt.Errorf("sender %d out of range [0, %d)", e.Sender, n)
	}
	if e.Seq == 0 {
		return fmt.Errorf("sequence number 0")
	}
	if e.Dest != Broadcast && (e.Dest < 0 || e.Dest >= n) {
		return fmt.Errorf("destination %d out of range [0, %d)", e.Dest, n)
	}
	return e.Metadata.Validate(algo, n)
}

// Marshal returns the JSON encoding of the envelope
func (e *Envelope) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(e); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal parses a JSON encoded envelope
func (e *Envelope) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(e)
}

// String returns a short description of the envelope for logs
func (e *Envelope) String() string {
	return fmt.Sprintf("%s->%d %s", e.ID(), e.Dest, e.Metadata)
}
