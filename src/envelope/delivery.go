package envelope

import (
	"bytes"

	"github.com/mosaicnetworks/causal/src/clock"
	"github.com/ugorji/go/codec"
)

// Delivery records a message handed to the application by a process.
type Delivery struct {
	// Receiver is the process that delivered the message.
	Receiver int `json:"receiver"`
	// Index is the position of the delivery in the receiver's delivery
	// sequence, starting at 0.
	Index   uint64 `json:"index"`
	Sender  int    `json:"sender"`
	Seq     uint64 `json:"seq"`
	Payload []byte `json:"payload"`
	// Vector is the receiver's vector clock right after the delivery.
	Vector clock.VectorClock `json:"vector"`
}

// ID returns the identifier of the delivered message.
func (d *Delivery) ID() ID {
	return ID{Sender: d.Sender, Seq: d.Seq}
}

// Copy returns a deep copy of the delivery.
func (d *Delivery) Copy() *Delivery {
	c := *d
	if d.Payload != nil {
		c.Payload = make([]byte, len(d.Payload))
		copy(c.Payload, d.Payload)
	}
	c.Vector = d.Vector.Copy()
	return &c
}

// Marshal returns the JSON encoding of the delivery
func (d *Delivery) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(d); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal parses a JSON encoded delivery
func (d *Delivery) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(d)
}
