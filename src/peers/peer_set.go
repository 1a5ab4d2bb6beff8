package peers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// PeerSet is the set of Peers forming a causal group.
type PeerSet struct {
	Peers []*Peer       `json:"peers"`
	ByID  map[int]*Peer `json:"-"`
}

// NewPeerSet creates a new PeerSet from a list of Peers. Peers are sorted by
// ID.
func NewPeerSet(peers []*Peer) *PeerSet {
	peerSet := &PeerSet{
		ByID: make(map[int]*Peer),
	}

	sorted := make([]*Peer, len(peers))
	copy(sorted, peers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, peer := range sorted {
		peerSet.ByID[peer.ID] = peer
	}

	peerSet.Peers = sorted

	return peerSet
}

// NewPeerSetFromPeerSliceBytes creates a new PeerSet from a JSON encoded slice
// of peers.
func NewPeerSetFromPeerSliceBytes(peerSliceBytes []byte) (*PeerSet, error) {
	peers := []*Peer{}

	b := bytes.NewBuffer(peerSliceBytes)
	dec := json.NewDecoder(b)

	if err := dec.Decode(&peers); err != nil {
		return nil, err
	}

	return NewPeerSet(peers), nil
}

// Len returns the number of Peers in the PeerSet
func (peerSet *PeerSet) Len() int {
	return len(peerSet.Peers)
}

// IDs returns the PeerSet's slice of IDs
func (peerSet *PeerSet) IDs() []int {
	res := []int{}
	for _, peer := range peerSet.Peers {
		res = append(res, peer.ID)
	}
	return res
}

// Addr returns the network address of process id.
func (peerSet *PeerSet) Addr(id int) (string, error) {
	p, ok := peerSet.ByID[id]
	if !ok {
		return "", fmt.Errorf("no peer with id %d", id)
	}
	return p.NetAddr, nil
}

// Validate checks that the IDs are exactly 0 through Len()-1.
func (peerSet *PeerSet) Validate() error {
	if peerSet.Len() == 0 {
		return fmt.Errorf("empty peer set")
	}
	for i, p := range peerSet.Peers {
		if p.ID != i {
			return fmt.Errorf("peer ids must be 0 to %d, found %d at position %d", peerSet.Len()-1, p.ID, i)
		}
	}
	return nil
}

// Marshal marshals the peerset
func (peerSet *PeerSet) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(peerSet.Peers); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
