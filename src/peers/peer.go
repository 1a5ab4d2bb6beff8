package peers

import "fmt"

// Peer is a member of a causal group.
type Peer struct {
	ID      int    `json:"id"`
	NetAddr string `json:"net_addr"`
	Moniker string `json:"moniker,omitempty"`
}

// NewPeer creates a Peer.
func NewPeer(id int, netAddr, moniker string) *Peer {
	return &Peer{
		ID:      id,
		NetAddr: netAddr,
		Moniker: moniker,
	}
}

// String returns the moniker if set, or the ID and address.
func (p *Peer) String() string {
	if p.Moniker != "" {
		return p.Moniker
	}
	return fmt.Sprintf("%d@%s", p.ID, p.NetAddr)
}
