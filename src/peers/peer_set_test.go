package peers

import (
	"os"
	"reflect"
	"testing"
)

func TestJSONPeerSet(t *testing.T) {
	dir, err := os.MkdirTemp("", "causal-peers")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	peerSet := NewPeerSet([]*Peer{
		NewPeer(2, "127.0.0.1:1339", "carol"),
		NewPeer(0, "127.0.0.1:1337", "alice"),
		NewPeer(1, "127.0.0.1:1338", ""),
	})

	if !reflect.DeepEqual(peerSet.IDs(), []int{0, 1, 2}) {
		t.Fatalf("peers should be sorted by id, got %v", peerSet.IDs())
	}

	store := NewJSONPeerSet(dir)
	if err := store.Write(peerSet); err != nil {
		t.Fatal(err)
	}

	res, err := store.PeerSet()
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(res.Peers, peerSet.Peers) {
		t.Fatalf("peers should be %v, not %v", peerSet.Peers, res.Peers)
	}

	addr, err := res.Addr(1)
	if err != nil {
		t.Fatal(err)
	}
	if addr != "127.0.0.1:1338" {
		t.Fatalf("Addr(1) should be 127.0.0.1:1338, not %s", addr)
	}

	if _, err := res.Addr(3); err == nil {
		t.Fatalf("Addr(3) should fail")
	}

	if s := res.ByID[1].String(); s != "1@127.0.0.1:1338" {
		t.Fatalf("String should be 1@127.0.0.1:1338, not %s", s)
	}
}

func TestPeerSetValidate(t *testing.T) {
	gap := NewPeerSet([]*Peer{NewPeer(0, "a", ""), NewPeer(2, "b", "")})
	if err := gap.Validate(); err == nil {
		t.Fatalf("peer set with a gap should be invalid")
	}

	if err := NewPeerSet(nil).Validate(); err == nil {
		t.Fatalf("empty peer set should be invalid")
	}
}
