package peers

import (
	"io/ioutil"
	"path/filepath"
	"sync"
)

const (
	jsonPeerSetPath = "peers.json"
)

// JSONPeerSet is used to provide peer persistence on disk in the form of a JSON
// file.
type JSONPeerSet struct {
	l    sync.Mutex
	path string
}

// NewJSONPeerSet creates a new JSONPeerSet with reference to a base directory
// where the JSON file resides.
func NewJSONPeerSet(base string) *JSONPeerSet {
	store := &JSONPeerSet{
		path: filepath.Join(base, jsonPeerSetPath),
	}
	return store
}

// PeerSet parses the underlying JSON file and returns the corresponding
// PeerSet.
func (j *JSONPeerSet) PeerSet() (*PeerSet, error) {
	j.l.Lock()
	defer j.l.Unlock()

	// Read the file
	buf, err := ioutil.ReadFile(j.path)
	if err != nil {
		return nil, err
	}

	// Check for no peers
	if len(buf) == 0 {
		return nil, nil
	}

	peerSet, err := NewPeerSetFromPeerSliceBytes(buf)
	if err != nil {
		return nil, err
	}

	if err := peerSet.Validate(); err != nil {
		return nil, err
	}

	return peerSet, nil
}

// Write persists a PeerSet to the JSON file.
func (j *JSONPeerSet) Write(peerSet *PeerSet) error {
	j.l.Lock()
	defer j.l.Unlock()

	data, err := peerSet.Marshal()
	if err != nil {
		return err
	}

	return ioutil.WriteFile(j.path, data, 0755)
}
