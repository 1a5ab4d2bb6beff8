package net

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/mosaicnetworks/causal/src/envelope"
	"github.com/mosaicnetworks/causal/src/peers"
	"github.com/sirupsen/logrus"
)

/*******************************************************************************
THE CONNECTION POOL AND FRAMING FOLLOW HASHICORP RAFT
*******************************************************************************/

const (
	rpcEnvelope uint8 = iota
)

const (
	respOK uint8 = iota
	respError
)

const (
	bufSize = 64 * 1024

	// maxFrameSize bounds the size of an encoded envelope accepted from the
	// wire.
	maxFrameSize = 64 * 1024 * 1024

	// consumeBuffer is the capacity of the consumer channel.
	consumeBuffer = 1024
)

var (
	// ErrTransportShutdown is returned when operations on a transport are
	// invoked after it's been terminated.
	ErrTransportShutdown = errors.New("transport shutdown")

	errFrameTooLarge = errors.New("frame too large")
)

/*
NetworkTransport provides a network based transport that can be used to
communicate with causal processes on remote machines. It requires an underlying
stream layer to provide a stream abstraction, which can be simple TCP, TLS, etc.

Each envelope is framed by sending a byte that indicates the message type,
followed by the length of the encoded envelope and the envelope itself. The
receiver hands the envelope to its consumer channel before acknowledging it
with a status byte, optionally followed by a length-prefixed error string.
Because a sender waits for the acknowledgement before sending the next
envelope, the envelopes of one sender reach the consumer channel of a
receiver in the order they were sent.
*/
type NetworkTransport struct {
	logger *logrus.Entry

	self      int
	peers     *peers.PeerSet
	peersLock sync.RWMutex

	connPool     map[string][]*netConn
	connPoolLock sync.Mutex
	maxPool      int

	consumeCh chan *envelope.Envelope

	shutdown     bool
	shutdownCh   chan struct{}
	shutdownLock sync.Mutex

	stream StreamLayer

	timeout time.Duration
}

type netConn struct {
	target string
	conn   net.Conn
	r      *bufio.Reader
	w      *bufio.Writer
}

// Release closes the underlying connection
func (n *netConn) Release() error {
	return n.conn.Close()
}

// NewNetworkTransport creates a new network transport with the given stream
// layer. self is the ID of the local process and peerSet resolves the IDs of
// the other processes to addresses; it can be set later with SetPeers. The
// maxPool controls how many connections we will pool (per target). The
// timeout is used to apply I/O deadlines.
func NewNetworkTransport(
	stream StreamLayer,
	maxPool int,
	timeout time.Duration,
	self int,
	peerSet *peers.PeerSet,
	logger *logrus.Entry,
) *NetworkTransport {

	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	trans := &NetworkTransport{
		self:       self,
		peers:      peerSet,
		connPool:   make(map[string][]*netConn),
		consumeCh:  make(chan *envelope.Envelope, consumeBuffer),
		logger:     logger,
		maxPool:    maxPool,
		shutdownCh: make(chan struct{}),
		stream:     stream,
		timeout:    timeout,
	}

	return trans
}

// SetPeers replaces the peer set used to resolve process addresses.
func (n *NetworkTransport) SetPeers(peerSet *peers.PeerSet) {
	n.peersLock.Lock()
	defer n.peersLock.Unlock()
	n.peers = peerSet
}

func (n *NetworkTransport) addr(target int) (string, error) {
	n.peersLock.RLock()
	defer n.peersLock.RUnlock()

	if n.peers == nil {
		return "", fmt.Errorf("%w: %d (no peers)", ErrUnknownTarget, target)
	}

	addr, err := n.peers.Addr(target)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnknownTarget, err)
	}

	return addr, nil
}

// Close is used to stop the network transport.
func (n *NetworkTransport) Close() error {
	n.shutdownLock.Lock()
	defer n.shutdownLock.Unlock()

	if !n.shutdown {
		close(n.shutdownCh)
		n.stream.Close()

		n.connPoolLock.Lock()
		for target, conns := range n.connPool {
			for _, conn := range conns {
				conn.Release()
			}
			delete(n.connPool, target)
		}
		n.connPoolLock.Unlock()

		n.shutdown = true
	}
	return nil
}

// Consumer implements the Transport interface.
func (n *NetworkTransport) Consumer() <-chan *envelope.Envelope {
	return n.consumeCh
}

// LocalAddr implements the Transport interface.
func (n *NetworkTransport) LocalAddr() string {
	addr := n.stream.Addr()

	if addr != nil {
		return addr.String()
	}

	return ""
}

// AdvertiseAddr implements the Transport interface.
func (n *NetworkTransport) AdvertiseAddr() string {
	return n.stream.AdvertiseAddr()
}

// IsShutdown is used to check if the transport is shutdown.
func (n *NetworkTransport) IsShutdown() bool {
	select {
	case <-n.shutdownCh:
		return true
	default:
		return false
	}
}

// getPooledConn is used to grab a pooled connection.
func (n *NetworkTransport) getPooledConn(target string) *netConn {
	n.connPoolLock.Lock()
	defer n.connPoolLock.Unlock()

	conns, ok := n.connPool[target]
	if !ok || len(conns) == 0 {
		return nil
	}

	var conn *netConn
	num := len(conns)
	conn, conns[num-1] = conns[num-1], nil
	n.connPool[target] = conns[:num-1]
	return conn
}

// getConn is used to get a connection from the pool.
func (n *NetworkTransport) getConn(target string, timeout time.Duration) (*netConn, error) {
	// Check for a pooled conn
	if conn := n.getPooledConn(target); conn != nil {
		return conn, nil
	}

	// Dial a new connection
	conn, err := n.stream.Dial(target, timeout)
	if err != nil {
		return nil, err
	}

	return &netConn{
		target: target,
		conn:   conn,
		r:      bufio.NewReaderSize(conn, bufSize),
		w:      bufio.NewWriterSize(conn, bufSize),
	}, nil
}

// returnConn returns a connection back to the pool.
func (n *NetworkTransport) returnConn(conn *netConn) {
	n.connPoolLock.Lock()
	defer n.connPoolLock.Unlock()

	key := conn.target
	conns := n.connPool[key]

	if !n.IsShutdown() && len(conns) < n.maxPool {
		n.connPool[key] = append(conns, conn)
	} else {
		conn.Release()
	}
}

// Send implements the Transport interface.
func (n *NetworkTransport) Send(target int, env *envelope.Envelope) error {
	if n.IsShutdown() {
		return ErrTransportShutdown
	}

	if target == n.self {
		return fmt.Errorf("%w: %d is the local process", ErrUnknownTarget, target)
	}

	addr, err := n.addr(target)
	if err != nil {
		return err
	}

	data, err := env.Marshal()
	if err != nil {
		return err
	}

	return n.genericRPC(addr, rpcEnvelope, n.timeout, data)
}

// Multicast implements the Transport interface. It tries every other process
// and returns the joined errors.
func (n *NetworkTransport) Multicast(env *envelope.Envelope) error {
	n.peersLock.RLock()
	var ids []int
	if n.peers != nil {
		ids = n.peers.IDs()
	}
	n.peersLock.RUnlock()

	var errs []error
	for _, id := range ids {
		if id == n.self {
			continue
		}
		if err := n.Send(id, env); err != nil {
			errs = append(errs, fmt.Errorf("sending to %d: %w", id, err))
		}
	}

	return errors.Join(errs...)
}

// genericRPC sends a frame and waits for the acknowledgement.
func (n *NetworkTransport) genericRPC(target string, rpcType uint8, timeout time.Duration, data []byte) error {
	// Get a conn
	conn, err := n.getConn(target, timeout)
	if err != nil {
		return err
	}

	// Set a deadline
	if timeout > 0 {
		conn.conn.SetDeadline(time.Now().Add(timeout))
	}

	// Send the RPC
	if err = sendRPC(conn, rpcType, data); err != nil {
		return err
	}

	// Decode the response
	canReturn, err := decodeResponse(conn)
	if canReturn {
		n.returnConn(conn)
	}

	return err
}

// sendRPC is used to frame and send the RPC.
func sendRPC(conn *netConn, rpcType uint8, data []byte) error {
	// Write the request type
	if err := conn.w.WriteByte(rpcType); err != nil {
		conn.Release()
		return err
	}

	// Send the request
	if err := writeFrame(conn.w, data); err != nil {
		conn.Release()
		return err
	}

	// Flush
	if err := conn.w.Flush(); err != nil {
		conn.Release()
		return err
	}
	return nil
}

// decodeResponse is used to decode an RPC response and reports whether
// the connection can be reused.
func decodeResponse(conn *netConn) (bool, error) {
	status, err := conn.r.ReadByte()
	if err != nil {
		conn.Release()
		return false, err
	}

	switch status {
	case respOK:
		return true, nil
	case respError:
		msg, err := readFrame(conn.r)
		if err != nil {
			conn.Release()
			return false, err
		}
		return true, errors.New(string(msg))
	default:
		conn.Release()
		return false, fmt.Errorf("unknown response status %d", status)
	}
}

func writeFrame(w io.Writer, data []byte) error {
	var size [4]byte
	binary.BigEndian.PutUint32(size[:], uint32(len(data)))

	if _, err := w.Write(size[:]); err != nil {
		return err
	}

	_, err := w.Write(data)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	var size [4]byte
	if _, err := io.ReadFull(r, size[:]); err != nil {
		return nil, err
	}

	l := binary.BigEndian.Uint32(size[:])
	if l > maxFrameSize {
		return nil, errFrameTooLarge
	}

	data := make([]byte, l)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}

	return data, nil
}

// Listen opens the stream and handles incoming connections.
func (n *NetworkTransport) Listen() {
	for {
		// Accept incoming connections
		conn, err := n.stream.Accept()
		if err != nil {
			if n.IsShutdown() {
				return
			}
			n.logger.WithField("error", err).Error("Failed to accept connection")
			continue
		}
		n.logger.WithFields(logrus.Fields{
			"node": conn.LocalAddr(),
			"from": conn.RemoteAddr(),
		}).Debug("accepted connection")

		// Handle the connection in dedicated routine
		go n.handleConn(conn)
	}
}

// handleConn is used to handle an inbound connection for its lifespan.
func (n *NetworkTransport) handleConn(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReaderSize(conn, bufSize)
	w := bufio.NewWriterSize(conn, bufSize)

	for {
		if err := n.handleCommand(r, w); err != nil {
			if err == ErrTransportShutdown {
				n.logger.WithField("error", err).Debug("Stop handling connection")
			} else if err != io.EOF {
				n.logger.WithField("error", err).Error("Failed to decode incoming command")
			}
			return
		}
		if err := w.Flush(); err != nil {
			n.logger.WithField("error", err).Error("Failed to flush response")
			return
		}
	}
}

// handleCommand is used to decode and dispatch a single command.
func (n *NetworkTransport) handleCommand(r *bufio.Reader, w *bufio.Writer) error {
	// Get the rpc type
	rpcType, err := r.ReadByte()
	if err != nil {
		return err
	}

	if rpcType != rpcEnvelope {
		return fmt.Errorf("unknown rpc type %d", rpcType)
	}

	data, err := readFrame(r)
	if err != nil {
		return err
	}

	env := new(envelope.Envelope)
	if err := env.Unmarshal(data); err != nil {
		return writeResponse(w, fmt.Errorf("decoding envelope: %v", err))
	}

	// Dispatch the envelope
	select {
	case n.consumeCh <- env:
	case <-n.shutdownCh:
		return ErrTransportShutdown
	}

	return writeResponse(w, nil)
}

func writeResponse(w *bufio.Writer, respErr error) error {
	if respErr == nil {
		return w.WriteByte(respOK)
	}

	if err := w.WriteByte(respError); err != nil {
		return err
	}

	return writeFrame(w, []byte(respErr.Error()))
}
