package service

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/mosaicnetworks/causal/src/envelope"
	"github.com/mosaicnetworks/causal/src/node"
)

// Event types pushed on /events.
const (
	EventSent          = "sent"
	EventDelivered     = "delivered"
	EventBuffered      = "buffered"
	EventDiscarded     = "discarded"
	EventBufferResized = "buffer_resized"
)

// Event is a process signal as streamed to websocket clients.
type Event struct {
	Type     string             `json:"type"`
	Process  int                `json:"process"`
	Sender   int                `json:"sender,omitempty"`
	Seq      uint64             `json:"seq,omitempty"`
	Size     int                `json:"size,omitempty"`
	Reason   string             `json:"reason,omitempty"`
	Delivery *envelope.Delivery `json:"delivery,omitempty"`
}

type client struct {
	send chan []byte
}

// GetEvents upgrades the connection to a websocket and streams Events until
// the client goes away.
func (s *Service) GetEvents(w http.ResponseWriter, r *http.Request) {
	c := &client{send: make(chan []byte, clientBuffer)}

	// register before the handshake completes so that no event emitted after
	// the client sees the upgrade is missed
	s.addClient(c)
	defer s.removeClient(c)

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Error("Upgrading events connection")
		return
	}
	defer ws.Close()

	s.logger.WithField("remote", r.RemoteAddr).Debug("Events client connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg := <-c.send:
			if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.logger.WithError(err).Debug("Writing event")
				return
			}
		case <-done:
			s.logger.WithField("remote", r.RemoteAddr).Debug("Events client disconnected")
			return
		}
	}
}

func (s *Service) addClient(c *client) {
	s.clientsLock.Lock()
	defer s.clientsLock.Unlock()
	s.clients[c] = struct{}{}
}

func (s *Service) removeClient(c *client) {
	s.clientsLock.Lock()
	defer s.clientsLock.Unlock()
	delete(s.clients, c)
}

// publish never blocks; a client whose queue is full misses the event.
func (s *Service) publish(ev Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		s.logger.WithError(err).Error("Encoding event")
		return
	}

	s.clientsLock.Lock()
	defer s.clientsLock.Unlock()

	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
			s.logger.WithField("type", ev.Type).Debug("Dropping event for slow client")
		}
	}
}

// Sent implements node.Observer.
func (s *Service) Sent(p int, seq uint64, envs []*envelope.Envelope) {
	s.publish(Event{Type: EventSent, Process: p, Sender: p, Seq: seq, Size: len(envs)})
}

// Delivered implements node.Observer.
func (s *Service) Delivered(d *envelope.Delivery) {
	s.publish(Event{Type: EventDelivered, Process: d.Receiver, Sender: d.Sender, Seq: d.Seq, Delivery: d})
}

// Buffered implements node.Observer.
func (s *Service) Buffered(p int, env *envelope.Envelope) {
	s.publish(Event{Type: EventBuffered, Process: p, Sender: env.Sender, Seq: env.Seq})
}

// Discarded implements node.Observer.
func (s *Service) Discarded(p int, env *envelope.Envelope, reason node.DiscardReason) {
	ev := Event{Type: EventDiscarded, Process: p, Reason: reason.String()}
	if env != nil {
		ev.Sender = env.Sender
		ev.Seq = env.Seq
	}
	s.publish(ev)
}

// BufferResized implements node.Observer.
func (s *Service) BufferResized(p int, size int) {
	s.publish(Event{Type: EventBufferResized, Process: p, Size: size})
}
