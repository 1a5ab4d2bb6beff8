package service

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/mosaicnetworks/causal/src/envelope"
	"github.com/mosaicnetworks/causal/src/node"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// clientBuffer is the number of events queued for a websocket client before
// further events are dropped.
const clientBuffer = 256

// Service exposes the state of a set of processes over HTTP. It is read-only.
type Service struct {
	sync.Mutex

	bindAddress string
	procs       map[int]*node.Process
	registry    *prometheus.Registry
	router      *mux.Router
	upgrader    websocket.Upgrader

	clientsLock sync.Mutex
	clients     map[*client]struct{}

	logger *logrus.Entry
}

// NewService creates a Service for the given processes and registers itself
// as their observer. reg may be nil, in which case /metrics is not served.
func NewService(bindAddress string,
	procs []*node.Process,
	reg *prometheus.Registry,
	logger *logrus.Entry) *Service {

	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	service := Service{
		bindAddress: bindAddress,
		procs:       make(map[int]*node.Process),
		registry:    reg,
		router:      mux.NewRouter(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
		logger:  logger,
	}

	for _, p := range procs {
		service.procs[p.ID()] = p
		p.AddObserver(&service)
	}

	service.registerHandlers()

	return &service
}

func (s *Service) registerHandlers() {
	s.logger.Debug("Registering causal API handlers")
	s.router.HandleFunc("/stats", s.makeHandler(s.GetStats)).Methods("GET")
	s.router.HandleFunc("/processes/{id:[0-9]+}", s.makeHandler(s.GetProcess)).Methods("GET")
	s.router.HandleFunc("/deliveries/{id:[0-9]+}", s.makeHandler(s.GetDeliveries)).Methods("GET")
	s.router.HandleFunc("/events", s.GetEvents)
	if s.registry != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		defer s.Unlock()

		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// Handler returns the router serving the API.
func (s *Service) Handler() http.Handler {
	return s.router
}

// Serve calls ListenAndServe. This is a blocking call.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving causal API")

	err := http.ListenAndServe(s.bindAddress, s.router)
	if err != nil {
		s.logger.Error(err)
	}
}

// GetStats returns the counters of every process, keyed by process ID.
func (s *Service) GetStats(w http.ResponseWriter, r *http.Request) {
	stats := make(map[int]node.Stats, len(s.procs))
	for id, p := range s.procs {
		stats[id] = p.Stats()
	}

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(stats)
}

// GetProcess returns the snapshot of a process.
func (s *Service) GetProcess(w http.ResponseWriter, r *http.Request) {
	p, ok := s.process(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(p.Snapshot())
}

// GetDeliveries returns the deliveries of a process with an index greater
// than the skip query parameter (default -1, ie. all retained deliveries).
func (s *Service) GetDeliveries(w http.ResponseWriter, r *http.Request) {
	p, ok := s.process(w, r)
	if !ok {
		return
	}

	skip := -1
	if param := r.URL.Query().Get("skip"); param != "" {
		var err error
		skip, err = strconv.Atoi(param)
		if err != nil {
			s.logger.WithError(err).Errorf("Parsing skip parameter %s", param)

			http.Error(w, err.Error(), http.StatusBadRequest)

			return
		}
	}

	deliveries, err := p.Store().Deliveries(skip)
	if err != nil {
		s.logger.WithError(err).Errorf("Retrieving deliveries of process %d", p.ID())

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	if deliveries == nil {
		deliveries = []*envelope.Delivery{}
	}

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(deliveries)
}

func (s *Service) process(w http.ResponseWriter, r *http.Request) (*node.Process, bool) {
	param := mux.Vars(r)["id"]

	id, err := strconv.Atoi(param)
	if err != nil {
		s.logger.WithError(err).Errorf("Parsing id parameter %s", param)

		http.Error(w, err.Error(), http.StatusBadRequest)

		return nil, false
	}

	p, ok := s.procs[id]
	if !ok {
		http.Error(w, "unknown process "+param, http.StatusNotFound)

		return nil, false
	}

	return p, true
}
