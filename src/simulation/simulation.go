package simulation

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/mosaicnetworks/causal/src/config"
	"github.com/mosaicnetworks/causal/src/envelope"
	"github.com/mosaicnetworks/causal/src/metrics"
	"github.com/mosaicnetworks/causal/src/net"
	"github.com/mosaicnetworks/causal/src/node"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Simulation runs a group of processes over an InmemNetwork.
type Simulation struct {
	conf      *config.Config
	algorithm envelope.Algorithm

	network   *net.InmemNetwork
	procs     []*node.Process
	recorder  *Recorder
	collector *metrics.Collector
	registry  *prometheus.Registry

	rounds int

	logger *logrus.Entry
}

// New creates a Simulation of conf.Processes processes running
// conf.Algorithm. The network is seeded with conf.Seed.
func New(conf *config.Config) (*Simulation, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	algo, err := conf.ParsedAlgorithm()
	if err != nil {
		return nil, err
	}

	logger := conf.Logger()

	sim := &Simulation{
		conf:      conf,
		algorithm: algo,
		network:   net.NewInmemNetwork(conf.Processes, conf.Seed, logger),
		recorder:  NewRecorder(conf.Processes),
		collector: metrics.NewCollector(algo),
		registry:  prometheus.NewRegistry(),
		logger:    logger,
	}

	sim.network.SetMaxDelay(conf.MaxDelay)

	if err := sim.collector.Register(sim.registry); err != nil {
		return nil, err
	}

	for i := 0; i < conf.Processes; i++ {
		pconf := node.NewConfig(i, conf.Processes, algo, conf.CacheSize, logger.WithField("process", i))

		p, err := node.NewProcess(pconf, sim.network.Transport(i), nil)
		if err != nil {
			return nil, err
		}

		p.AddObserver(sim.recorder)
		p.AddObserver(sim.collector)

		sim.network.Attach(i, p)
		sim.procs = append(sim.procs, p)
	}

	logger.WithFields(logrus.Fields{
		"network":   sim.network.ID(),
		"algorithm": algo.String(),
		"processes": conf.Processes,
		"seed":      conf.Seed,
	}).Debug("New simulation")

	return sim, nil
}

// Processes returns the simulated processes.
func (s *Simulation) Processes() []*node.Process {
	return s.procs
}

// Network returns the simulated network.
func (s *Simulation) Network() *net.InmemNetwork {
	return s.network
}

// Recorder returns the recorder observing the processes.
func (s *Simulation) Recorder() *Recorder {
	return s.recorder
}

// Registry returns the registry of the simulation metrics.
func (s *Simulation) Registry() *prometheus.Registry {
	return s.registry
}

// Run makes every process send conf.Messages messages concurrently while the
// network delivers envelopes, then flushes the network and checks the
// deliveries.
func (s *Simulation) Run(ctx context.Context) (*Report, error) {
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)

	senders := int32(len(s.procs))

	for i, p := range s.procs {
		i, p := i, p

		g.Go(func() error {
			defer atomic.AddInt32(&senders, -1)

			for m := 0; m < s.conf.Messages; m++ {
				if err := ctx.Err(); err != nil {
					return err
				}

				payload := []byte(fmt.Sprintf("p%d-m%d", i, m))

				if _, err := p.Send(payload); err != nil {
					return err
				}

				runtime.Gosched()
			}
			return nil
		})
	}

	g.Go(func() error {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}

			ok, err := s.network.Step()
			if err != nil {
				return err
			}

			if !ok {
				if atomic.LoadInt32(&senders) == 0 {
					return nil
				}
				runtime.Gosched()
			}
		}
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := s.network.Flush(); err != nil {
		return nil, err
	}

	report := s.report(time.Since(start))

	s.logger.WithFields(logrus.Fields{
		"messages":   report.Messages,
		"deliveries": report.Deliveries,
		"elapsed":    report.Elapsed,
	}).Debug("Simulation done")

	return report, s.recorder.Check()
}

// Round makes every process broadcast one message, in process order, and
// flushes the network.
func (s *Simulation) Round() error {
	s.rounds++

	for i, p := range s.procs {
		payload := []byte(fmt.Sprintf("r%d-p%d", s.rounds, i))
		if _, err := p.Send(payload); err != nil {
			return err
		}
	}

	return s.network.Flush()
}

// Check verifies the deliveries observed so far.
func (s *Simulation) Check() error {
	return s.recorder.Check()
}

// Stop stops every process. Errors are logged.
func (s *Simulation) Stop() {
	for _, p := range s.procs {
		if err := p.Stop(); err != nil {
			s.logger.WithField("process", p.ID()).WithError(err).Error("Stopping process")
		}
	}
}
