package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/mosaicnetworks/causal/src/envelope"
	"github.com/mosaicnetworks/causal/src/metrics"
	"github.com/mosaicnetworks/causal/src/net"
	"github.com/mosaicnetworks/causal/src/node"
	"github.com/mosaicnetworks/causal/src/peers"
	"github.com/mosaicnetworks/causal/src/service"
	"github.com/mosaicnetworks/causal/src/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//NewRunCmd returns the command that starts a causal process over TCP
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run a process",
		Long:    "Run a process of the group described by [datadir]/peers.json. Every line read from stdin is broadcast to the group, and every delivered message is printed to stdout.",
		PreRunE: loadRunConfig,
		RunE:    runProcess,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runProcess(cmd *cobra.Command, args []string) error {
	conf := &_config.Causal
	logger := conf.Logger()

	peerSet, err := peers.NewJSONPeerSet(conf.DataDir).PeerSet()
	if err != nil {
		logger.WithError(err).Error("Cannot read peers")
		return err
	}
	conf.Processes = peerSet.Len()

	pconf, err := node.ConfigFrom(conf)
	if err != nil {
		return err
	}

	var st store.Store
	if conf.Store {
		st, err = store.NewBadgerStore(conf.CacheSize, conf.DatabaseDir, logger)
		if err != nil {
			logger.WithError(err).Error("Cannot open badger store")
			return err
		}
	} else {
		st = store.NewInmemStore(conf.CacheSize)
	}
	defer st.Close()

	trans, err := net.NewTCPTransport(
		conf.BindAddr,
		conf.AdvertiseAddr,
		conf.MaxPool,
		conf.TCPTimeout,
		conf.ProcessID,
		peerSet,
		logger.WithField("component", "transport"),
	)
	if err != nil {
		logger.WithError(err).Error("Cannot create transport")
		return err
	}
	go trans.Listen()

	proc, err := node.NewProcess(pconf, trans, st)
	if err != nil {
		return err
	}
	defer proc.Stop()

	if err := proc.OnDeliver(func(d *envelope.Delivery) {
		fmt.Printf("[%d:%d] %s\n", d.Sender, d.Seq, d.Payload)
	}); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(pconf.Algorithm)
	if err := collector.Register(reg); err != nil {
		return err
	}
	proc.AddObserver(collector)

	if !conf.NoService {
		srv := service.NewService(conf.ServiceAddr, []*node.Process{proc}, reg, logger.WithField("component", "service"))
		go srv.Serve()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- proc.Run(ctx)
	}()

	go readInput(proc, logger)

	select {
	case <-ctx.Done():
		logger.Debug("Interrupted")
		return nil
	case err := <-errCh:
		return err
	}
}

// readInput broadcasts every line read from stdin.
func readInput(proc *node.Process, logger *logrus.Entry) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		seq, err := proc.Send(scanner.Bytes())
		if err != nil {
			logger.WithError(err).Error("Send")
			continue
		}
		logger.WithField("seq", seq).Debug("Sent")
	}
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("datadir", _config.Causal.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.Causal.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.LogFile, "Also write logs to this file")

	// Group
	cmd.Flags().String("algorithm", _config.Causal.Algorithm, "Causal delivery algorithm: bss, ses or matrix")
	cmd.Flags().Int("id", _config.Causal.ProcessID, "ID of this process in peers.json")

	// Network
	cmd.Flags().StringP("listen", "l", _config.Causal.BindAddr, "Listen IP:Port for the process")
	cmd.Flags().StringP("advertise", "a", _config.Causal.AdvertiseAddr, "Advertise IP:Port for the process")
	cmd.Flags().DurationP("timeout", "t", _config.Causal.TCPTimeout, "TCP Timeout")
	cmd.Flags().Int("max-pool", _config.Causal.MaxPool, "Connection pool size max")

	// Service
	cmd.Flags().Bool("no-service", _config.Causal.NoService, "Disable HTTP service")
	cmd.Flags().StringP("service-listen", "s", _config.Causal.ServiceAddr, "Listen IP:Port for HTTP service")

	// Store
	cmd.Flags().Bool("store", _config.Causal.Store, "Log deliveries to badgerDB instead of memory")
	cmd.Flags().String("db", _config.Causal.DatabaseDir, "Dabatabase directory")
	cmd.Flags().Int("cache-size", _config.Causal.CacheSize, "Number of deliveries kept in memory")
}

func loadRunConfig(cmd *cobra.Command, args []string) error {
	if err := bindFlagsLoadViper(cmd); err != nil {
		return err
	}

	logFields := logrus.Fields{
		"causal.DataDir":       _config.Causal.DataDir,
		"causal.LogLevel":      _config.Causal.LogLevel,
		"causal.Algorithm":     _config.Causal.Algorithm,
		"causal.ProcessID":     _config.Causal.ProcessID,
		"causal.BindAddr":      _config.Causal.BindAddr,
		"causal.AdvertiseAddr": _config.Causal.AdvertiseAddr,
		"causal.TCPTimeout":    _config.Causal.TCPTimeout,
		"causal.MaxPool":       _config.Causal.MaxPool,
		"causal.NoService":     _config.Causal.NoService,
		"causal.ServiceAddr":   _config.Causal.ServiceAddr,
		"causal.Store":         _config.Causal.Store,
		"causal.CacheSize":     _config.Causal.CacheSize,
		"LogFile":              _config.LogFile,
	}

	if _config.Causal.Store {
		logFields["causal.DatabaseDir"] = _config.Causal.DatabaseDir
	}

	_config.Causal.Logger().WithFields(logFields).Debug("RUN")

	return nil
}
