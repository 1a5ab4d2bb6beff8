package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/mosaicnetworks/causal/src/envelope"
	"github.com/mosaicnetworks/causal/src/simulation"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

//NewSimulateCmd returns the command that runs an in-memory simulation
func NewSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "simulate",
		Short:   "Run a group of processes over a simulated network",
		PreRunE: loadSimulateConfig,
		RunE:    runSimulate,
	}
	AddSimulateFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	algorithms := []string{_config.Causal.Algorithm}
	if _config.Compare {
		algorithms = nil
		for _, a := range envelope.Algorithms() {
			algorithms = append(algorithms, a.String())
		}
	}

	for _, a := range algorithms {
		conf := _config.Causal
		conf.Algorithm = a

		sim, err := simulation.New(&conf)
		if err != nil {
			return err
		}

		report, err := sim.Run(ctx)
		sim.Stop()

		if report != nil {
			fmt.Println(report)
		}
		if err != nil {
			_config.Causal.Logger().WithError(err).Error("Simulation failed")
			return err
		}
	}

	return nil
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddSimulateFlags adds flags to the Simulate command
func AddSimulateFlags(cmd *cobra.Command) {
	cmd.Flags().String("datadir", _config.Causal.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.Causal.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.LogFile, "Also write logs to this file")

	cmd.Flags().String("algorithm", _config.Causal.Algorithm, "Causal delivery algorithm: bss, ses or matrix")
	cmd.Flags().Bool("compare", _config.Compare, "Run every algorithm with the same parameters")
	cmd.Flags().IntP("processes", "n", _config.Causal.Processes, "Number of processes")
	cmd.Flags().IntP("messages", "m", _config.Causal.Messages, "Number of messages sent by each process")
	cmd.Flags().Int64("seed", _config.Causal.Seed, "Seed of the network scheduler")
	cmd.Flags().Int("max-delay", _config.Causal.MaxDelay, "Max number of steps an envelope can be held back")
	cmd.Flags().Int("cache-size", _config.Causal.CacheSize, "Number of deliveries kept in memory per process")
}

func loadSimulateConfig(cmd *cobra.Command, args []string) error {
	if err := bindFlagsLoadViper(cmd); err != nil {
		return err
	}

	_config.Causal.Logger().WithFields(logrus.Fields{
		"causal.DataDir":   _config.Causal.DataDir,
		"causal.LogLevel":  _config.Causal.LogLevel,
		"causal.Algorithm": _config.Causal.Algorithm,
		"causal.Processes": _config.Causal.Processes,
		"causal.Messages":  _config.Causal.Messages,
		"causal.Seed":      _config.Causal.Seed,
		"causal.MaxDelay":  _config.Causal.MaxDelay,
		"causal.CacheSize": _config.Causal.CacheSize,
		"Compare":          _config.Compare,
		"LogFile":          _config.LogFile,
	}).Debug("SIMULATE")

	return nil
}
