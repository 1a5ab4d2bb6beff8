package node

import (
	"testing"

	"github.com/mosaicnetworks/causal/src/common"
	"github.com/mosaicnetworks/causal/src/config"
	"github.com/mosaicnetworks/causal/src/envelope"
	"github.com/sirupsen/logrus"
)

// Config is the immutable configuration of a Process.
type Config struct {
	ProcessID int
	Processes int
	Algorithm envelope.Algorithm
	CacheSize int
	Logger    *logrus.Entry
}

// NewConfig creates a Config.
func NewConfig(id, n int, algo envelope.Algorithm, cacheSize int, logger *logrus.Entry) *Config {
	return &Config{
		ProcessID: id,
		Processes: n,
		Algorithm: algo,
		CacheSize: cacheSize,
		Logger:    logger,
	}
}

// ConfigFrom extracts a process Config from the global configuration.
func ConfigFrom(conf *config.Config) (*Config, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	algo, err := conf.ParsedAlgorithm()
	if err != nil {
		return nil, err
	}

	return NewConfig(conf.ProcessID, conf.Processes, algo, conf.CacheSize, conf.Logger()), nil
}

// TestConfig returns a Config with a logger for debugging tests.
func TestConfig(t testing.TB, id, n int, algo envelope.Algorithm) *Config {
	logger := common.NewTestEntry(t, logrus.DebugLevel)
	return NewConfig(id, n, algo, config.DefaultCacheSize, logger)
}
