package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/causal/src/common"
	"github.com/mosaicnetworks/causal/src/envelope"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database
	DefaultBadgerFile = "badger_db"

	// DefaultConfigFile is the default name of the configuration file, without
	// extension.
	DefaultConfigFile = "causal"
)

// Default configuration values.
const (
	DefaultLogLevel    = "debug"
	DefaultAlgorithm   = "bss"
	DefaultProcesses   = 3
	DefaultBindAddr    = "127.0.0.1:1337"
	DefaultServiceAddr = "127.0.0.1:8000"
	DefaultTCPTimeout  = 1000 * time.Millisecond
	DefaultMaxPool     = 2
	DefaultCacheSize   = 10000
	DefaultStore       = false
	DefaultMessages    = 20
	DefaultSeed        = 1
	DefaultMaxDelay    = 0
)

// Config contains all the configuration properties of a causal process.
type Config struct {
	// DataDir is the top-level directory containing configuration and data
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// Algorithm is the name of the causal delivery algorithm: bss, ses or
	// matrix. All the processes of a group must use the same algorithm.
	Algorithm string `mapstructure:"algorithm"`

	// ProcessID is the ID of this process, in [0, Processes).
	ProcessID int `mapstructure:"id"`

	// Processes is the number of processes in the group. Membership is
	// static.
	Processes int `mapstructure:"processes"`

	// BindAddr is the local address:port where this process listens for
	// messages from other processes.
	BindAddr string `mapstructure:"listen"`

	// AdvertiseAddr is used to change the address that we advertise to other
	// processes.
	AdvertiseAddr string `mapstructure:"advertise"`

	// MaxPool controls how many connections are pooled per target.
	MaxPool int `mapstructure:"max-pool"`

	// TCPTimeout is the timeout of TCP connections.
	TCPTimeout time.Duration `mapstructure:"timeout"`

	// Store activates the persistant delivery log.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// CacheSize is the max number of deliveries kept by the in-memory store.
	CacheSize int `mapstructure:"cache-size"`

	// NoService disables the HTTP API service.
	NoService bool `mapstructure:"no-service"`

	// ServiceAddr is the address:port of the optional HTTP service.
	ServiceAddr string `mapstructure:"service-listen"`

	// Messages is the number of messages each process sends in a simulation.
	Messages int `mapstructure:"messages"`

	// Seed seeds the random scheduler of a simulation. Runs with the same
	// seed deliver messages in the same order.
	Seed int64 `mapstructure:"seed"`

	// MaxDelay is the maximum number of scheduling steps a simulated link
	// can be held back, which increases reordering.
	MaxDelay int `mapstructure:"max-delay"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:     DefaultDataDir(),
		LogLevel:    DefaultLogLevel,
		Algorithm:   DefaultAlgorithm,
		Processes:   DefaultProcesses,
		BindAddr:    DefaultBindAddr,
		ServiceAddr: DefaultServiceAddr,
		TCPTimeout:  DefaultTCPTimeout,
		MaxPool:     DefaultMaxPool,
		CacheSize:   DefaultCacheSize,
		Store:       DefaultStore,
		DatabaseDir: DefaultDatabaseDir(),
		Messages:    DefaultMessages,
		Seed:        DefaultSeed,
		MaxDelay:    DefaultMaxDelay,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level directory, and updates the database
// directory if it is currently set to the default value. If the database
// directory is not currently the default, it means the user has explicitely set
// it to something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// SetLogger replaces the logger used by Logger.
func (c *Config) SetLogger(logger *logrus.Logger) {
	c.logger = logger
}

// ParsedAlgorithm returns the Algorithm named by c.Algorithm.
func (c *Config) ParsedAlgorithm() (envelope.Algorithm, error) {
	return envelope.ParseAlgorithm(c.Algorithm)
}

// Validate checks the values that a process cannot be started without.
func (c *Config) Validate() error {
	if _, err := c.ParsedAlgorithm(); err != nil {
		return err
	}
	if c.Processes <= 0 {
		return fmt.Errorf("processes must be positive, not %d", c.Processes)
	}
	if c.ProcessID < 0 || c.ProcessID >= c.Processes {
		return fmt.Errorf("id %d not in [0, %d)", c.ProcessID, c.Processes)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache-size must be positive, not %d", c.CacheSize)
	}
	return nil
}

// Logger returns a formatted logrus Entry, with prefix set to "causal".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
	}
	return c.logger.WithField("prefix", "causal")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level config
// based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Causal")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Causal")
		} else {
			return filepath.Join(home, ".causal")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
