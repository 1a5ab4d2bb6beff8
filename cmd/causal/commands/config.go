package commands

import (
	"os"
	"path/filepath"

	"github.com/mosaicnetworks/causal/src/config"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

//CLIConfig contains configuration for the causal commands
type CLIConfig struct {
	Causal  config.Config `mapstructure:",squash"`
	LogFile string        `mapstructure:"log-file"`
	Compare bool          `mapstructure:"compare"`
}

//NewDefaultCLIConfig creates a CLIConfig with default values
func NewDefaultCLIConfig() *CLIConfig {
	return &CLIConfig{
		Causal:  *config.NewDefaultConfig(),
		LogFile: "",
		Compare: false,
	}
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/causal.toml (.json, .yaml also work)
	viper.SetConfigName(config.DefaultConfigFile) // name of config file (without extension)
	viper.AddConfigPath(_config.Causal.DataDir)   // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Causal.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Causal.Logger().Debugf("No config file found in: %s", _config.Causal.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.Causal.SetDataDir(_config.Causal.DataDir)

	_config.Causal.SetLogger(newLogger())

	return nil
}

// newLogger creates the logger shared by every component. When a log file is
// configured, every entry is also written to it.
func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.Level = config.LogLevel(_config.Causal.LogLevel)
	logger.Formatter = new(prefixed.TextFormatter)

	if _config.LogFile == "" {
		return logger
	}

	if err := os.MkdirAll(filepath.Dir(_config.LogFile), 0700); err != nil {
		logger.WithError(err).Infof("Failed to create directory of %s, using default stderr", _config.LogFile)
		return logger
	}

	f, err := os.OpenFile(_config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		logger.WithError(err).Infof("Failed to open %s, using default stderr", _config.LogFile)
		return logger
	}
	f.Close()

	pathMap := lfshook.PathMap{}
	for _, level := range logrus.AllLevels {
		pathMap[level] = _config.LogFile
	}

	logger.Hooks.Add(lfshook.NewHook(
		pathMap,
		&logrus.TextFormatter{},
	))

	return logger
}
