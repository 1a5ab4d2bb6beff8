package config

import (
	"path/filepath"
	"testing"

	"github.com/mosaicnetworks/causal/src/envelope"
	"github.com/sirupsen/logrus"
)

func TestValidate(t *testing.T) {
	conf := NewTestConfig(t, logrus.DebugLevel)
	if err := conf.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}

	cases := []func(c *Config){
		func(c *Config) { c.Algorithm = "lamport" },
		func(c *Config) { c.Processes = 0 },
		func(c *Config) { c.ProcessID = c.Processes },
		func(c *Config) { c.ProcessID = -1 },
		func(c *Config) { c.CacheSize = 0 },
	}
	for i, mutate := range cases {
		c := NewTestConfig(t, logrus.DebugLevel)
		mutate(c)
		if err := c.Validate(); err == nil {
			t.Fatalf("case %d should be invalid", i)
		}
	}
}

func TestParsedAlgorithm(t *testing.T) {
	conf := NewDefaultConfig()
	conf.Algorithm = "Matrix"
	algo, err := conf.ParsedAlgorithm()
	if err != nil {
		t.Fatal(err)
	}
	if algo != envelope.Matrix {
		t.Fatalf("algorithm should be matrix, not %v", algo)
	}
}

func TestSetDataDir(t *testing.T) {
	conf := NewDefaultConfig()
	conf.SetDataDir("/tmp/causal")
	if conf.DatabaseDir != filepath.Join("/tmp/causal", DefaultBadgerFile) {
		t.Fatalf("DatabaseDir should follow DataDir, not %s", conf.DatabaseDir)
	}

	conf.DatabaseDir = "/var/db"
	conf.SetDataDir("/tmp/other")
	if conf.DatabaseDir != "/var/db" {
		t.Fatalf("explicit DatabaseDir should not change, not %s", conf.DatabaseDir)
	}
}

func TestLogLevel(t *testing.T) {
	if LogLevel("warn") != logrus.WarnLevel {
		t.Fatalf("warn should parse")
	}
	if LogLevel("bogus") != logrus.DebugLevel {
		t.Fatalf("unknown levels should default to debug")
	}
}
