package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temscript/temscript-go/pkg/transport"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":8030", cfg.Address)
	assert.Equal(t, transport.DefaultMaxMessageSize, cfg.MaxMessageSize)
	assert.Equal(t, 60*time.Second, cfg.OperationTimeout.Std())
	assert.Empty(t, cfg.ProtocolLog)
	assert.Zero(t, cfg.Simulator.StartupDelay)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
address: "0.0.0.0:9030"
maxMessageSize: 1048576
operationTimeout: 2m30s
protocolLog: /var/log/tem/protocol.tlog
simulator:
  startupDelay: 5s
`))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9030", cfg.Address)
	assert.Equal(t, 1<<20, cfg.MaxMessageSize)
	assert.Equal(t, 150*time.Second, cfg.OperationTimeout.Std())
	assert.Equal(t, "/var/log/tem/protocol.tlog", cfg.ProtocolLog)
	assert.Equal(t, 5*time.Second, cfg.Simulator.StartupDelay.Std())
}

func TestParsePartialKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`address: ":9999"`))
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Address)
	assert.Equal(t, transport.DefaultMaxMessageSize, cfg.MaxMessageSize)
	assert.Equal(t, 60*time.Second, cfg.OperationTimeout.Std())
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad yaml", "address: [unclosed"},
		{"bad duration", "operationTimeout: sideways"},
		{"empty address", `address: ""`},
		{"negative size", "maxMessageSize: -1"},
		{"negative delay", "simulator:\n  startupDelay: -3s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("address: \":9030\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9030", cfg.Address)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
