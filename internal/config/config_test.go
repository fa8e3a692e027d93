package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/wave-portal/internal/contract"
)

func TestNewClient_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WAVE_RPC_URL", "")
	t.Setenv("WAVE_CONTRACT", "")
	os.Unsetenv("WAVE_RPC_URL")
	os.Unsetenv("WAVE_CONTRACT")

	c, err := NewClient()
	require.NoError(t, err)
	require.Equal(t, "ws://127.0.0.1:8545", c.RPCURL)
	require.Equal(t, contract.DefaultAddress, c.Contract)
	require.NoError(t, Validate(c))
}

func TestNewClient_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WAVE_RPC_URL", "https://rpc.example.org")
	t.Setenv("WAVE_CONTRACT", "0x0000000000000000000000000000000000000001")
	t.Setenv("WAVE_KEYFILE", "/tmp/k.json")

	c, err := NewClient()
	require.NoError(t, err)
	require.Equal(t, "https://rpc.example.org", c.RPCURL)
	require.Equal(t, "0x0000000000000000000000000000000000000001", c.Contract)
	require.Equal(t, "/tmp/k.json", c.KeyFile)
}

func TestNewClient_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("WAVE_LOG_FILE", "")
	os.Unsetenv("WAVE_LOG_FILE")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("WAVE_LOG_FILE=/tmp/wave.log\n"), 0o600))

	c, err := NewClient()
	require.NoError(t, err)
	require.Equal(t, "/tmp/wave.log", c.LogFile)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		cfg     any
		wantErr bool
	}{
		{name: "client ok", cfg: Client{RPCURL: "ws://localhost:8545", Contract: contract.DefaultAddress}},
		{name: "bad contract", cfg: Client{RPCURL: "ws://localhost:8545", Contract: "nope"}, wantErr: true},
		{name: "missing rpc", cfg: Client{Contract: contract.DefaultAddress}, wantErr: true},
		{name: "bad wallet rpc", cfg: Client{RPCURL: "ws://localhost:8545", WalletRPCURL: "::", Contract: contract.DefaultAddress}, wantErr: true},
		{
			name: "archiver ok",
			cfg: Archiver{
				RPCURL: "ws://localhost:8545", Contract: contract.DefaultAddress,
				DSN: "postgres://localhost/waves", HealthAddr: ":8081", ResubscribeEvery: time.Second,
			},
		},
		{
			name: "archiver zero backoff",
			cfg: Archiver{
				RPCURL: "ws://localhost:8545", Contract: contract.DefaultAddress,
				DSN: "postgres://localhost/waves", HealthAddr: ":8081",
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNewArchiver_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ARCHIVE_RESUBSCRIBE_EVERY", "250ms")

	c, err := NewArchiver()
	require.NoError(t, err)
	require.Equal(t, 250*time.Millisecond, c.ResubscribeEvery)
	require.Equal(t, ":8081", c.HealthAddr)
}

func TestDir(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)
	require.Equal(t, filepath.Join(base, "wave-portal"), Dir())
	require.Equal(t, filepath.Join(base, "wave-portal", "key.json"), DefaultKeyFile())
}
