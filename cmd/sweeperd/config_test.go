package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/layer-3/sweeper/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, defaultListen, cfg.Listen)
	assert.Equal(t, storeMemory, cfg.Store)
	assert.Equal(t, eventsGoChannel, cfg.Events)
	assert.Equal(t, 5*time.Second, cfg.LedgerInterval)
	assert.Equal(t, 10, cfg.MaxAssets)
	assert.False(t, cfg.controllerID.IsZero())
	assert.False(t, cfg.genesis.IsZero())
	assert.False(t, cfg.usesRedis())
}

func TestLoadConfigOptions(t *testing.T) {
	dir := t.TempDir()
	controller := core.Address{0xab, 0xcd}

	cfg, err := loadConfig([]string{
		"--store=bolt",
		"--datadir=" + dir,
		"--controller=" + controller.String(),
		"--ledger.interval=2s",
		"--ledger.genesis=1700000000",
		"--ledger.baseheight=42",
		"--maxassets=3",
		"--debuglevel=info,STOR=trace",
	})
	require.NoError(t, err)

	assert.Equal(t, controller, cfg.controllerID)
	assert.Equal(t, filepath.Join(dir, defaultDBFilename), cfg.dbPath())
	assert.Equal(t, 2*time.Second, cfg.LedgerInterval)
	assert.Equal(t, time.Unix(1_700_000_000, 0), cfg.genesis)
	assert.Equal(t, uint64(42), cfg.LedgerBaseHeight)
	assert.Equal(t, 3, cfg.MaxAssets)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown store", []string{"--store=sqlite"}},
		{"unknown events", []string{"--events=kafka"}},
		{"bad controller", []string{"--controller=0x1234"}},
		{"bolt without datadir", []string{"--store=bolt", "--datadir="}},
		{"zero interval", []string{"--ledger.interval=0s"}},
		{"zero max assets", []string{"--maxassets=0"}},
		{"bad log level", []string{"--debuglevel=loud"}},
		{"unknown subsystem", []string{"--debuglevel=NOPE=debug"}},
		{"two global levels", []string{"--debuglevel=info,debug"}},
		{"bad redis url", []string{"--store=redis", "--redis.url=mysql://localhost"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := loadConfig(tc.args)
			require.Error(t, err)
		})
	}
}

func TestParseLogLevels(t *testing.T) {
	global, overrides, err := parseLogLevels("debug,HTTP=warn, STOR=trace")
	require.NoError(t, err)
	assert.Equal(t, "debug", global)
	assert.Equal(t, map[string]string{"HTTP": "warn", "STOR": "trace"}, overrides)

	global, overrides, err = parseLogLevels("SRVC=error")
	require.NoError(t, err)
	assert.Empty(t, global)
	assert.Len(t, overrides, 1)
}

func writeKey(t *testing.T, key *ecdsa.PrivateKey) string {
	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "operator.pem")
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
	require.NoError(t, os.WriteFile(path, pemBytes, 0o600))

	return path
}

func TestOperatorKey(t *testing.T) {
	cfg := defaultConfig()

	key, generated, err := cfg.operatorKey()
	require.NoError(t, err)
	assert.True(t, generated)
	assert.Equal(t, elliptic.P256(), key.Curve)

	want, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	cfg.OperatorKey = writeKey(t, want)

	key, generated, err = cfg.operatorKey()
	require.NoError(t, err)
	assert.False(t, generated)
	assert.True(t, want.Equal(key))

	wrongCurve, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)
	cfg.OperatorKey = writeKey(t, wrongCurve)

	_, _, err = cfg.operatorKey()
	require.Error(t, err)

	cfg.OperatorKey = filepath.Join(t.TempDir(), "missing.pem")
	_, _, err = cfg.operatorKey()
	require.Error(t, err)
}

func TestOperatorTokenizer(t *testing.T) {
	cfg := defaultConfig()

	tok, err := operatorTokenizer(&cfg)
	require.NoError(t, err)

	token, err := devToken(tok)
	require.NoError(t, err)

	op, err := tok.TokenToOperator(token)
	require.NoError(t, err)
	assert.Equal(t, "sweeperd-dev", op.Name)
}
