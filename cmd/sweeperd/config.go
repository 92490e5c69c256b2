package main

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jessevdk/go-flags"
	"github.com/layer-3/sweeper/adapters/chain"
	"github.com/layer-3/sweeper/core"
	"github.com/layer-3/sweeper/service"
	"github.com/redis/go-redis/v9"
)

const (
	defaultListen      = ":9000"
	defaultDataDir     = "data"
	defaultDBFilename  = "sweeper.db"
	defaultRedisURL    = "redis://localhost:6379/0"
	defaultRedisPrefix = "sweeper:"
	defaultLogLevel    = "info"

	storeMemory = "memory"
	storeBolt   = "bolt"
	storeRedis  = "redis"

	eventsGoChannel = "gochannel"
	eventsRedis     = "redis"
)

// config defines the configuration options for sweeperd.
type config struct {
	Listen     string `long:"listen" description:"Address the HTTP API listens on"`
	Controller string `long:"controller" description:"Hex encoded 32 byte controller identity. A random one is generated if empty"`

	Store   string `long:"store" description:"Ledger backend" choice:"memory" choice:"bolt" choice:"redis"`
	DataDir string `long:"datadir" description:"Directory holding the bolt ledger"`

	RedisURL    string `long:"redis.url" env:"REDIS_URL" description:"Redis URL used by the redis ledger and event backends"`
	RedisPrefix string `long:"redis.prefix" description:"Key prefix for the redis ledger"`

	Events string `long:"events" description:"Event bus backend" choice:"gochannel" choice:"redis"`

	LedgerInterval   time.Duration `long:"ledger.interval" description:"Time between ledger closes"`
	LedgerGenesis    int64         `long:"ledger.genesis" description:"Unix time at which ledger.baseheight closed. Defaults to startup time"`
	LedgerBaseHeight uint64        `long:"ledger.baseheight" description:"Ledger height at ledger.genesis"`

	MaxAssets int `long:"maxassets" description:"Maximum number of distinct assets per account"`

	OperatorKey string `long:"operatorkey" description:"PEM file with the ECDSA P-256 key operator tokens are signed with. Generated if empty"`

	DebugLevel string `long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`

	controllerID core.Address
	genesis      time.Time
}

func defaultConfig() config {
	return config{
		Listen:         defaultListen,
		Store:          storeMemory,
		DataDir:        defaultDataDir,
		RedisURL:       defaultRedisURL,
		RedisPrefix:    defaultRedisPrefix,
		Events:         eventsGoChannel,
		LedgerInterval: chain.DefaultCloseInterval,
		MaxAssets:      service.DefaultMaxAssets,
		DebugLevel:     defaultLogLevel,
	}
}

// loadConfig parses args on top of the defaults and validates the result.
func loadConfig(args []string) (*config, error) {
	cfg := defaultConfig()

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate checks the options for consistency and fills in derived fields.
func (c *config) validate() error {
	if c.Listen == "" {
		return errors.New("listen address must be set")
	}

	if c.Controller == "" {
		if _, err := rand.Read(c.controllerID[:]); err != nil {
			return fmt.Errorf("unable to generate controller identity: %w", err)
		}
	} else {
		id, err := core.ParseAddress(c.Controller)
		if err != nil {
			return fmt.Errorf("invalid controller: %w", err)
		}
		c.controllerID = id
	}

	switch c.Store {
	case storeMemory, storeRedis:
	case storeBolt:
		if c.DataDir == "" {
			return errors.New("datadir must be set for the bolt store")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}

	if c.Events != eventsGoChannel && c.Events != eventsRedis {
		return fmt.Errorf("unknown events backend %q", c.Events)
	}

	if c.usesRedis() {
		if _, err := redis.ParseURL(c.RedisURL); err != nil {
			return fmt.Errorf("invalid redis.url: %w", err)
		}
	}

	if c.LedgerInterval <= 0 {
		return fmt.Errorf("ledger.interval must be positive, got %v", c.LedgerInterval)
	}
	if c.LedgerGenesis < 0 {
		return fmt.Errorf("ledger.genesis must not be negative")
	}
	if c.LedgerGenesis == 0 {
		c.genesis = time.Now().Truncate(time.Second)
	} else {
		c.genesis = time.Unix(c.LedgerGenesis, 0)
	}

	if c.MaxAssets <= 0 {
		return fmt.Errorf("maxassets must be positive, got %d", c.MaxAssets)
	}

	if err := validateLogLevels(c.DebugLevel); err != nil {
		return err
	}

	return nil
}

func (c *config) usesRedis() bool {
	return c.Store == storeRedis || c.Events == eventsRedis
}

func (c *config) dbPath() string {
	return filepath.Join(c.DataDir, defaultDBFilename)
}

// operatorKey loads the operator token key, or generates a fresh one if none
// is configured. generated reports whether the key is ephemeral.
func (c *config) operatorKey() (key *ecdsa.PrivateKey, generated bool, err error) {
	if c.OperatorKey == "" {
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		return key, true, err
	}

	pemBytes, err := os.ReadFile(c.OperatorKey)
	if err != nil {
		return nil, false, fmt.Errorf("unable to read operator key: %w", err)
	}

	key, err = jwt.ParseECPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, false, fmt.Errorf("unable to parse operator key: %w", err)
	}
	if key.Curve != elliptic.P256() {
		return nil, false, errors.New("operator key must be on P-256")
	}

	return key, false, nil
}
