package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/btcsuite/btclog"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jessevdk/go-flags"
	"github.com/layer-3/sweeper/adapters/chain"
	"github.com/layer-3/sweeper/adapters/events"
	"github.com/layer-3/sweeper/adapters/store"
	"github.com/layer-3/sweeper/adapters/tokenizer"
	"github.com/layer-3/sweeper/adapters/transfer"
	"github.com/layer-3/sweeper/core"
	"github.com/layer-3/sweeper/ports"
	"github.com/layer-3/sweeper/service"
	sweeperhttp "github.com/layer-3/sweeper/transport/http"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/redis/go-redis/v9"
)

const (
	shutdownTimeout = 10 * time.Second

	// devTokenLifetime bounds the token printed for a generated operator
	// key.
	devTokenLifetime = 24 * time.Hour
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		// go-flags already printed parse errors and help.
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		} else {
			_, _ = fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}

	setLogLevels(cfg.DebugLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		swpdLog.Errorf("sweeperd: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config) error {
	var redisClient *redis.Client
	if cfg.usesRedis() {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis unreachable: %w", err)
		}
	}

	ledger, err := openLedger(cfg, redisClient)
	if err != nil {
		return err
	}
	defer ledger.Close()

	wmLogger := watermill.NewStdLogger(
		swpdLog.Level() <= btclog.LevelDebug, swpdLog.Level() <= btclog.LevelTrace,
	)
	publisher, err := openPublisher(ctx, cfg, redisClient, wmLogger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	ledgerChain := chain.NewClockChain(
		clock.NewDefaultClock(), cfg.genesis, cfg.LedgerInterval, cfg.LedgerBaseHeight,
	)
	eventPub := events.NewWatermillPublisher(publisher)
	assets := transfer.NewLedgerTransfer()

	accounts := service.NewAccountService(
		ledger, ledgerChain, eventPub, cfg.controllerID, cfg.MaxAssets,
	)
	controller := service.NewSweepController(
		cfg.controllerID, ledger, ledgerChain, accounts, assets, eventPub,
	)

	tok, err := operatorTokenizer(cfg)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	router := sweeperhttp.SetupRouter(
		sweeperhttp.NewHandlers(controller, accounts, ledger, assets), tok,
	)

	server := &http.Server{
		Addr:              cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		swpdLog.Infof("Controller %v listening on %s (store=%s, events=%s)",
			cfg.controllerID, cfg.Listen, cfg.Store, cfg.Events)
		errChan <- server.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil

	case <-ctx.Done():
	}

	swpdLog.Infof("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

func openLedger(cfg *config, redisClient *redis.Client) (ports.Ledger, error) {
	switch cfg.Store {
	case storeBolt:
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, fmt.Errorf("unable to create datadir: %w", err)
		}
		ledger, err := store.NewBoltStore(cfg.dbPath())
		if err != nil {
			return nil, fmt.Errorf("unable to open bolt ledger: %w", err)
		}
		swpdLog.Infof("Using bolt ledger at %s", cfg.dbPath())
		return ledger, nil

	case storeRedis:
		swpdLog.Infof("Using redis ledger with prefix %q", cfg.RedisPrefix)
		return store.NewRedisStore(redisClient, cfg.RedisPrefix), nil

	default:
		swpdLog.Warnf("Using in-memory ledger, state is lost on exit")
		return store.NewMemoryStore(), nil
	}
}

// openPublisher creates the event bus. The in-process bus also gets a
// subscriber that logs every event, so that events are observable without
// an external consumer.
func openPublisher(ctx context.Context, cfg *config, redisClient *redis.Client,
	logger watermill.LoggerAdapter) (message.Publisher, error) {

	if cfg.Events == eventsRedis {
		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client: redisClient,
			},
			logger,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis publisher: %w", err)
		}
		return publisher, nil
	}

	bus := gochannel.NewGoChannel(gochannel.Config{}, logger)
	for _, topic := range []string{core.SweepCompletedTopic, core.PaymentRecordedTopic} {
		msgs, err := bus.Subscribe(ctx, topic)
		if err != nil {
			return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
		go logEvents(topic, msgs)
	}

	return bus, nil
}

func logEvents(topic string, msgs <-chan *message.Message) {
	for msg := range msgs {
		evntLog.Debugf("%s %s: %s", topic, msg.UUID, msg.Payload)
		msg.Ack()
	}
}

// operatorTokenizer loads the operator key. A generated key is only usable
// for this process, so a token for it is logged.
func operatorTokenizer(cfg *config) (ports.Tokenizer, error) {
	key, generated, err := cfg.operatorKey()
	if err != nil {
		return nil, err
	}

	tok := tokenizer.NewJWTTokenizer(key)
	if !generated {
		return tok, nil
	}

	token, err := devToken(tok)
	if err != nil {
		return nil, err
	}
	swpdLog.Warnf("No operatorkey configured, generated an ephemeral one. "+
		"Operator token: %s", token)

	return tok, nil
}

func devToken(tok ports.Tokenizer) (string, error) {
	now := time.Now()
	return tok.OperatorToToken(&core.Operator{
		ID:        uuid.NewString(),
		Name:      "sweeperd-dev",
		IssuedAt:  now,
		ExpiresAt: now.Add(devTokenLifetime),
	})
}
