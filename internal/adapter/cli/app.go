package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/tshirt-checkout/internal/adapter/messaging"
	"github.com/rl1809/tshirt-checkout/internal/adapter/storage"
	"github.com/rl1809/tshirt-checkout/internal/config"
	"github.com/rl1809/tshirt-checkout/internal/core/service"
	"github.com/rl1809/tshirt-checkout/internal/logging"
	"github.com/rl1809/tshirt-checkout/internal/port"
)

type ledger interface {
	port.LedgerRepository
	port.CatalogRepository
	port.CouponRepository
}

// app holds one process's wiring, with the dispatcher already draining orders.
type app struct {
	cfg    config.Config
	log    *slog.Logger
	ledger ledger
	cache  port.CacheRepository

	store    *service.InventoryStore
	orders   *service.OrderService
	checkout *service.Checkout

	migrated     int
	waitDispatch func()
	closers      []func() error
}

func newApp(ctx context.Context, cfg config.Config, logOut io.Writer) (*app, error) {
	a := &app{
		cfg: cfg,
		log: logging.NewWithWriter(logOut, cfg.Log.Level, cfg.Log.Format),
	}

	if err := a.openLedger(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openCache(ctx); err != nil {
		a.Close()
		return nil, err
	}
	events, err := a.openEvents()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.store = service.NewInventoryStore(a.ledger, service.StoreConfig{
		LockTimeout:  cfg.Inventory.LockTimeout,
		LockRetries:  cfg.Inventory.LockRetries,
		RetryBackoff: cfg.Inventory.RetryBackoff,
	}, a.log)

	engine, err := service.NewDiscountEngine(a.ledger, spinTiers(cfg.Discount), service.NewSeededSource(spinSeed(cfg.Discount)))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("discount engine: %w", err)
	}

	a.orders = service.NewOrderService(a.store, a.cache, cfg.Dispatcher.QueueSize, a.log)
	a.checkout = service.NewCheckout(engine, a.orders, a.log)

	dispatcher := service.NewDispatcher(a.store, a.cache, events, a.log)
	a.waitDispatch = dispatcher.Start(cfg.Dispatcher.Workers, a.orders.GetOrderQueue())

	return a, nil
}

func (a *app) openLedger(ctx context.Context) error {
	db := a.cfg.Database

	if db.Driver == config.DriverMemory {
		mem := storage.NewMemoryLedger()
		if _, err := seedCatalog(ctx, mem); err != nil {
			return fmt.Errorf("seed memory ledger: %w", err)
		}
		a.ledger = mem
		a.log.Info("using in-memory ledger")
		return nil
	}

	var err error
	dsn := db.DSN
	if db.Driver == config.DriverMySQL {
		if dsn, err = mysqlDSN(db.DSN); err != nil {
			return err
		}
	}

	conn, err := sql.Open(db.Driver, dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", db.Driver, err)
	}
	a.closers = append(a.closers, conn.Close)
	conn.SetMaxOpenConns(db.MaxOpenConns)
	conn.SetMaxIdleConns(db.MaxIdleConns)
	conn.SetConnMaxLifetime(db.ConnMaxLifetime)

	if err := conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", db.Driver, err)
	}
	a.log.Info("connected to database", "driver", db.Driver)

	var adapter *storage.SQLAdapter
	if db.Driver == config.DriverPostgres {
		adapter = storage.NewPostgresAdapter(conn)
	} else {
		adapter = storage.NewMySQLAdapter(conn)
	}

	a.migrated, err = storage.Migrate(ctx, conn, adapter.Dialect(), a.log)
	if err != nil {
		return err
	}
	a.ledger = adapter
	return nil
}

func (a *app) openCache(ctx context.Context) error {
	rc := a.cfg.Redis
	if rc.Addr == "" {
		a.cache = storage.NewMemoryCache()
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		PoolSize: rc.PoolSize,
	})
	a.closers = append(a.closers, rdb.Close)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	a.log.Info("connected to redis", "addr", rc.Addr)
	a.cache = storage.NewRedisAdapter(rdb)
	return nil
}

// openEvents returns a nil publisher when no broker is configured.
func (a *app) openEvents() (port.EventPublisher, error) {
	kc := a.cfg.Kafka
	if len(kc.Brokers) == 0 {
		return nil, nil
	}

	producer, err := messaging.NewSyncProducer(kc.Brokers)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}
	publisher := messaging.NewKafkaPublisher(producer, kc.Topic)
	a.closers = append(a.closers, publisher.Close)
	a.log.Info("publishing order events", "topic", kc.Topic)
	return publisher, nil
}

// Close stops accepting orders, waits for the dispatcher to drain, then
// closes connections in reverse order of opening.
func (a *app) Close() error {
	if a.orders != nil {
		a.orders.Close()
	}
	if a.waitDispatch != nil {
		a.waitDispatch()
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// mysqlDSN turns on parseTime, which DATETIME columns need to scan into
// time.Time.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

func spinTiers(d config.DiscountConfig) []service.SpinTier {
	rates := d.SpinRates()
	tiers := make([]service.SpinTier, len(rates))
	for i, r := range rates {
		tiers[i] = service.SpinTier{Rate: r, Weight: d.SpinTiers[i].Weight}
	}
	return tiers
}

func spinSeed(d config.DiscountConfig) uint64 {
	if d.Seed != 0 {
		return d.Seed
	}
	return uint64(time.Now().UnixNano())
}
