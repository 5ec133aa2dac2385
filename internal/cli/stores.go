package cli

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/devagent/orchestrator/hooks"
	"github.com/devagent/orchestrator/memory"
	meminmem "github.com/devagent/orchestrator/memory/inmem"
	"github.com/devagent/orchestrator/memory/mongostore"
	"github.com/devagent/orchestrator/run"
	runinmem "github.com/devagent/orchestrator/run/inmem"
	"github.com/devagent/orchestrator/run/redisstore"
)

// newRunStore picks the run.Store backend: redisstore when redisURL (the
// --redis-url flag) is non-empty (so a build/status API split across
// processes shares run state),
// runinmem otherwise. Mirrors the Redis dial-then-ping idiom the registry
// command in the teacher pack uses before handing a client to its store.
func newRunStore(ctx context.Context, redisURL string) (run.Store, func(), error) {
	if redisURL == "" {
		return runinmem.New(), func() {}, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	store, err := redisstore.New(rdb, redisstore.Options{})
	if err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	return store, func() { _ = rdb.Close() }, nil
}

// newMemoryStore picks the memory.Store backend: mongostore when both
// mongoURI and mongoDatabase (the --mongodb-uri and --mongodb-database
// flags) are non-empty, meminmem otherwise. Connect
// and Disconnect take no context in this driver version; network timeouts
// for the calls they issue on our behalf come from options.Client() and
// from the per-call contexts mongostore's Client threads through.
func newMemoryStore(_ context.Context, mongoURI, mongoDatabase string) (memory.Store, func(), error) {
	if mongoURI == "" || mongoDatabase == "" {
		return meminmem.New(), func() {}, nil
	}
	mc, err := mongodriver.Connect(options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	client, err := mongostore.New(mongostore.Options{Client: mc, Database: mongoDatabase})
	if err != nil {
		_ = mc.Disconnect()
		return nil, nil, err
	}
	store, err := mongostore.NewStore(mongostore.StoreOptions{Client: client})
	if err != nil {
		_ = mc.Disconnect()
		return nil, nil, err
	}
	return store, func() { _ = mc.Disconnect() }, nil
}

// registerMemorySubscriber wires a memory.Store into bus as the run
// transcript sink the Worker Bridge's hook events feed.
func registerMemorySubscriber(bus hooks.Bus, store memory.Store) error {
	sub, err := hooks.NewMemorySubscriber(store, bus)
	if err != nil {
		return err
	}
	_, err = bus.Register(sub)
	return err
}
