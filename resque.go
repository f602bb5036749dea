// Package resque wires the worker core to Redis with flag- and
// environment-driven settings, mirroring the classic resque worker binary.
//
// A minimal worker:
//
//	resque.RegisterFunc("EmailJob", sendEmail)
//	if resque.ChildMode() {
//		os.Exit(resque.RunChild())
//	}
//	if err := resque.Work(); err != nil {
//		log.Fatal(err)
//	}
package resque

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/cihub/seelog"
	"github.com/splitice/go-resque/event"
	"github.com/splitice/go-resque/failure"
	"github.com/splitice/go-resque/foreman"
	"github.com/splitice/go-resque/job"
	redisqueue "github.com/splitice/go-resque/queues/redis"
	"github.com/splitice/go-resque/registry"
	"github.com/splitice/go-resque/stats"
	"github.com/splitice/go-resque/store"
	"github.com/splitice/go-resque/worker"
)

var (
	logger         seelog.LoggerInterface
	globalRegistry = registry.New()
	globalBus      *event.Bus
	globalCodec    *job.Codec
	redisStore     *store.Redis
	initMutex      sync.Mutex
	initialized    bool
)

// Init parses settings and builds the shared Redis store. It is idempotent;
// Work and Enqueue call it on demand.
func Init() error {
	initMutex.Lock()
	defer initMutex.Unlock()

	if initialized {
		return nil
	}

	var err error
	logger, err = seelog.LoggerFromWriterWithMinLevel(os.Stdout, seelog.InfoLvl)
	if err != nil {
		return err
	}

	if err := flags(); err != nil {
		return err
	}

	globalCodec = job.NewCodec()
	globalCodec.SetUseNumber(workerSettings.UseNumber)
	globalBus = event.NewBus(logger)

	options := store.DefaultOptions()
	options.URI = workerSettings.RedisURI
	options.MaxConnections = workerSettings.Connections
	options.TLSSkipVerify = workerSettings.SkipTLSVerify
	options.TLSCertPath = workerSettings.TLSCertPath
	redisStore = store.NewRedis(options)

	initialized = true
	return nil
}

// Close releases the shared Redis store.
func Close() {
	initMutex.Lock()
	defer initMutex.Unlock()

	if initialized && redisStore != nil {
		_ = redisStore.Close()
		initialized = false
	}
}

// Register adds a performer factory for a job class.
func Register(class string, factory registry.Factory) error {
	return globalRegistry.Register(class, factory)
}

// RegisterFunc adds a worker function for a job class.
func RegisterFunc(class string, fn func(queue string, args ...interface{}) error) error {
	return globalRegistry.RegisterFunc(class, fn)
}

// Subscribe registers a lifecycle event subscriber. Call before Work.
func Subscribe(kind event.Kind, s event.Subscriber) error {
	if err := Init(); err != nil {
		return err
	}
	globalBus.Subscribe(kind, s)
	return nil
}

// Work builds a worker from the settings and runs its reservation loop
// until a shutdown signal arrives or, with a zero interval, the queues
// drain.
func Work() error {
	if err := Init(); err != nil {
		return err
	}
	defer Close()

	if len(workerSettings.Queues) == 0 {
		return fmt.Errorf("you must specify at least one queue")
	}

	ctx := context.Background()
	if err := redisStore.Connect(ctx); err != nil {
		return err
	}

	queues := make([]worker.Queue, 0, len(workerSettings.Queues))
	for _, name := range workerSettings.Queues {
		queues = append(queues, redisqueue.NewQueue(name, redisStore,
			redisqueue.WithNamespace(workerSettings.Namespace),
			redisqueue.WithCodec(globalCodec),
		))
	}

	w := worker.New(queues, globalRegistry,
		worker.WithStore(redisStore),
		worker.WithFailures(failure.NewRedis(redisStore, workerSettings.Namespace)),
		worker.WithStats(stats.NewRedis(redisStore, workerSettings.Namespace)),
		worker.WithBus(globalBus),
		worker.WithFork(workerSettings.Fork),
		worker.WithInterval(interval()),
		worker.WithNamespace(workerSettings.Namespace),
		worker.WithLogger(logger),
		worker.WithCodec(globalCodec),
	)

	return w.Work(ctx)
}

// RunChild performs one job read from stdin and returns the process exit
// code. Binaries embedding the library call it when ChildMode reports true.
func RunChild() int {
	if err := Init(); err != nil {
		fmt.Fprintf(os.Stderr, "resque child: %v\n", err)
		return 1
	}

	return foreman.RunChild(os.Stdin, foreman.ChildOptions{
		Registry: globalRegistry,
		Bus:      globalBus,
		Codec:    globalCodec,
		Logger:   logger,
	})
}

// Enqueue pushes a new descriptor for class with args onto the named queue.
func Enqueue(queue string, class string, args []interface{}) error {
	if err := Init(); err != nil {
		return err
	}

	q := redisqueue.NewQueue(queue, redisStore,
		redisqueue.WithNamespace(workerSettings.Namespace),
		redisqueue.WithCodec(globalCodec),
	)
	return q.Push(context.Background(), job.New(class, args))
}

// Namespace returns the configured Redis key namespace.
func Namespace() string {
	return workerSettings.Namespace
}
