package resque

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/splitice/go-resque/config"
)

// WorkerSettings holds the process-wide configuration.
type WorkerSettings struct {
	QueuesString string
	Queues       []string
	IntervalFloat float64
	Fork         bool
	UseNumber    bool

	Namespace   string
	RedisURI    string
	Connections int

	SkipTLSVerify bool
	TLSCertPath   string

	// ConfigFile points at an optional YAML settings file; explicit flags
	// win over its values.
	ConfigFile string

	childMode bool
}

var workerSettings WorkerSettings

func init() {
	flag.StringVar(&workerSettings.QueuesString, "queues", "", "a comma-separated list of queues, highest priority first")
	flag.Float64Var(&workerSettings.IntervalFloat, "interval", 5.0, "sleep interval when no jobs are found, in seconds")
	flag.BoolVar(&workerSettings.Fork, "fork", false, "run each job in a forked child process")
	flag.BoolVar(&workerSettings.UseNumber, "use-number", false, "use json.Number instead of float64 when decoding numbers in JSON")
	flag.StringVar(&workerSettings.ConfigFile, "config", "", "path to a YAML settings file")

	redisProvider := os.Getenv("REDIS_PROVIDER")
	var redisEnvURI string
	if redisProvider != "" {
		redisEnvURI = os.Getenv(redisProvider)
	} else {
		redisEnvURI = os.Getenv("REDIS_URL")
	}
	if redisEnvURI == "" {
		redisEnvURI = "redis://localhost:6379/"
	}
	flag.StringVar(&workerSettings.RedisURI, "redis-uri", redisEnvURI, "the URI of the Redis server")
	flag.StringVar(&workerSettings.Namespace, "redis-namespace", "resque:", "the Redis key namespace")
	flag.IntVar(&workerSettings.Connections, "connections", 10, "the maximum number of connections to Redis")
	flag.StringVar(&workerSettings.TLSCertPath, "tls-cert", "", "path to a custom CA cert")
	flag.BoolVar(&workerSettings.SkipTLSVerify, "insecure-tls", false, "skip TLS validation")

	flag.BoolVar(&workerSettings.childMode, "resque-child", false, "internal: perform one job read from stdin and exit")
}

// SetSettings replaces the process-wide settings. Call before Init for
// programmatic configuration instead of flags.
func SetSettings(settings WorkerSettings) {
	workerSettings = settings
}

// Settings returns a copy of the current settings.
func Settings() WorkerSettings {
	return workerSettings
}

// ChildMode reports whether this process was re-executed to perform a
// single job. It parses the command-line flags if that has not happened yet.
func ChildMode() bool {
	if !flag.Parsed() {
		flag.Parse()
	}
	return workerSettings.childMode
}

func flags() error {
	if !flag.Parsed() {
		flag.Parse()
	}

	explicit := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	if workerSettings.ConfigFile != "" {
		cfg, err := config.Load(workerSettings.ConfigFile)
		if err != nil {
			return err
		}
		applyConfig(cfg, explicit)
	}

	if workerSettings.QueuesString != "" {
		workerSettings.Queues = parseQueues(workerSettings.QueuesString)
	}

	if workerSettings.IntervalFloat < 0 {
		return fmt.Errorf("interval must be non-negative, got %v", workerSettings.IntervalFloat)
	}
	return nil
}

func applyConfig(cfg *config.File, explicit map[string]bool) {
	if len(cfg.Queues) > 0 && !explicit["queues"] {
		workerSettings.Queues = cfg.Queues
	}
	if cfg.Interval != nil && !explicit["interval"] {
		workerSettings.IntervalFloat = *cfg.Interval
	}
	if cfg.Fork != nil && !explicit["fork"] {
		workerSettings.Fork = *cfg.Fork
	}
	if cfg.Namespace != "" && !explicit["redis-namespace"] {
		workerSettings.Namespace = cfg.Namespace
	}
	if cfg.Redis.URI != "" && !explicit["redis-uri"] {
		workerSettings.RedisURI = cfg.Redis.URI
	}
	if cfg.Redis.MaxConnections > 0 && !explicit["connections"] {
		workerSettings.Connections = cfg.Redis.MaxConnections
	}
	if cfg.Redis.UseTLS {
		if !explicit["insecure-tls"] {
			workerSettings.SkipTLSVerify = cfg.Redis.TLSSkipVerify
		}
		if !explicit["tls-cert"] {
			workerSettings.TLSCertPath = cfg.Redis.TLSCertPath
		}
	}
}

func parseQueues(value string) []string {
	var queues []string
	for _, name := range strings.Split(value, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			queues = append(queues, name)
		}
	}
	return queues
}

func interval() time.Duration {
	return time.Duration(workerSettings.IntervalFloat * float64(time.Second))
}
