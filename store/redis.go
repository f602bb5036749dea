package store

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/splitice/go-resque/errors"
)

// Redis is a Store backed by a redigo connection pool. The pool is created
// on first use, so a Disconnect before forking is undone transparently by
// the next operation.
type Redis struct {
	mu      sync.Mutex
	pool    *redis.Pool
	options Options
}

// NewRedis creates a Redis store. No connection is made until the first
// operation or an explicit Connect.
func NewRedis(options Options) *Redis {
	return &Redis{options: options}
}

// Connect establishes the pool and verifies the server is reachable.
func (s *Redis) Connect(ctx context.Context) error {
	conn, err := s.conn()
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.Do("PING"); err != nil {
		return errors.NewConnectionError(s.options.URI,
			fmt.Errorf("ping failed: %w", err))
	}
	return nil
}

// Disconnect releases the pool and every connection in it. The store stays
// usable; the next operation dials again.
func (s *Redis) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pool == nil {
		return nil
	}
	err := s.pool.Close()
	s.pool = nil
	return err
}

// Close releases the pool. Like Disconnect, it leaves the store usable: a
// later operation dials again.
func (s *Redis) Close() error {
	return s.Disconnect()
}

func (s *Redis) conn() (redis.Conn, error) {
	s.mu.Lock()
	if s.pool == nil {
		s.pool = &redis.Pool{
			MaxActive:   s.options.MaxConnections,
			MaxIdle:     s.options.MaxIdle,
			IdleTimeout: s.options.IdleTimeout,
			Dial: func() (redis.Conn, error) {
				return dial(s.options)
			},
			TestOnBorrow: func(c redis.Conn, t time.Time) error {
				if time.Since(t) < time.Minute {
					return nil
				}
				_, err := c.Do("PING")
				return err
			},
		}
	}
	pool := s.pool
	s.mu.Unlock()

	return pool.Get(), nil
}

func (s *Redis) Set(ctx context.Context, key, value string) error {
	return s.do(func(conn redis.Conn) error {
		_, err := conn.Do("SET", key, value)
		return err
	})
}

func (s *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	var found bool
	err := s.do(func(conn redis.Conn) error {
		reply, err := redis.String(conn.Do("GET", key))
		if err == redis.ErrNil {
			return nil
		}
		if err != nil {
			return err
		}
		value, found = reply, true
		return nil
	})
	return value, found, err
}

func (s *Redis) Del(ctx context.Context, key string) error {
	return s.do(func(conn redis.Conn) error {
		_, err := conn.Do("DEL", key)
		return err
	})
}

func (s *Redis) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.do(func(conn redis.Conn) error {
		reply, err := redis.Bool(conn.Do("EXISTS", key))
		if err != nil {
			return err
		}
		exists = reply
		return nil
	})
	return exists, err
}

func (s *Redis) LPush(ctx context.Context, key, value string) error {
	return s.do(func(conn redis.Conn) error {
		_, err := conn.Do("LPUSH", key, value)
		return err
	})
}

func (s *Redis) RPush(ctx context.Context, key, value string) error {
	return s.do(func(conn redis.Conn) error {
		_, err := conn.Do("RPUSH", key, value)
		return err
	})
}

func (s *Redis) LPop(ctx context.Context, key string) (string, bool, error) {
	var value string
	var found bool
	err := s.do(func(conn redis.Conn) error {
		reply, err := redis.String(conn.Do("LPOP", key))
		if err == redis.ErrNil {
			return nil
		}
		if err != nil {
			return err
		}
		value, found = reply, true
		return nil
	})
	return value, found, err
}

func (s *Redis) LIndex(ctx context.Context, key string, index int) (string, bool, error) {
	var value string
	var found bool
	err := s.do(func(conn redis.Conn) error {
		reply, err := redis.String(conn.Do("LINDEX", key, index))
		if err == redis.ErrNil {
			return nil
		}
		if err != nil {
			return err
		}
		value, found = reply, true
		return nil
	})
	return value, found, err
}

func (s *Redis) LLen(ctx context.Context, key string) (int64, error) {
	var length int64
	err := s.do(func(conn redis.Conn) error {
		reply, err := redis.Int64(conn.Do("LLEN", key))
		if err != nil {
			return err
		}
		length = reply
		return nil
	})
	return length, err
}

func (s *Redis) SAdd(ctx context.Context, key, member string) error {
	return s.do(func(conn redis.Conn) error {
		_, err := conn.Do("SADD", key, member)
		return err
	})
}

func (s *Redis) SRem(ctx context.Context, key, member string) error {
	return s.do(func(conn redis.Conn) error {
		_, err := conn.Do("SREM", key, member)
		return err
	})
}

func (s *Redis) Incr(ctx context.Context, key string) (int64, error) {
	var value int64
	err := s.do(func(conn redis.Conn) error {
		reply, err := redis.Int64(conn.Do("INCR", key))
		if err != nil {
			return err
		}
		value = reply
		return nil
	})
	return value, err
}

func (s *Redis) Decr(ctx context.Context, key string) (int64, error) {
	var value int64
	err := s.do(func(conn redis.Conn) error {
		reply, err := redis.Int64(conn.Do("DECR", key))
		if err != nil {
			return err
		}
		value = reply
		return nil
	})
	return value, err
}

func (s *Redis) do(fn func(conn redis.Conn) error) error {
	conn, err := s.conn()
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}

// dial establishes a single Redis connection from the options.
func dial(options Options) (redis.Conn, error) {
	uri, err := url.Parse(options.URI)
	if err != nil {
		return nil, errors.NewConnectionError(options.URI,
			fmt.Errorf("invalid URI: %w", err))
	}

	var network string
	var host string
	var password string
	var db string

	dialOptions := []redis.DialOption{
		redis.DialConnectTimeout(options.ConnectTimeout),
		redis.DialReadTimeout(options.ReadTimeout),
		redis.DialWriteTimeout(options.WriteTimeout),
	}

	switch uri.Scheme {
	case "redis", "rediss":
		network = "tcp"
		host = uri.Host
		if uri.User != nil {
			password, _ = uri.User.Password()
		}
		if len(uri.Path) > 1 {
			db = uri.Path[1:]
		}

		if uri.Scheme == "rediss" || options.UseTLS {
			tlsConfig := &tls.Config{
				InsecureSkipVerify: options.TLSSkipVerify,
			}
			if options.TLSCertPath != "" {
				pool, err := loadCertPool(options.TLSCertPath)
				if err != nil {
					return nil, err
				}
				tlsConfig.RootCAs = pool
			}
			dialOptions = append(dialOptions,
				redis.DialUseTLS(true),
				redis.DialTLSConfig(tlsConfig),
			)
		}
	case "unix":
		network = "unix"
		host = uri.Path
	default:
		return nil, errors.NewConnectionError(options.URI,
			fmt.Errorf("unsupported URI scheme %q", uri.Scheme))
	}

	conn, err := redis.Dial(network, host, dialOptions...)
	if err != nil {
		return nil, errors.NewConnectionError(options.URI,
			fmt.Errorf("failed to connect: %w", err))
	}

	if password != "" {
		if _, err := conn.Do("AUTH", password); err != nil {
			conn.Close()
			return nil, errors.NewConnectionError(options.URI,
				fmt.Errorf("authentication failed: %w", err))
		}
	}

	if db != "" {
		if _, err := conn.Do("SELECT", db); err != nil {
			conn.Close()
			return nil, errors.NewConnectionError(options.URI,
				fmt.Errorf("failed to select database: %w", err))
		}
	}

	return conn, nil
}

func loadCertPool(certPath string) (*x509.CertPool, error) {
	rootCAs, _ := x509.SystemCertPool()
	if rootCAs == nil {
		rootCAs = x509.NewCertPool()
	}

	certs, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read cert file %q: %w", certPath, err)
	}
	if ok := rootCAs.AppendCertsFromPEM(certs); !ok {
		return nil, fmt.Errorf("failed to append certs from %q", certPath)
	}
	return rootCAs, nil
}
