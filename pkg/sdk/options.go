package symdex

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type vectorSpace struct {
	embedder   Embedder
	kind       VectorKind
	dimensions int
}

type clientConfig struct {
	driver   string // "valkey" or "redis"
	addrs    []string
	password string

	root              string
	relations         map[string][]string
	relationshipsFile string
	modulePrefix      string
	strict            bool

	spaces        map[string]vectorSpace
	defaultVector string

	keyPrefix         string
	defaultCollection string
	defaultLimit      int
	maxLimit          int
	hnswM             int
	hnswEFConstruct   int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRelationships sets the containment map and its root component.
func WithRelationships(root string, relations map[string][]string) Option {
	return optionFunc(func(c *clientConfig) {
		c.root = root
		c.relations = relations
	})
}

// WithRelationshipsFile loads the containment map from a YAML or JSON file.
// It takes precedence over WithRelationships.
func WithRelationshipsFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.relationshipsFile = path
	})
}

// WithModulePrefix prepends prefix to every generated symbol.
func WithModulePrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.modulePrefix = prefix
	})
}

// WithStrict makes validation accept direct parent-child edges only.
func WithStrict() Option {
	return optionFunc(func(c *clientConfig) {
		c.strict = true
	})
}

// WithVectorSpace registers a named vector space and the embedder that fills
// it. The first space registered is the default unless WithDefaultVector is
// given.
func WithVectorSpace(name string, e Embedder, kind VectorKind, dimensions int) Option {
	return optionFunc(func(c *clientConfig) {
		if c.spaces == nil {
			c.spaces = make(map[string]vectorSpace)
		}
		if c.defaultVector == "" {
			c.defaultVector = name
		}
		c.spaces[name] = vectorSpace{embedder: e, kind: kind, dimensions: dimensions}
	})
}

// WithDefaultVector sets the vector space used when a query names none.
func WithDefaultVector(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultVector = name
	})
}

// WithDefaultCollection sets the collection used when a query names none.
func WithDefaultCollection(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultCollection = name
	})
}

// WithLimits sets the default and maximum result limits.
// Defaults: 10 and 100.
func WithLimits(defaultLimit, maxLimit int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultLimit = defaultLimit
		c.maxLimit = maxLimit
	})
}

// WithKeyPrefix sets the key prefix of stored points. Default: "symdex:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithHNSW configures HNSW index parameters (M and EF construction).
// Defaults: M=16, EFConstruct=200.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
