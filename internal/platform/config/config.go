package config

import (
	"log/slog"
	"net"
	"net/netip"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
)

const (
	TransportLocal = "local"
	TransportQueue = "queue"
)

// Config is built once at startup and passed by pointer; it is never mutated afterwards.
type Config struct {
	APIPort   string
	APIPrefix string
	AppEnv    string

	CORSOrigins     []string
	CORSMethods     []string
	CORSCredentials bool

	DatabaseURL string
	DBMaxConns  int32
	DBTimeout   time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	UsersQueue     string
	PostsQueue     string
	RPCTimeout     time.Duration
	RPCConcurrency int
	PostsTransport string

	JWTSecret    []byte
	JWTExpiresIn time.Duration

	LogFormat string
	LogLevel  string

	AuthRatePerMinute int
	TrustedProxies    []netip.Prefix
	AutoMigrate       bool
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

type setting struct {
	flag, env, fallback, usage string
}

var settings = []setting{
	{"api-port", "API_PORT", "8080", "HTTP listen port"},
	{"api-prefix", "API_PREFIX", "/api", "path prefix for every API route"},
	{"app-env", "APP_ENV", "development", "development, test or production"},
	{"cors-origins", "CORS_ORIGINS", "*", "comma-separated allowed origin patterns"},
	{"cors-methods", "CORS_METHODS", "GET,POST,PATCH,DELETE,OPTIONS", "comma-separated allowed methods"},
	{"cors-credentials", "CORS_CREDENTIALS", "true", "allow credentialed CORS requests"},
	{"database-url", "DATABASE_URL", "", "postgres connection URL; overrides the db-* settings"},
	{"db-host", "DB_HOST", "localhost", "database host"},
	{"db-port", "DB_PORT", "5432", "database port"},
	{"db-user", "DB_USER", "postgres", "database user"},
	{"db-password", "DB_PASSWORD", "postgres", "database password"},
	{"db-name", "DB_NAME", "ekfc_users", "database name"},
	{"db-sslmode", "DB_SSLMODE", "disable", "database sslmode"},
	{"db-max-conns", "DB_MAX_CONNS", "25", "maximum pooled connections"},
	{"db-timeout", "DB_TIMEOUT", "5s", "timeout for a single storage call"},
	{"redis-addr", "REDIS_ADDR", "localhost:6379", "redis address"},
	{"redis-password", "REDIS_PASSWORD", "", "redis password"},
	{"redis-db", "REDIS_DB", "0", "redis database index"},
	{"users-queue", "USERS_QUEUE", "users_queue", "queue consumed by the users message handlers"},
	{"posts-queue", "POSTS_QUEUE", "posts_queue", "queue consumed by the posts message handlers"},
	{"rpc-timeout", "RPC_TIMEOUT", "10s", "timeout for a single message round trip"},
	{"rpc-concurrency", "RPC_CONCURRENCY", "8", "messages handled concurrently per worker"},
	{"posts-transport", "POSTS_TRANSPORT", TransportLocal, "local or queue"},
	{"jwt-secret", "JWT_SECRET", "", "HS256 signing secret (required)"},
	{"jwt-expires-in", "JWT_EXPIRES_IN", "7d", "token lifetime, e.g. 7d, 12h, 30m"},
	{"log-format", "LOG_FORMAT", "json", "json or text"},
	{"log-level", "LOG_LEVEL", "info", "debug, info, warn or error"},
	{"auth-rate-per-minute", "AUTH_RATE_PER_MINUTE", "20", "register/login attempts allowed per client per minute"},
	{"trusted-proxies", "TRUSTED_PROXIES", "", "comma-separated proxy IPs or CIDRs whose X-Real-IP/X-Forwarded-For are honoured"},
	{"auto-migrate", "AUTO_MIGRATE", "false", "apply pending migrations on startup"},
}

// LoadEnvFile loads .env into the process environment when present.
func LoadEnvFile() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, relying on environment variables")
	}
}

// RegisterFlags declares every setting on fs, defaulting to the environment.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", getEnv("CONFIG_FILE", ""), "optional YAML config file")
	for _, s := range settings {
		fs.String(s.flag, getEnv(s.env, s.fallback), s.usage+" ($"+s.env+")")
	}
}

// Load resolves settings with precedence: explicit flag, config file, environment, default.
func Load(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path, _ := fs.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, common.ConfigErrorf("reading config file %s: %v", path, err)
		}
	}
	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return nil, common.ConfigErrorf("reading flags: %v", err)
	}

	p := parser{k: k}
	cfg := &Config{
		APIPort:           p.str("api-port"),
		APIPrefix:         "/" + strings.Trim(p.str("api-prefix"), "/"),
		AppEnv:            p.str("app-env"),
		CORSOrigins:       p.list("cors-origins"),
		CORSMethods:       p.list("cors-methods"),
		CORSCredentials:   p.boolean("cors-credentials"),
		DatabaseURL:       p.str("database-url"),
		DBMaxConns:        int32(p.integer("db-max-conns")),
		DBTimeout:         p.duration("db-timeout"),
		RedisAddr:         p.str("redis-addr"),
		RedisPassword:     p.str("redis-password"),
		RedisDB:           p.integer("redis-db"),
		UsersQueue:        p.str("users-queue"),
		PostsQueue:        p.str("posts-queue"),
		RPCTimeout:        p.duration("rpc-timeout"),
		RPCConcurrency:    p.integer("rpc-concurrency"),
		PostsTransport:    p.str("posts-transport"),
		JWTSecret:         []byte(p.str("jwt-secret")),
		JWTExpiresIn:      p.duration("jwt-expires-in"),
		LogFormat:         p.str("log-format"),
		LogLevel:          p.str("log-level"),
		AuthRatePerMinute: p.integer("auth-rate-per-minute"),
		TrustedProxies:    p.prefixes("trusted-proxies"),
		AutoMigrate:       p.boolean("auto-migrate"),
	}
	if p.err != nil {
		return nil, p.err
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = (&url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(p.str("db-user"), p.str("db-password")),
			Host:     net.JoinHostPort(p.str("db-host"), p.str("db-port")),
			Path:     "/" + p.str("db-name"),
			RawQuery: "sslmode=" + url.QueryEscape(p.str("db-sslmode")),
		}).String()
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.JWTSecret) == 0 {
		return common.ConfigErrorf("jwt-secret is required")
	}
	if c.PostsTransport != TransportLocal && c.PostsTransport != TransportQueue {
		return common.ConfigErrorf("posts-transport must be %q or %q, got %q", TransportLocal, TransportQueue, c.PostsTransport)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return common.ConfigErrorf("log-format must be json or text, got %q", c.LogFormat)
	}
	if c.RPCConcurrency < 1 {
		return common.ConfigErrorf("rpc-concurrency must be at least 1")
	}
	if c.DBMaxConns < 1 {
		return common.ConfigErrorf("db-max-conns must be at least 1")
	}
	return nil
}

// parser reads typed values out of koanf, keeping the first failure.
type parser struct {
	k   *koanf.Koanf
	err error
}

func (p *parser) str(key string) string {
	return strings.TrimSpace(p.k.String(key))
}

func (p *parser) list(key string) []string {
	var out []string
	for _, part := range strings.Split(p.str(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// prefixes reads a list of CIDRs; a bare address becomes a single-host prefix.
func (p *parser) prefixes(key string) []netip.Prefix {
	var out []netip.Prefix
	for _, raw := range p.list(key) {
		prefix, err := netip.ParsePrefix(raw)
		if err != nil {
			addr, aerr := netip.ParseAddr(raw)
			if aerr != nil {
				if p.err == nil {
					p.err = common.ConfigErrorf("%s: %q is not an IP address or CIDR", key, raw)
				}
				continue
			}
			prefix = netip.PrefixFrom(addr, addr.BitLen())
		}
		out = append(out, prefix.Masked())
	}
	return out
}

func (p *parser) integer(key string) int {
	v, err := strconv.Atoi(p.str(key))
	if err != nil && p.err == nil {
		p.err = common.ConfigErrorf("%s must be an integer, got %q", key, p.str(key))
	}
	return v
}

func (p *parser) boolean(key string) bool {
	v, err := strconv.ParseBool(p.str(key))
	if err != nil && p.err == nil {
		p.err = common.ConfigErrorf("%s must be a boolean, got %q", key, p.str(key))
	}
	return v
}

func (p *parser) duration(key string) time.Duration {
	d, err := ParseDuration(p.str(key))
	if err != nil && p.err == nil {
		p.err = common.ConfigErrorf("%s: %s", key, common.PublicMessage(err))
	}
	return d
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
