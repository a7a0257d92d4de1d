package site

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/tidwall/gjson"
)

// DatabaseConfig is the database section of the resolved config file.
type DatabaseConfig struct {
	Client   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxOpen  int
}

// CacheConfig is the Redis cache adapter section.
type CacheConfig struct {
	Host     string
	Port     string
	Password string
}

// FileConfig is the subset of the resolved config file read at boot.
type FileConfig struct {
	Title    string
	Database DatabaseConfig
	Cache    CacheConfig
}

// ReadFileConfig loads path. A missing file yields an empty config.
func ReadFileConfig(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return FileConfig{}, nil
	}
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to read config: %w", err)
	}
	if !gjson.ValidBytes(raw) {
		return FileConfig{}, fmt.Errorf("config %s is not valid JSON", path)
	}
	return ParseFileConfig(gjson.ParseBytes(raw)), nil
}

// ParseFileConfig extracts the boot settings from a parsed document.
func ParseFileConfig(doc gjson.Result) FileConfig {
	db := doc.Get("database")
	conn := db.Get("connection")
	cache := doc.Get("adapters.cache.Redis")

	return FileConfig{
		Title: doc.Get("site.title").String(),
		Database: DatabaseConfig{
			Client:   db.Get("client").String(),
			Host:     conn.Get("host").String(),
			Port:     conn.Get("port").String(),
			User:     conn.Get("user").String(),
			Password: conn.Get("password").String(),
			Name:     conn.Get("database").String(),
			SSLMode:  conn.Get("sslmode").String(),
			MaxOpen:  int(db.Get("pool.max").Int()),
		},
		Cache: CacheConfig{
			Host:     cache.Get("host").String(),
			Port:     cache.Get("port").String(),
			Password: cache.Get("password").String(),
		},
	}
}

// Enabled reports whether a database is configured.
func (c DatabaseConfig) Enabled() bool { return c.Host != "" }

// Driver returns the database/sql driver name for the client.
func (c DatabaseConfig) Driver() (string, error) {
	switch strings.ToLower(c.Client) {
	case "", "mysql", "mysql2":
		return "mysql", nil
	case "pg", "postgres", "postgresql":
		return "postgres", nil
	default:
		return "", fmt.Errorf("unsupported database client %q", c.Client)
	}
}

// DSN renders the connection string for the driver.
func (c DatabaseConfig) DSN() (string, error) {
	driver, err := c.Driver()
	if err != nil {
		return "", err
	}

	switch driver {
	case "postgres":
		port := c.Port
		if port == "" {
			port = "5432"
		}
		sslmode := c.SSLMode
		if sslmode == "" {
			sslmode = "require"
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			quoteValue(c.Host), quoteValue(port), quoteValue(c.User),
			quoteValue(c.Password), quoteValue(c.Name), quoteValue(sslmode)), nil
	default:
		port := c.Port
		if port == "" {
			port = "3306"
		}
		cfg := mysql.NewConfig()
		cfg.Net = "tcp"
		cfg.Addr = net.JoinHostPort(c.Host, port)
		cfg.User = c.User
		cfg.Passwd = c.Password
		cfg.DBName = c.Name
		cfg.ParseTime = true
		return cfg.FormatDSN(), nil
	}
}

// Enabled reports whether a cache is configured.
func (c CacheConfig) Enabled() bool { return c.Host != "" }

// Addr is host:port with the default Redis port.
func (c CacheConfig) Addr() string {
	port := c.Port
	if port == "" {
		port = "6379"
	}
	return net.JoinHostPort(c.Host, port)
}

// quoteValue quotes a lib/pq key=value parameter.
func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
