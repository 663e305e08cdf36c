package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// PostgresConfig holds the connection settings of the PostgreSQL backend.
// URL takes precedence over the individual fields.
type PostgresConfig struct {
	URL         string `yaml:"url"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Database    string `yaml:"database"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	SSLMode     string `yaml:"ssl_mode"`
	SSLCert     string `yaml:"ssl_cert"`
	SSLKey      string `yaml:"ssl_key"`
	SSLRootCert string `yaml:"ssl_root_cert"`
	// BreakerEnabled wraps the backend in a circuit breaker; defaults to true.
	BreakerEnabled *bool `yaml:"breaker_enabled"`
}

// BreakerEnabledOrDefault returns whether the circuit breaker is on; true when unset.
func (p *PostgresConfig) BreakerEnabledOrDefault() bool {
	if p.BreakerEnabled != nil {
		return *p.BreakerEnabled
	}
	return true
}

// ConnectionString returns URL when set, otherwise a postgresql:// URL built
// from the individual fields with SSL parameters unless ssl_mode is disable.
func (p *PostgresConfig) ConnectionString() string {
	if p.URL != "" {
		return p.URL
	}
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(p.User, p.Password),
		Host:   net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:   "/" + p.Database,
	}
	q := url.Values{}
	if p.SSLMode != "" {
		q.Set("sslmode", p.SSLMode)
	}
	if p.SSLMode != "disable" {
		if p.SSLCert != "" {
			q.Set("sslcert", p.SSLCert)
		}
		if p.SSLKey != "" {
			q.Set("sslkey", p.SSLKey)
		}
		if p.SSLRootCert != "" {
			q.Set("sslrootcert", p.SSLRootCert)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Validate checks that a connection can be attempted.
func (p *PostgresConfig) Validate() error {
	if p.URL != "" {
		if err := ValidatePostgresURL(p.URL); err != nil {
			return fmt.Errorf("invalid url: %w", err)
		}
		return nil
	}
	if p.Database == "" {
		return errors.New("database is required when url is not set")
	}
	if p.User == "" {
		return errors.New("user is required when url is not set")
	}
	if p.Password == "" {
		return errors.New("password is required when url is not set")
	}
	if p.Port < 1 || p.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", p.Port)
	}
	return nil
}

// ValidatePostgresURL checks scheme, host, credentials, database and port of a connection URL.
func ValidatePostgresURL(raw string) error {
	if raw == "" {
		return errors.New("url cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url format: %w", err)
	}
	if u.Scheme != "postgresql" && u.Scheme != "postgres" {
		return fmt.Errorf("url must use postgresql:// or postgres:// scheme, got %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return errors.New("missing hostname")
	}
	if u.User == nil || u.User.Username() == "" {
		return errors.New("missing username")
	}
	if pw, ok := u.User.Password(); !ok || pw == "" {
		return errors.New("missing password")
	}
	if u.Path == "" || u.Path == "/" {
		return errors.New("missing database name")
	}
	if ps := u.Port(); ps != "" {
		port, err := strconv.Atoi(ps)
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("invalid port number: %s", ps)
		}
	}
	return nil
}
