package config

import "strconv"

// ApplyEnv overrides connection settings and secrets from the environment.
// getenv is os.Getenv outside tests.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("POSTGRES_URL"); v != "" {
		cfg.Postgres.URL = v
	}
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.Postgres.Host, "POSTGRES_HOST")
	set(&cfg.Postgres.Database, "POSTGRES_DB")
	set(&cfg.Postgres.User, "POSTGRES_USER")
	set(&cfg.Postgres.Password, "POSTGRES_PASSWORD")
	set(&cfg.Postgres.SSLMode, "POSTGRES_SSL_MODE")
	set(&cfg.Postgres.SSLCert, "POSTGRES_SSL_CERT")
	set(&cfg.Postgres.SSLKey, "POSTGRES_SSL_KEY")
	set(&cfg.Postgres.SSLRootCert, "POSTGRES_SSL_ROOT_CERT")
	if v := getenv("POSTGRES_PORT"); v != "" {
		// an unparsable port is left at -1 so Validate reports it
		port, err := strconv.Atoi(v)
		if err != nil {
			port = -1
		}
		cfg.Postgres.Port = port
	}
	set(&cfg.Embedding.OpenAIAPIKey, "OPENAI_API_KEY")
}
