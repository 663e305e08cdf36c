package config

// Search defaults.
const (
	DefaultSemanticWeight = 0.7
	DefaultLexicalWeight  = 0.3
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Backend == "" {
		cfg.Backend = BackendLocal
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimit > 0 && cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = int(cfg.Server.RateLimit)
		if cfg.Server.RateBurst < 1 {
			cfg.Server.RateBurst = 1
		}
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/kensaku/data/db/documents.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/kensaku/data/indices/bleve"
	}
	if cfg.Postgres.Host == "" {
		cfg.Postgres.Host = "localhost"
	}
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = 5432
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = "prefer"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderMock
	}
	if cfg.Embedding.Dimensions == 0 {
		if cfg.Embedding.Provider == ProviderOpenAI {
			cfg.Embedding.Dimensions = 1536
		} else {
			cfg.Embedding.Dimensions = 384
		}
	}
	if cfg.Embedding.Provider == ProviderONNX && cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/kensaku/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.OpenAIModel == "" {
		cfg.Embedding.OpenAIModel = "text-embedding-3-small"
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.SemanticWeight == nil {
		w := DefaultSemanticWeight
		cfg.Search.SemanticWeight = &w
	}
	if cfg.Search.LexicalWeight == nil {
		w := DefaultLexicalWeight
		cfg.Search.LexicalWeight = &w
	}
	if cfg.Search.TitleBoost == 0 {
		cfg.Search.TitleBoost = 2.0
	}
	if cfg.Ingest.Extensions == nil {
		cfg.Ingest.Extensions = []string{".txt", ".md", ".rst", ".pdf", ".docx", ".xlsx", ".pptx", ".odt", ".odp", ".ods"}
	}
	if cfg.Ingest.SourceID == "" {
		cfg.Ingest.SourceID = "local"
	}
	for i := range cfg.Ingest.Watch {
		if cfg.Ingest.Watch[i].SourceID == "" {
			cfg.Ingest.Watch[i].SourceID = cfg.Ingest.SourceID
		}
	}
}
