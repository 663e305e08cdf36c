// Package main is the kensaku CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kensaku/internal/cli"
	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/fileid"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/server"
	"github.com/hyperjump/kensaku/internal/watcher"
	"github.com/hyperjump/kensaku/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kensaku/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "index":
		runIndex()
	case "delete":
		runDelete()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kensaku version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// setup loads config, builds a logger and initializes components for commands
// that work on the store directly.
func setup(configPath string, debug bool) (*Components, *zap.Logger) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	logger, err := utils.NewCLILogger(cfg.Debug || debug)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	components, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		fatalf("Failed to initialize: %v", err)
	}
	return components, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("backend", cfg.Backend),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if w := newWatcher(components, logger); w != nil {
		if err := w.Start(context.Background()); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
	}

	srv := server.NewServer(components.Engine, components.Catalog(), &cfg.Server, logger, components.serverOptions()...)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// newWatcher returns a watcher for the configured directories, or nil when
// there are none.
func newWatcher(c *Components, logger *zap.Logger) *watcher.Watcher {
	if c.Indexer == nil || len(c.Config.Ingest.Watch) == 0 {
		return nil
	}
	roots := make([]watcher.Root, len(c.Config.Ingest.Watch))
	for i, wc := range c.Config.Ingest.Watch {
		roots[i] = watcher.Root{Path: wc.Path, SourceID: wc.SourceID}
	}
	return watcher.New(c.Indexer, roots, c.Config.Ingest.Extensions, watcher.WithLogger(logger))
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: kensaku search [flags] [query text]\n\n")
	fmt.Fprintf(fs.Output(), "Query text is all remaining arguments joined by spaces. It feeds the lexical\nside of hybrid search and, without --embedding, is embedded with the configured provider.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  kensaku search rate limiting
  kensaku search --embedding query.json --dimension 768 "rate limiting"
  kensaku search --vector-only --embedding - < query.json
  kensaku search --semantic-weight 1 --lexical-weight 0 --source wiki,docs token bucket
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' && a != "-" {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// parseSources splits a comma-separated source list, dropping blanks.
func parseSources(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// readEmbedding reads a JSON array of numbers from path, or stdin for "-".
func readEmbedding(path string, stdin io.Reader) ([]float32, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var values []float32
	if err := json.NewDecoder(r).Decode(&values); err != nil {
		return nil, fmt.Errorf("embedding must be a JSON array of numbers: %w", err)
	}
	return values, nil
}

// searchFlags are the parsed search options. Pointers stay nil for flags the
// user did not set so configured defaults apply.
type searchFlags struct {
	text           string
	embedding      []float32
	limit          *int
	dimension      *int
	sources        []string
	semanticWeight *float64
	lexicalWeight  *float64
	vectorOnly     bool
}

func (f *searchFlags) query() *models.SearchQuery {
	return &models.SearchQuery{
		Embedding:      f.embedding,
		Text:           f.text,
		Dimension:      f.dimension,
		Limit:          f.limit,
		SourceFilter:   f.sources,
		SemanticWeight: f.semanticWeight,
		LexicalWeight:  f.lexicalWeight,
	}
}

// errUsage reports a flag error the flag package has already printed.
var errUsage = errors.New("invalid flags")

func parseSearchFlags(args []string, stdin io.Reader) (*searchFlags, *flag.FlagSet, error) {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.String("config", defaultConfigPath, "config file path (direct mode)")
	fs.String("server", "http://localhost:8080", "server URL (empty = search the configured backend directly)")
	fs.String("output", "text", "output format: text or json")
	limit := fs.Int("limit", 0, "number of results (default from config)")
	dimension := fs.Int("dimension", 0, "embedding dimension (default: inferred from the embedding length)")
	source := fs.String("source", "", "comma-separated source ids to search")
	semanticWeight := fs.Float64("semantic-weight", 0, "weight of vector similarity in the rank score")
	lexicalWeight := fs.Float64("lexical-weight", 0, "weight of full-text relevance in the rank score")
	embeddingPath := fs.String("embedding", "", "file holding the query embedding as a JSON array (- for stdin)")
	vectorOnly := fs.Bool("vector-only", false, "rank by vector similarity only")
	fs.Usage = func() { printSearchUsage(fs) }
	if err := fs.Parse(searchArgsReorder(args)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, fs, err
		}
		return nil, fs, errUsage
	}

	set := map[string]string{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = f.Value.String() })

	out := &searchFlags{
		text:       buildSearchQuery(fs.Args()),
		sources:    parseSources(*source),
		vectorOnly: *vectorOnly,
	}
	if _, ok := set["limit"]; ok {
		out.limit = limit
	}
	if _, ok := set["dimension"]; ok {
		out.dimension = dimension
	}
	if _, ok := set["semantic-weight"]; ok {
		out.semanticWeight = semanticWeight
	}
	if _, ok := set["lexical-weight"]; ok {
		out.lexicalWeight = lexicalWeight
	}
	if *embeddingPath != "" {
		emb, err := readEmbedding(*embeddingPath, stdin)
		if err != nil {
			return nil, fs, err
		}
		out.embedding = emb
	}
	if out.text == "" && len(out.embedding) == 0 {
		return nil, fs, errors.New("a query text or --embedding is required")
	}
	return out, fs, nil
}

func runSearch() {
	sf, fs, err := parseSearchFlags(os.Args[2:], os.Stdin)
	switch {
	case errors.Is(err, flag.ErrHelp):
		os.Exit(0)
	case errors.Is(err, errUsage):
		os.Exit(2)
	case err != nil:
		fmt.Fprintf(os.Stderr, "%v\n\n", err)
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(fs.Lookup("output").Value.String())
	if err != nil {
		fatalf("%v", err)
	}
	query := sf.query()

	var response *models.SearchResponse
	if serverURL := fs.Lookup("server").Value.String(); serverURL != "" {
		response, err = searchViaHTTP(serverURL, query, sf.vectorOnly)
	} else {
		response, err = searchDirect(fs.Lookup("config").Value.String(), query, sf.vectorOnly)
	}
	if err != nil {
		fatalf("Search failed: %v", err)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func searchDirect(configPath string, query *models.SearchQuery, vectorOnly bool) (*models.SearchResponse, error) {
	components, logger := setup(configPath, false)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	if len(query.Embedding) == 0 {
		emb, err := components.Embedder.Embed(ctx, query.Text)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		query.Embedding = emb
	}
	if vectorOnly {
		return components.Engine.VectorSearch(ctx, query)
	}
	return components.Engine.Search(ctx, query)
}

func searchViaHTTP(serverURL string, query *models.SearchQuery, vectorOnly bool) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	path := "/api/v1/search"
	if vectorOnly {
		path = "/api/v1/search/vector"
	}
	resp, err := http.Post(strings.TrimSuffix(serverURL, "/")+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = read the configured backend directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}

	var status *cli.Status
	if *serverURL != "" {
		status, err = statusViaHTTP(*serverURL)
	} else {
		components, logger := setup(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		status, err = components.localStatus(context.Background())
	}
	if err != nil {
		fatalf("Status failed: %v", err)
	}
	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func statusViaHTTP(serverURL string) (*cli.Status, error) {
	resp, err := http.Get(strings.TrimSuffix(serverURL, "/") + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var s cli.Status
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	source := fs.String("source", "", "source id for indexed documents (default from config)")
	debug := fs.Bool("debug", false, "log every indexed file")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kensaku index [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	components, logger := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()
	if components.Indexer == nil {
		fatalf("Indexing is not supported on the %s backend", components.Config.Backend)
	}

	ctx := context.Background()
	info, err := os.Stat(path)
	if err != nil {
		fatalf("Failed to stat path: %v", err)
	}
	if info.IsDir() {
		stats, err := components.Indexer.IndexDirectory(ctx, path, *source)
		if err != nil {
			fatalf("Indexing directory failed: %v", err)
		}
		fmt.Printf("Indexed %d file(s) from %s (%d unchanged, %d failed)\n", stats.Indexed, path, stats.Skipped, stats.Failed)
		return
	}
	indexed, err := components.Indexer.IndexFile(ctx, path, *source)
	if err != nil {
		fatalf("Indexing failed: %v", err)
	}
	absPath, _ := filepath.Abs(path)
	if !indexed {
		fmt.Printf("Document unchanged: %s\n", fileid.FileDocID(absPath))
		return
	}
	fmt.Printf("Document indexed successfully: %s\n", fileid.FileDocID(absPath))
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	byFile := fs.Bool("file", false, "treat the argument as the path of an indexed file")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kensaku delete [flags] <document-id | --file path>")
		os.Exit(1)
	}
	arg := fs.Arg(0)

	components, logger := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()
	if components.Indexer == nil {
		fatalf("Deletion is not supported on the %s backend", components.Config.Backend)
	}

	ctx := context.Background()
	var err error
	if *byFile {
		err = components.Indexer.DeleteFile(ctx, arg)
	} else {
		err = components.Indexer.DeleteDocument(ctx, arg)
	}
	if err != nil {
		fatalf("Deletion failed: %v", err)
	}
	fmt.Printf("Document deleted: %s\n", arg)
}

func printUsage() {
	fmt.Println(`kensaku - hybrid vector and full-text similarity search

Usage:
  kensaku server [flags]               Start the HTTP server
  kensaku search [flags] [query]       Search documents
  kensaku index [flags] <path>         Index a file or directory (local backend)
  kensaku delete [flags] <id>          Delete a document (local backend)
  kensaku status [flags]               Show backend and index status
  kensaku version                      Show version
  kensaku help                         Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kensaku/config.yaml)
  --debug            Enable debug logging

Search Flags:
  --config string            Config file path (direct mode)
  --server string            Server URL (default: http://localhost:8080). Use --server "" to search directly.
  --embedding string         Query embedding as a JSON array file, - for stdin
  --dimension int            Embedding dimension (384, 768, 1024, 1536 or 3072)
  --limit int                Number of results (default from config)
  --source string            Comma-separated source ids
  --semantic-weight float    Weight of vector similarity
  --lexical-weight float     Weight of full-text relevance
  --vector-only              Rank by vector similarity only
  --output string            text or json (default: text)

Index Flags:
  --config string    Config file path
  --source string    Source id (default from config)
  --debug            Log every indexed file

Delete Flags:
  --config string    Config file path
  --file             Argument is a file path instead of a document id

Status Flags:
  --config string    Config file path (direct mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to read directly.
  --output string    text or json (default: text)

Examples:
  kensaku server
  kensaku search "token bucket rate limiting"
  kensaku search --output json --source wiki rate limiting
  kensaku index --source docs ./docs
  kensaku delete --file ./docs/old.md
  kensaku status --output json`)
}
