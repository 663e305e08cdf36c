package pgstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/hyperjump/kensaku/internal/models"
)

// arrayConverter lets []string through like the pgx driver does.
type arrayConverter struct{}

func (arrayConverter) ConvertValue(v interface{}) (driver.Value, error) {
	if s, ok := v.([]string); ok {
		return s, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual),
		sqlmock.ValueConverterOption(arrayConverter{}),
	)
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return New(db), mock, func() { _ = db.Close() }
}

func embedding(t *testing.T, dim models.Dimension) models.Embedding {
	t.Helper()
	v := make([]float32, int(dim))
	v[0] = 1
	emb, err := models.NewEmbedding(dim, v)
	if err != nil {
		t.Fatal(err)
	}
	return emb
}

var matchColumns = []string{"id", "source_id", "url", "title", "content", "metadata", "created_at", "updated_at", "similarity"}

func TestVectorSearchSelectsStatementByDimension(t *testing.T) {
	tests := []struct {
		dim  models.Dimension
		stmt string
	}{
		{models.Dim384, vectorQuery384},
		{models.Dim768, vectorQuery768},
		{models.Dim1024, vectorQuery1024},
		{models.Dim1536, vectorQuery1536},
		{models.Dim3072, vectorQuery3072},
	}
	for _, tt := range tests {
		t.Run(tt.dim.String(), func(t *testing.T) {
			store, mock, done := newStoreWithMock(t)
			defer done()

			emb := embedding(t, tt.dim)
			now := time.Now()
			mock.ExpectQuery(tt.stmt).
				WithArgs(vectorLiteral(emb.Values()), []string{}, 4).
				WillReturnRows(sqlmock.NewRows(matchColumns).
					AddRow("a", "wiki", "https://a", "A", "alpha", []byte(`{"lang":"en"}`), now, now, 0.9).
					AddRow("b", "wiki", nil, nil, "beta", nil, now, now, 0.4))

			matches, err := store.VectorSearch(context.Background(), emb, 4, nil)
			if err != nil {
				t.Fatalf("VectorSearch() error = %v", err)
			}
			if len(matches) != 2 {
				t.Fatalf("expected 2 matches, got %d", len(matches))
			}
			if matches[0].Document.ID != "a" || matches[0].Similarity != 0.9 {
				t.Errorf("unexpected first match %+v", matches[0])
			}
			if matches[0].Document.Metadata["lang"] != "en" {
				t.Errorf("metadata not decoded: %v", matches[0].Document.Metadata)
			}
			if matches[1].Document.URL != "" || matches[1].Document.Metadata != nil {
				t.Errorf("null columns should decode to zero values: %+v", matches[1].Document)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("expectations: %v", err)
			}
		})
	}
}

func TestVectorStatementsReadOnlyTheirColumn(t *testing.T) {
	for _, d := range models.SupportedDimensions {
		stmt, err := vectorQuery(d)
		if err != nil {
			t.Fatalf("vectorQuery(%d): %v", d, err)
		}
		col := "embedding_" + d.String()
		for _, other := range models.SupportedDimensions {
			otherCol := "embedding_" + other.String()
			if other != d && strings.Contains(stmt, otherCol+" ") {
				t.Errorf("%d-dimension statement references %s", d, otherCol)
			}
		}
		if !strings.Contains(stmt, col+" <=> $1::vector") {
			t.Errorf("%d-dimension statement does not order by %s", d, col)
		}
	}
}

func TestVectorSearchUnsupportedDimension(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	_, err := store.VectorSearch(context.Background(), models.Embedding{}, 5, nil)
	if !errors.Is(err, models.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no query should run: %v", err)
	}
}

func TestVectorSearchPassesSourceFilter(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	emb := embedding(t, models.Dim768)
	mock.ExpectQuery(vectorQuery768).
		WithArgs(sqlmock.AnyArg(), []string{"wiki", "blog"}, 10).
		WillReturnRows(sqlmock.NewRows(matchColumns))

	matches, err := store.VectorSearch(context.Background(), emb, 10, []string{"wiki", "blog"})
	if err != nil {
		t.Fatalf("VectorSearch() error = %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches, got %d", len(matches))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestVectorSearchQueryError(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	boom := errors.New("connection reset by peer")
	mock.ExpectQuery(vectorQuery1536).WillReturnError(boom)

	_, err := store.VectorSearch(context.Background(), embedding(t, models.Dim1536), 3, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped driver error, got %v", err)
	}
}

func TestLexicalSearch(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery(lexicalQuery).
		WithArgs("rate limiting", []string{}).
		WillReturnRows(sqlmock.NewRows([]string{"id", "score"}).
			AddRow("a", 0.2).
			AddRow("b", 0.05))

	hits, err := store.LexicalSearch(context.Background(), "rate limiting", nil)
	if err != nil {
		t.Fatalf("LexicalSearch() error = %v", err)
	}
	if len(hits) != 2 || hits[0].ID != "a" || hits[0].Score != 0.2 {
		t.Errorf("unexpected hits %+v", hits)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLexicalQueryMatchesAnyToken(t *testing.T) {
	if !strings.Contains(lexicalQuery, `replace(plainto_tsquery('english', $1)::text, ' & ', ' | ')::tsquery`) {
		t.Fatalf("lexical query must OR the query lexemes:\n%s", lexicalQuery)
	}
	if strings.Count(lexicalQuery, "plainto_tsquery") != 1 {
		t.Errorf("the AND-joined tsquery must not reach the WHERE or rank clauses:\n%s", lexicalQuery)
	}
	for _, clause := range []string{"@@ q.query", "ts_rank_cd(d.search_vector, q.query)"} {
		if !strings.Contains(lexicalQuery, clause) {
			t.Errorf("lexical query missing %q", clause)
		}
	}
}

func TestLexicalSearchSingleTokenMatch(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	// only "alpha" occurs in doc a; it is still a lexical hit
	mock.ExpectQuery(lexicalQuery).
		WithArgs("alpha zeta", []string{"wiki"}).
		WillReturnRows(sqlmock.NewRows([]string{"id", "score"}).AddRow("a", 0.1))

	hits, err := store.LexicalSearch(context.Background(), "alpha zeta", []string{"wiki"})
	if err != nil {
		t.Fatalf("LexicalSearch() error = %v", err)
	}
	if len(hits) != 1 || hits[0].ID != "a" {
		t.Errorf("unexpected hits %+v", hits)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery(getDocumentQuery).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetDocument(context.Background(), "missing")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListSources(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery(listSourcesQuery).
		WillReturnRows(sqlmock.NewRows([]string{"source_id"}).AddRow("blog").AddRow("wiki"))

	sources, err := store.ListSources(context.Background())
	if err != nil {
		t.Fatalf("ListSources() error = %v", err)
	}
	if len(sources) != 2 || sources[0] != "blog" {
		t.Errorf("unexpected sources %v", sources)
	}
}

func TestServerInfo(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery(serverInfoQuery).
		WillReturnRows(sqlmock.NewRows([]string{"version", "current_database", "current_user"}).
			AddRow("PostgreSQL 16.2", "search", "reader"))

	info, err := store.ServerInfo(context.Background())
	if err != nil {
		t.Fatalf("ServerInfo() error = %v", err)
	}
	if info.Database != "search" || info.User != "reader" || !strings.HasPrefix(info.Version, "PostgreSQL") {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestVectorLiteral(t *testing.T) {
	tests := []struct {
		in   []float32
		want string
	}{
		{[]float32{}, "[]"},
		{[]float32{1, 0.5, -2}, "[1,0.5,-2]"},
		{[]float32{0.1}, "[0.1]"},
	}
	for _, tt := range tests {
		if got := vectorLiteral(tt.in); got != tt.want {
			t.Errorf("vectorLiteral(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
