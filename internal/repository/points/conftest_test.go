package points

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/symdex/internal/db"
	"github.com/kailas-cloud/symdex/internal/domain/search/filter"
	"github.com/kailas-cloud/symdex/internal/domain/search/query"
)

const testCollection = "docs"

// mockStore implements the consumer interface for tests. Prefetch stages call
// it concurrently, so every method locks.
type mockStore struct {
	mu sync.Mutex

	hashes map[string]map[string]string
	knnFn  func(q *db.KNNQuery) (*db.SearchResult, error)
	listFn func(q *db.ListQuery) (*db.SearchResult, error)

	knnCalls    []db.KNNQuery
	listCalls   []db.ListQuery
	fetchCalls  int
	hsetItems   []db.HashSetItem
	deleted     []string
	indexExists bool
	created     []*db.IndexDefinition
	createErr   error
	dropped     []string
	dropErr     error
}

func (m *mockStore) HSetMulti(_ context.Context, items []db.HashSetItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hsetItems = append(m.hsetItems, items...)
	return nil
}

func (m *mockStore) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchCalls++
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		if h, ok := m.hashes[k]; ok {
			out[i] = h
		} else {
			out[i] = map[string]string{}
		}
	}
	return out, nil
}

func (m *mockStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.hashes[key]; ok {
		return h, nil
	}
	return map[string]string{}, nil
}

func (m *mockStore) Scan(_ context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range m.hashes {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *mockStore) DropIndex(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped = append(m.dropped, name)
	return m.dropErr
}

func (m *mockStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, keys...)
	return nil
}

func (m *mockStore) IndexExists(context.Context, string) (bool, error) {
	return m.indexExists, nil
}

func (m *mockStore) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, def)
	return m.createErr
}

func (m *mockStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	m.mu.Lock()
	m.knnCalls = append(m.knnCalls, *q)
	fn := m.knnFn
	m.mu.Unlock()
	if fn != nil {
		return fn(q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchList(_ context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	m.mu.Lock()
	m.listCalls = append(m.listCalls, *q)
	fn := m.listFn
	m.mu.Unlock()
	if fn != nil {
		return fn(q)
	}
	return &db.SearchResult{}, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{hashes: make(map[string]map[string]string)}
	repo := New(ms, Options{KeyPrefix: "t:", RRFK: 60}, zap.NewNop())
	return repo, ms
}

// put stores p in the mock the way Upsert would.
func put(t *testing.T, ms *mockStore, p Point) {
	t.Helper()
	fields, err := buildHashFields(&p)
	if err != nil {
		t.Fatalf("buildHashFields: %v", err)
	}
	ms.hashes["t:"+testCollection+":"+p.ID] = fields
}

// entry renders a search hit for id with its stored fields.
func entry(ms *mockStore, id string, score float64) db.SearchEntry {
	key := "t:" + testCollection + ":" + id
	fields := ms.hashes[key]
	if fields == nil {
		fields = map[string]string{db.FieldID: id}
	}
	return db.SearchEntry{Key: key, Score: score, Fields: fields}
}

func mustMatch(t *testing.T, key string, value any) filter.Condition {
	t.Helper()
	c, err := filter.NewMatch(key, value)
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	return c
}

func mustExpression(t *testing.T, must, should, mustNot []filter.Condition) filter.Expression {
	t.Helper()
	e, err := filter.NewExpression(must, should, mustNot)
	if err != nil {
		t.Fatalf("NewExpression: %v", err)
	}
	return e
}

func dense(t *testing.T, v ...float32) query.VectorInput {
	t.Helper()
	in, err := query.FromDense(v)
	if err != nil {
		t.Fatalf("FromDense: %v", err)
	}
	return in
}

func byID(t *testing.T, id string) query.VectorInput {
	t.Helper()
	in, err := query.FromID(id)
	if err != nil {
		t.Fatalf("FromID: %v", err)
	}
	return in
}

func prefetch(t *testing.T, q query.Query, opts query.PrefetchOptions) query.Prefetch {
	t.Helper()
	p, err := query.NewPrefetch(q, opts)
	if err != nil {
		t.Fatalf("NewPrefetch: %v", err)
	}
	return p
}

