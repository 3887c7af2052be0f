package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/symdex/internal/domain"
	"github.com/kailas-cloud/symdex/internal/usecase/querybuild"
)

const pageYAML = `
root: Page
relationships:
  Page: [Header, Section]
  Section: [Card, Card]
  Card: [Button]
symbols:
  Page: "ρ"
`

func mustParse(t *testing.T, text string) File {
	t.Helper()
	f, err := Parse([]byte(text))
	require.NoError(t, err)
	return f
}

func TestParse(t *testing.T) {
	f := mustParse(t, pageYAML)
	assert.Equal(t, "Page", f.Root)
	assert.Equal(t, []string{"Header", "Section"}, f.Relationships["Page"])
	assert.Equal(t, "ρ", f.Symbols["Page"])

	_, err := Parse([]byte("relationships: {}"))
	assert.Error(t, err)
	_, err = Parse([]byte("relationships: [oops"))
	assert.Error(t, err)
}

func TestRebuild_BuildsSnapshot(t *testing.T) {
	c := New(Options{}, zap.NewNop())
	assert.Nil(t, c.Current())

	snap, err := c.Rebuild(context.Background(), mustParse(t, pageYAML))
	require.NoError(t, err)
	assert.Same(t, snap, c.Current())
	assert.Equal(t, uint64(1), snap.Generation)
	assert.Equal(t, "Page", snap.Root)

	sym, ok := snap.Table.Symbol("Page")
	require.True(t, ok)
	assert.Equal(t, "ρ", sym, "pinned symbol must win")
	assert.Equal(t, 5, snap.Table.Len())
	assert.True(t, snap.Graph.CanContain("Page", "Button"))

	cardSym, _ := snap.Table.Symbol("Card")
	sectionSym, _ := snap.Table.Symbol("Section")
	res := snap.Validator.Validate(sym + "[" + sectionSym + "[" + cardSym + "×3]]")
	assert.True(t, res.Valid, "issues: %v", res.Issues)
}

func TestRebuild_QuerySymbolsReserved(t *testing.T) {
	c := New(Options{}, zap.NewNop())
	snap, err := c.Rebuild(context.Background(), mustParse(t, `
relationships:
  Footer: [Form]
  Form: [Field]
`))
	require.NoError(t, err)
	for _, name := range []string{"Footer", "Form", "Field"} {
		sym, _ := snap.Table.Symbol(name)
		assert.NotContains(t, querybuild.DefaultSymbols().Symbols(), sym, name)
	}

	_, err = c.Rebuild(context.Background(), mustParse(t, `
relationships:
  Footer: [Form]
symbols:
  Footer: "ƒ"
`))
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Same(t, snap, c.Current())
}

func TestRebuild_Deterministic(t *testing.T) {
	a, err := New(Options{}, nil).Rebuild(context.Background(), mustParse(t, pageYAML))
	require.NoError(t, err)
	b, err := New(Options{}, nil).Rebuild(context.Background(), mustParse(t, pageYAML))
	require.NoError(t, err)
	assert.Equal(t, a.Table.Map(), b.Table.Map())
}

func TestRebuild_ModulePrefix(t *testing.T) {
	c := New(Options{ModulePrefix: "ui"}, nil)
	snap, err := c.Rebuild(context.Background(), mustParse(t, pageYAML))
	require.NoError(t, err)

	sym, _ := snap.Table.Symbol("Page")
	assert.Equal(t, "ui:ρ", sym)
	name, ok := snap.Table.Resolve("ui:ρ")
	assert.True(t, ok)
	assert.Equal(t, "Page", name)
}

func TestRebuild_FailureKeepsPrevious(t *testing.T) {
	c := New(Options{}, nil)
	first, err := c.Rebuild(context.Background(), mustParse(t, pageYAML))
	require.NoError(t, err)

	tests := []struct {
		name string
		file File
	}{
		{"unknown root", File{Root: "Nope", Relationships: map[string][]string{"A": {"B"}}}},
		{"pin unknown component", File{Relationships: map[string][]string{"A": {"B"}}, Symbols: map[string]string{"Z": "ζ"}}},
		{"pin clash", File{Relationships: map[string][]string{"A": {"B"}}, Symbols: map[string]string{"A": "ζ", "B": "ζ"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Rebuild(context.Background(), tt.file)
			require.Error(t, err)
			assert.Same(t, first, c.Current())
		})
	}
}

func TestRebuild_RootOverride(t *testing.T) {
	c := New(Options{Root: "Section"}, nil)
	snap, err := c.Rebuild(context.Background(), mustParse(t, pageYAML))
	require.NoError(t, err)
	assert.Equal(t, "Section", snap.Root)
}

func TestRebuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Options{}, nil).Rebuild(ctx, mustParse(t, pageYAML))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCurrent_ConcurrentReaders(t *testing.T) {
	c := New(Options{}, nil)
	_, err := c.Rebuild(context.Background(), mustParse(t, pageYAML))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				snap := c.Current()
				if snap == nil || snap.Table.Len() == 0 {
					t.Error("reader saw an empty snapshot")
					return
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		_, err := c.Rebuild(context.Background(), mustParse(t, pageYAML))
		require.NoError(t, err)
	}
	wg.Wait()
	assert.Equal(t, uint64(6), c.Current().Generation)
}

func TestReload_MissingFile(t *testing.T) {
	_, err := New(Options{}, nil).Reload(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWatch_RebuildsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relationships.yaml")
	require.NoError(t, os.WriteFile(path, []byte(pageYAML), 0o600))

	c := New(Options{}, zap.NewNop())
	_, err := c.Reload(context.Background(), path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Watch(ctx, path, 20*time.Millisecond) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	updated := pageYAML + "  Button: [Icon]\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	require.Eventually(t, func() bool {
		snap := c.Current()
		return snap.Generation >= 2 && snap.Graph.Has("Icon")
	}, 5*time.Second, 20*time.Millisecond)

	// a broken file keeps the last good snapshot
	gen := c.Current().Generation
	require.NoError(t, os.WriteFile(path, []byte("relationships: [oops"), 0o600))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, gen, c.Current().Generation)
	assert.True(t, c.Current().Graph.Has("Icon"))
}
