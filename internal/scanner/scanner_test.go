package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStrategy struct {
	name string
	body string
}

func (f fixedStrategy) Name() string { return f.name }
func (f fixedStrategy) Kind() Kind   { return KindGeneric }
func (f fixedStrategy) Extract(Page) (string, bool) {
	return f.body, f.body != ""
}

func TestChainStopsAtFirstSuccess(t *testing.T) {
	t.Parallel()

	chain := Chain{fixedStrategy{name: "empty"}, fixedStrategy{name: "hit", body: "text"}, fixedStrategy{name: "late", body: "other"}}
	body, used, ok := chain.Run(Page{}, nil)
	require.True(t, ok)
	assert.Equal(t, "text", body)
	assert.Equal(t, "hit", used.Name())

	_, _, ok = Chain{fixedStrategy{name: "empty"}}.Run(Page{}, nil)
	assert.False(t, ok)
}

func TestChainAcceptRejectsShortBodies(t *testing.T) {
	t.Parallel()

	chain := Chain{fixedStrategy{name: "short", body: "tiny"}, fixedStrategy{name: "long", body: "long enough body"}}
	body, used, ok := chain.Run(Page{}, func(b string) bool { return len(b) >= 10 })
	require.True(t, ok)
	assert.Equal(t, "long enough body", body)
	assert.Equal(t, "long", used.Name())
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(Profile{Name: "b"})
	reg.Register(Profile{Name: "a", Content: []string{"article p"}})

	got, err := reg.Resolve("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"article p"}, got.Content)
	assert.Equal(t, []string{"a", "b"}, reg.Names())

	_, err = reg.Resolve("missing")
	assert.Error(t, err)
}

func TestProfileMergePutsHintsFirst(t *testing.T) {
	t.Parallel()

	base := Profile{Name: "x", Content: []string{".story p"}, Image: []string{".lead img"}}
	merged := base.Merge(Profile{Content: []string{".custom p"}})
	assert.Equal(t, []string{".custom p", ".story p"}, merged.Content)
	assert.Equal(t, []string{".lead img"}, merged.Image)
	assert.Equal(t, "x", merged.Name)
}
