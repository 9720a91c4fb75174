package embeddings_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/constantino-dev/vecdb/internal/embeddings"
	"github.com/constantino-dev/vecdb/internal/embeddings/mock"
)

func mockFactory(p embeddings.Params) (embeddings.Function, error) {
	dims, err := p.Int("dims")
	if err != nil {
		return nil, err
	}
	if p["token"] == nil {
		return nil, fmt.Errorf("%w: token required", embeddings.ErrConfiguration)
	}
	return &mock.Function{
		NameValue:   "x",
		NdimsValue:  dims,
		ParamsValue: embeddings.Params{"dims": dims},
	}, nil
}

func TestRegistry_RoundTrip(t *testing.T) {
	r := embeddings.NewRegistry()
	require.NoError(t, r.Register("x", mockFactory))

	factory, ok := r.Get("x")
	require.True(t, ok)

	fn, err := factory(embeddings.Params{"dims": 3, "token": "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, 3, fn.Ndims())

	first, err := json.Marshal(fn.Params())
	require.NoError(t, err)
	second, err := json.Marshal(fn.Params())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NotContains(t, string(first), "s3cret")
}

func TestRegistry_DuplicateFails(t *testing.T) {
	r := embeddings.NewRegistry()
	require.NoError(t, r.Register("x", mockFactory))

	other := func(embeddings.Params) (embeddings.Function, error) {
		return nil, errors.New("should never be called")
	}
	err := r.Register("x", other)
	assert.ErrorIs(t, err, embeddings.ErrConfiguration)

	// The original registration stays active.
	fn, err := r.Create("x", embeddings.Params{"dims": 2, "token": "t"})
	require.NoError(t, err)
	assert.Equal(t, 2, fn.Ndims())
}

func TestRegistry_InvalidRegistration(t *testing.T) {
	r := embeddings.NewRegistry()
	assert.ErrorIs(t, r.Register("", mockFactory), embeddings.ErrConfiguration)
	assert.ErrorIs(t, r.Register("nil", nil), embeddings.ErrConfiguration)
	assert.Empty(t, r.Names())
}

func TestRegistry_GetAbsent(t *testing.T) {
	r := embeddings.NewRegistry()
	factory, ok := r.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, factory)

	_, err := r.Create("missing", nil)
	assert.ErrorIs(t, err, embeddings.ErrNotRegistered)
}

func TestRegistry_CreatePropagatesConfigurationError(t *testing.T) {
	r := embeddings.NewRegistry()
	require.NoError(t, r.Register("x", mockFactory))

	_, err := r.Create("x", embeddings.Params{"dims": 3})
	assert.ErrorIs(t, err, embeddings.ErrConfiguration)
}

func TestRegistry_Names(t *testing.T) {
	r := embeddings.NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Register(name, mockFactory))
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.Names())
}

func TestRegistry_ConcurrentLookups(t *testing.T) {
	r := embeddings.NewRegistry()
	require.NoError(t, r.Register("x", mockFactory))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := r.Get("x")
			assert.True(t, ok)
		}()
	}
	wg.Wait()
}

func TestDefaultRegistry(t *testing.T) {
	name := "registry-test-provider"
	require.NoError(t, embeddings.Register(name, mockFactory))
	assert.ErrorIs(t, embeddings.Register(name, mockFactory), embeddings.ErrConfiguration)
	assert.Panics(t, func() { embeddings.MustRegister(name, mockFactory) })

	_, ok := embeddings.Get(name)
	assert.True(t, ok)
	assert.Contains(t, embeddings.Names(), name)
	assert.Same(t, embeddings.Default(), embeddings.Default())
}
