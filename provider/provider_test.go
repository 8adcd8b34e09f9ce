package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coterie-ai/coterie/model"
)

func TestRegister_Validation(t *testing.T) {
	r := NewRegistry()

	err := r.Register(Config{Vendor: "mock"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider id is required")

	err = r.Register(Config{ID: "p1", Vendor: "sprocket"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider vendor: sprocket")

	require.NoError(t, r.Register(Config{ID: "p1", Vendor: "Mock", Model: "mock-1"}))
}

func TestResolve_BuildsOnceAndCaches(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Config{ID: "p1", Vendor: "mock", Model: "mock-1"}))

	first, err := r.Resolve("p1")
	require.NoError(t, err)
	second, err := r.Resolve("p1")
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = r.Resolve("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider not found: missing")
}

func TestRegister_InvalidatesCache(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Config{ID: "p1", Vendor: "mock", Model: "mock-1"}))
	first, err := r.Resolve("p1")
	require.NoError(t, err)

	require.NoError(t, r.Register(Config{ID: "p1", Vendor: "mock", Model: "mock-2"}))
	second, err := r.Resolve("p1")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, "mock-2", second.Info().Name)
}

func TestUnregister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Config{ID: "p1", Vendor: "mock", Model: "mock-1"}))
	_, err := r.Resolve("p1")
	require.NoError(t, err)

	r.Unregister("p1")
	_, err = r.Get("p1")
	assert.Error(t, err)
	_, err = r.Resolve("p1")
	assert.Error(t, err)
}

func TestList_Sorted(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Config{ID: "zulu", Vendor: "mock"}))
	require.NoError(t, r.Register(Config{ID: "alpha", Vendor: "mock"}))

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].ID)
	assert.Equal(t, "zulu", list[1].ID)
}

func TestRegisterFactory_Custom(t *testing.T) {
	r := NewRegistry()
	r.RegisterFactory("Custom", func(cfg Config) (model.Model, error) {
		return model.NewMockModel(cfg.Model), nil
	})
	require.NoError(t, r.Register(Config{ID: "p1", Vendor: "custom", Model: "m"}))
	m, err := r.Resolve("p1")
	require.NoError(t, err)
	assert.Equal(t, "mock", m.Info().Provider)
}
