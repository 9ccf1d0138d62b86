package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type selfValidating struct{}

func (selfValidating) Execute(context.Context, any) (any, error) { return "ok", nil }
func (selfValidating) Validate(out any) bool                    { return out == "ok" }

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterFunc("a", func(context.Context, any) (any, error) { return 1, nil })

	entry, ok := reg.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "a", entry.Name)
	assert.Nil(t, entry.Validator)
	assert.False(t, entry.Retryable)

	_, ok = reg.Lookup("missing")
	assert.False(t, ok)
	assert.False(t, reg.Has("missing"))
}

func TestRegistry_LastRegistrationWins(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterFunc("a", func(context.Context, any) (any, error) { return 1, nil }, Retryable())
	reg.RegisterFunc("a", func(context.Context, any) (any, error) { return 2, nil })

	entry, ok := reg.Lookup("a")
	require.True(t, ok)
	out, err := entry.Action.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, out)
	assert.False(t, reg.IsRetryable("a"))
}

func TestRegistry_Options(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterFunc("gen", func(context.Context, any) (any, error) { return nil, nil },
		Retryable(),
		WithValidator(func(out any) bool { return out != nil }))

	entry, _ := reg.Lookup("gen")
	assert.True(t, entry.Retryable)
	require.NotNil(t, entry.Validator)
	assert.False(t, entry.Validator(nil))
	assert.True(t, reg.IsRetryable("gen"))
}

func TestRegistry_ActionProvidesValidator(t *testing.T) {
	reg := NewRegistry()
	reg.Register("self", selfValidating{})

	entry, _ := reg.Lookup("self")
	require.NotNil(t, entry.Validator)
	assert.True(t, entry.Validator("ok"))
	assert.False(t, entry.Validator("nope"))
}

func TestRegistry_NamesSorted(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"c", "a", "b"} {
		reg.RegisterFunc(name, func(context.Context, any) (any, error) { return nil, nil })
	}
	assert.Equal(t, []string{"a", "b", "c"}, reg.Names())
}
