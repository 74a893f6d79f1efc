package mono

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbeema/modloader/pkg/symbols"
)

type stubResolver struct {
	addrs map[string]uintptr
}

func (s stubResolver) Lookup(string) (symbols.Module, bool) { return 1, true }

func (s stubResolver) Resolve(_ symbols.Module, name string) (uintptr, error) {
	if a, ok := s.addrs[name]; ok {
		return a, nil
	}
	return 0, symbols.ErrNotFound
}

func allSymbols() map[string]uintptr {
	addrs := make(map[string]uintptr, len(Symbols))
	for i, name := range Symbols {
		addrs[name] = uintptr(0x7000 + i*0x10)
	}
	return addrs
}

func TestBindFailsWhenAnySymbolIsMissing(t *testing.T) {
	addrs := allSymbols()
	delete(addrs, "mono_runtime_invoke")
	delete(addrs, "mono_assembly_foreach")

	b, err := Bind(stubResolver{addrs}, 1)
	require.Error(t, err)
	assert.Nil(t, b)
	assert.True(t, errors.Is(err, symbols.ErrNotFound))
	assert.Contains(t, err.Error(), "2 of 11")
}

func TestBindResolvesEverySymbol(t *testing.T) {
	addrs := allSymbols()

	b, err := Bind(stubResolver{addrs}, 1)
	require.NoError(t, err)

	for _, name := range Symbols {
		assert.Equal(t, addrs[name], b.Addr(name), name)
	}
	assert.Zero(t, b.Addr("mono_jit_init"))
}

func TestSymbolsIncludesHookTarget(t *testing.T) {
	assert.Contains(t, Symbols, DomainGetSymbol)
	seen := make(map[string]bool)
	for _, s := range Symbols {
		assert.False(t, seen[s], "duplicate symbol %s", s)
		seen[s] = true
	}
}
