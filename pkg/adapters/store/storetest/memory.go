package storetest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/custom-links/pkg/adapters/store/memory"
)

// NewMemory starts an embedded store that is closed when the test ends.
func NewMemory(tb testing.TB) *memory.Store {
	tb.Helper()
	s, err := memory.New()
	require.NoError(tb, err)
	tb.Cleanup(func() { _ = s.Close() })
	return s
}
