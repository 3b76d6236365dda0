package env

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIDStable(t *testing.T) {
	id := DefaultID()
	require.NotEmpty(t, id)
	require.Equal(t, id, DefaultID())
}
