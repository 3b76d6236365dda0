package sensor

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	Register("digits", func(t Transport) ForceSensor {
		return NewWithTransport(digitCodec{}, t)
	})
	require.Contains(t, Models(), "digits")

	opts := Options{ResponseDelay: time.Millisecond, MaxRetries: 3}
	s, err := NewModel("digits", &fakeTransport{}, opts)
	require.NoError(t, err)
	require.Equal(t, opts, s.(*Sensor).Options())

	_, err = NewModel("nonexist", &fakeTransport{}, opts)
	require.True(t, errors.Is(err, ErrUnknownModel))
}
