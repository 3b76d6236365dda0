package serial

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStopBitsFromCode(t *testing.T) {
	testCases := []struct {
		code   int
		expect StopBits
	}{
		{0, OneStopBit},
		{1, OnePointFiveStopBits},
		{2, TwoStopBits},
		{3, OneStopBit},
	}
	for _, tc := range testCases {
		bits, err := StopBitsFromCode(tc.code)
		require.NoError(t, err)
		require.Equal(t, tc.expect, bits)
	}
	_, err := StopBitsFromCode(4)
	require.Error(t, err)
	_, err = StopBitsFromCode(-1)
	require.Error(t, err)
}

func TestParseParity(t *testing.T) {
	for in, expect := range map[string]Parity{
		"N": ParityNone,
		"n": ParityNone,
		"O": ParityOdd,
		"e": ParityEven,
	} {
		p, err := ParseParity(in)
		require.NoError(t, err, in)
		require.Equal(t, expect, p, in)
	}
	for _, in := range []string{"", "X", "NO", "M"} {
		_, err := ParseParity(in)
		require.Error(t, err, in)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig("/dev/ttyX")
	require.NoError(t, valid.Validate())
	require.Equal(t, "/dev/ttyX 921600 8N1", valid.String())

	testCases := []struct {
		name   string
		modify func(*Config)
	}{
		{"no port", func(c *Config) { c.PortName = "" }},
		{"zero baud", func(c *Config) { c.BaudRate = 0 }},
		{"data bits too small", func(c *Config) { c.DataBits = 4 }},
		{"data bits too large", func(c *Config) { c.DataBits = 9 }},
		{"stop bits", func(c *Config) { c.StopBits = StopBits(7) }},
		{"parity", func(c *Config) { c.Parity = Parity('X') }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.modify(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
