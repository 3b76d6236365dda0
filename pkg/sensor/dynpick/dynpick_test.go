package dynpick

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/ftsense/pkg/sensor"
)

// scriptedTransport answers each write with the next scripted response.
type scriptedTransport struct {
	open      bool
	responses map[byte][]string
	pending   []byte
	written   []byte
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{open: true, responses: make(map[byte][]string)}
}

func (t *scriptedTransport) script(cmd byte, responses ...string) {
	t.responses[cmd] = append(t.responses[cmd], responses...)
}

func (t *scriptedTransport) Open() error  { t.open = true; return nil }
func (t *scriptedTransport) Close() error { t.open = false; return nil }
func (t *scriptedTransport) IsOpen() bool { return t.open }
func (t *scriptedTransport) Flush() error { t.pending = nil; return nil }

func (t *scriptedTransport) Write(b []byte) (int, error) {
	if !t.open {
		return 0, sensor.ErrNotOpen
	}
	t.written = append(t.written, b...)
	for _, c := range b {
		if rs := t.responses[c]; len(rs) > 0 {
			t.pending = append(t.pending, rs[0]...)
			t.responses[c] = rs[1:]
		}
	}
	return len(b), nil
}

func (t *scriptedTransport) Read(b []byte) (int, error) {
	if !t.open {
		return 0, sensor.ErrNotOpen
	}
	n := copy(b, t.pending)
	t.pending = t.pending[n:]
	return n, nil
}

func dataFrame(field string) string {
	return "\x01" + strings.Repeat(field, 6) + "\r\n"
}

const calibrationFrame = " 10.000, 20.000, 30.000, 40.000, 50.000, 60.000\r\n"

func TestConvertCmd(t *testing.T) {
	d := NewWithTransport(newScriptedTransport())
	require.Equal(t, []byte("R"), d.ConvertCmd(sensor.CmdRequestSendDataOnce))
	require.Equal(t, []byte("p"), d.ConvertCmd(sensor.CmdUser1))
	require.Nil(t, d.ConvertCmd(sensor.CmdUser2))
	require.Nil(t, d.ConvertCmd(sensor.CmdUser3))
}

func TestParseDataFrame(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		lsb   Lsb
		data  sensor.Data
		err   error
	}{
		{"ones", dataFrame("0001"), DefaultLsb(), sensor.Data{1, 1, 1, 1, 1, 1}, nil},
		{"scaled", dataFrame("0014"), Lsb{10, 10, 10, 10, 10, 10}, sensor.Data{2, 2, 2, 2, 2, 2}, nil},
		{"hex", "\x00" + "0000" + "000A" + "00ff" + "1000" + "FFFF" + "2000" + "\r\n", DefaultLsb(),
			sensor.Data{0, 10, 255, 4096, 65535, 8192}, nil},
		{"short", dataFrame("0001")[:26], DefaultLsb(), sensor.Data{}, sensor.ErrMalformedFrame},
		{"long", dataFrame("0001") + "x", DefaultLsb(), sensor.Data{}, sensor.ErrMalformedFrame},
		{"no newline", dataFrame("0001")[:26] + "\r", DefaultLsb(), sensor.Data{}, sensor.ErrMalformedFrame},
		{"bad digit", dataFrame("00G1"), DefaultLsb(), sensor.Data{}, sensor.ErrMalformedFrame},
		{"zero lsb", dataFrame("0001"), Lsb{1, 1, 0, 1, 1, 1}, sensor.Data{}, sensor.ErrInvalidLsb},
		{"nan lsb", dataFrame("0001"), Lsb{1, 1, 1, 1, 1, math.NaN()}, sensor.Data{}, sensor.ErrInvalidLsb},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			data, err := ParseDataFrame(sensor.NewFrame([]byte(test.frame)), test.lsb)
			if test.err != nil {
				require.True(t, errors.Is(err, test.err), "%v", err)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, test.data, data)
		})
	}
}

func TestParseCalibrationFrame(t *testing.T) {
	require.Len(t, calibrationFrame, CalibrationFrameLen)
	lsb, err := ParseCalibrationFrame(sensor.NewFrame([]byte(calibrationFrame)))
	require.NoError(t, err)
	require.Equal(t, Lsb{10, 20, 30, 40, 50, 60}, lsb)

	bad := []string{
		calibrationFrame[:48],
		" 10.000, 20.000, 30.000, 40.000, 50.000, 60.000\n\n",
		" 10.000, 20.000, 30.000, 40.000, 50.000; 60.000\r\n",
		" 10.000, 20.000, 30.000, 40.000,50.000,6,00.000\r\n",
		" 10.000, 20.000, 30.000, 40.000, 50.000, abcdef\r\n",
		" 10.000, 20.000, 30.000, 40.000, 50.000,  0.000\r\n",
	}
	for _, frame := range bad {
		_, err := ParseCalibrationFrame(sensor.NewFrame([]byte(frame)))
		require.True(t, errors.Is(err, sensor.ErrMalformedCalibration), "%q: %v", frame, err)
	}
}

func TestEncodeFrames(t *testing.T) {
	b := EncodeDataFrame(7, [6]uint16{1, 2, 0xABCD, 0, 0xFFFF, 20})
	require.Len(t, b, DataFrameLen)
	data, err := ParseDataFrame(sensor.NewFrame(b), DefaultLsb())
	require.NoError(t, err)
	require.Equal(t, sensor.Data{1, 2, 0xABCD, 0, 0xFFFF, 20}, data)

	b, err = EncodeCalibrationFrame(Lsb{10, 20, 30, 40, 50, 60})
	require.NoError(t, err)
	require.Equal(t, calibrationFrame, string(b))

	b, err = EncodeCalibrationFrame(Lsb{32.8, 32.8, 32.8, 1638.2, 1638.2, 16382})
	require.NoError(t, err)
	require.Len(t, b, CalibrationFrameLen)
	lsb, err := ParseCalibrationFrame(sensor.NewFrame(b))
	require.NoError(t, err)
	require.Equal(t, Lsb{32.8, 32.8, 32.8, 1638.2, 1638.2, 16382}, lsb)

	_, err = EncodeCalibrationFrame(Lsb{1e8, 1, 1, 1, 1, 1})
	require.Error(t, err)
}

func TestReadDataRoundTrip(t *testing.T) {
	tr := newScriptedTransport()
	tr.script('R', dataFrame("0001"))
	d := NewWithTransport(tr)
	data, err := d.ReadData()
	require.NoError(t, err)
	require.Equal(t, sensor.Data{1, 1, 1, 1, 1, 1}, data)
	require.Equal(t, "R", string(tr.written))
}

func TestInitCalibrates(t *testing.T) {
	tr := newScriptedTransport()
	tr.script('p', calibrationFrame)
	tr.script('R', dataFrame("0014"))
	d := NewWithTransport(tr)
	require.False(t, d.Calibrated())
	require.NoError(t, d.Init())
	require.True(t, d.Calibrated())
	require.Equal(t, Lsb{10, 20, 30, 40, 50, 60}, d.Lsb())

	data, err := d.ReadData()
	require.NoError(t, err)
	require.Equal(t, 2.0, data.Fx())
	require.Equal(t, 1.0, data.Fy())
	require.Equal(t, "pR", string(tr.written))
}

func TestInitRetriesCalibration(t *testing.T) {
	tr := newScriptedTransport()
	tr.script('p', "", "partial", calibrationFrame)
	d := NewWithTransport(tr)
	require.NoError(t, d.Init())
	require.Equal(t, "ppp", string(tr.written))
	require.Equal(t, Lsb{10, 20, 30, 40, 50, 60}, d.Lsb())
}

func TestInitCalibrationExhausted(t *testing.T) {
	tr := newScriptedTransport()
	d := NewWithTransport(tr)
	err := d.Init()
	require.True(t, errors.Is(err, sensor.ErrRetriesExhausted))
	require.Equal(t, strings.Repeat("p", CalibrationRetries+1), string(tr.written))
	require.False(t, d.Calibrated())
	require.Equal(t, DefaultLsb(), d.Lsb())
}

func TestInitMalformedCalibrationKeepsLsb(t *testing.T) {
	tr := newScriptedTransport()
	tr.script('p', " 10.000, 20.000, 30.000, 40.000, 50.000, abcdef\r\n")
	d := NewWithTransport(tr)
	require.NoError(t, d.SetLsb(Lsb{2, 2, 2, 2, 2, 2}))
	err := d.Init()
	require.True(t, errors.Is(err, sensor.ErrMalformedCalibration))
	require.Equal(t, Lsb{2, 2, 2, 2, 2, 2}, d.Lsb())
	require.False(t, d.Calibrated())
}

func TestInitNotOpen(t *testing.T) {
	tr := newScriptedTransport()
	tr.open = false
	d := NewWithTransport(tr)
	require.True(t, errors.Is(d.Init(), sensor.ErrNotOpen))
	require.Empty(t, tr.written)
}

func TestSetLsb(t *testing.T) {
	d := NewWithTransport(newScriptedTransport())
	err := d.SetLsb(Lsb{1, 0, 1, 1, 1, 1})
	require.True(t, errors.Is(err, sensor.ErrInvalidLsb))
	require.Equal(t, DefaultLsb(), d.Lsb())
	err = d.SetLsb(Lsb{1, 1, 1, math.Inf(1), 1, 1})
	require.True(t, errors.Is(err, sensor.ErrInvalidLsb))
}

func TestRegistered(t *testing.T) {
	require.Contains(t, sensor.Models(), ModelName)
	s, err := sensor.NewModel(ModelName, newScriptedTransport(), sensor.DefaultOptions())
	require.NoError(t, err)
	_, ok := s.(*DynPick)
	require.True(t, ok)
	c, ok := s.(sensor.Calibrator)
	require.True(t, ok)
	require.Equal(t, []float64{1, 1, 1, 1, 1, 1}, c.Coefficients())
}
