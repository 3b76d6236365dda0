package dynpick

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/robotalks/ftsense/pkg/sensor"
)

// Frame layout.
const (
	DataFrameLen        = 27
	CalibrationFrameLen = 49

	fieldOffset = 1
	fieldWidth  = 4
)

// Lsb are the calibration coefficients, raw counts per unit,
// ordered Fx, Fy, Fz, Tx, Ty, Tz.
type Lsb [sensor.DataCount]float64

// DefaultLsb returns the coefficients used before calibration.
func DefaultLsb() Lsb {
	return Lsb{1, 1, 1, 1, 1, 1}
}

// Validate checks every coefficient is usable as divisor.
func (l Lsb) Validate() error {
	for n, v := range l {
		if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: axis %d is %g", sensor.ErrInvalidLsb, n, v)
		}
	}
	return nil
}

// ParseDataFrame decodes a data frame with the coefficients.
func ParseDataFrame(f sensor.Frame, lsb Lsb) (data sensor.Data, err error) {
	b := f.Bytes()
	if len(b) != DataFrameLen {
		return data, frameError(sensor.ErrMalformedFrame, f, "length %d, want %d", len(b), DataFrameLen)
	}
	if b[DataFrameLen-1] != '\n' {
		return data, frameError(sensor.ErrMalformedFrame, f, "missing terminator")
	}
	if err = lsb.Validate(); err != nil {
		return data, err
	}
	for n := range data {
		start := fieldOffset + n*fieldWidth
		raw, ok := parseHex(b[start : start+fieldWidth])
		if !ok {
			return sensor.Data{}, frameError(sensor.ErrMalformedFrame, f, "field %d not hex", n)
		}
		data[n] = float64(raw) / lsb[n]
	}
	return data, nil
}

func parseHex(b []byte) (v uint32, ok bool) {
	for _, c := range b {
		var nibble byte
		switch {
		case c >= '0' && c <= '9':
			nibble = c - '0'
		case c >= 'A' && c <= 'F':
			nibble = c - 'A' + 10
		case c >= 'a' && c <= 'f':
			nibble = c - 'a' + 10
		default:
			return 0, false
		}
		v = v<<4 | uint32(nibble)
	}
	return v, true
}

func checkCalibrationFrame(f sensor.Frame) error {
	b := f.Bytes()
	if len(b) != CalibrationFrameLen {
		return frameError(sensor.ErrMalformedCalibration, f, "length %d, want %d", len(b), CalibrationFrameLen)
	}
	if b[CalibrationFrameLen-1] != '\n' || b[CalibrationFrameLen-2] != '\r' {
		return frameError(sensor.ErrMalformedCalibration, f, "missing terminator")
	}
	return nil
}

// ParseCalibrationFrame decodes a calibration frame.
func ParseCalibrationFrame(f sensor.Frame) (lsb Lsb, err error) {
	if err = checkCalibrationFrame(f); err != nil {
		return lsb, err
	}
	body := f.Bytes()[:CalibrationFrameLen-2]
	fields := bytes.Split(body, []byte{','})
	if len(fields) != len(lsb) {
		return lsb, frameError(sensor.ErrMalformedCalibration, f, "%d fields, want %d", len(fields), len(lsb))
	}
	for n, field := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(string(field)), 64)
		if err != nil {
			return Lsb{}, frameError(sensor.ErrMalformedCalibration, f, "field %d: %v", n, err)
		}
		if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return Lsb{}, frameError(sensor.ErrMalformedCalibration, f, "field %d is %g", n, v)
		}
		lsb[n] = v
	}
	return lsb, nil
}

// EncodeDataFrame builds a data frame from raw counts.
// Counts above 0xFFFF are truncated.
func EncodeDataFrame(tick byte, raw [sensor.DataCount]uint16) []byte {
	var sb strings.Builder
	sb.WriteByte(tick)
	for _, v := range raw {
		fmt.Fprintf(&sb, "%04X", v)
	}
	sb.WriteString("\r\n")
	return []byte(sb.String())
}

// EncodeCalibrationFrame builds a calibration frame. Each coefficient
// is right aligned in a field of 7 characters, with as many decimals
// as fit.
func EncodeCalibrationFrame(lsb Lsb) ([]byte, error) {
	const width = (CalibrationFrameLen - 2 - (sensor.DataCount - 1)) / sensor.DataCount
	items := make([]string, len(lsb))
	for n, v := range lsb {
		for prec := 3; prec >= 0; prec-- {
			if s := fmt.Sprintf("%*.*f", width, prec, v); len(s) == width {
				items[n] = s
				break
			}
		}
		if items[n] == "" {
			return nil, fmt.Errorf("coefficient %g out of range", v)
		}
	}
	return []byte(strings.Join(items, ",") + "\r\n"), nil
}

func frameError(kind error, f sensor.Frame, format string, args ...interface{}) error {
	return &sensor.FrameError{Kind: kind, Reason: fmt.Sprintf(format, args...), Frame: f}
}
