package udf

import "github.com/go-optical/isokit/isoerr"

// Timestamp is the 12-byte ECMA-167 timestamp (1.7.3) used throughout the
// UDF descriptors.
type Timestamp struct {
	TZ           int16 // signed 12-bit offset from UTC, in minutes; -2047 means "not specified"
	TimeType     uint8 // 0 = UTC, 1 = local time, 2 = by agreement
	Year         uint16
	Month        uint8
	Day          uint8
	Hour         uint8
	Minute       uint8
	Second       uint8
	Centiseconds uint8
	HundredsOfMicroseconds uint8
	Microseconds           uint8
}

// Marshal encodes the timestamp into its 12-byte form.
func (t Timestamp) Marshal() [12]byte {
	var out [12]byte
	tmp := uint16(t.TZ) & 0x0FFF
	out[0] = byte(tmp)
	out[1] = byte((tmp>>8)&0x0F) | (t.TimeType << 4)
	out[2] = byte(t.Year)
	out[3] = byte(t.Year >> 8)
	out[4] = t.Month
	out[5] = t.Day
	out[6] = t.Hour
	out[7] = t.Minute
	out[8] = t.Second
	out[9] = t.Centiseconds
	out[10] = t.HundredsOfMicroseconds
	out[11] = t.Microseconds
	return out
}

// Unmarshal decodes a 12-byte timestamp, validating each field's range.
func (t *Timestamp) Unmarshal(data [12]byte) error {
	tzLow := uint16(data[0])
	typeAndHigh := data[1]
	raw := (uint16(typeAndHigh&0x0F) << 8) | tzLow
	t.TZ = signExtend12(raw)
	if t.TZ != -2047 && (t.TZ < -1440 || t.TZ > 1440) {
		return isoerr.Malformedf("udf.Timestamp.Unmarshal", -1, -1, "timezone offset %d out of range", t.TZ)
	}
	t.TimeType = typeAndHigh >> 4
	t.Year = uint16(data[2]) | uint16(data[3])<<8
	t.Month = data[4]
	t.Day = data[5]
	t.Hour = data[6]
	t.Minute = data[7]
	t.Second = data[8]
	t.Centiseconds = data[9]
	t.HundredsOfMicroseconds = data[10]
	t.Microseconds = data[11]
	if t.Year < 1 || t.Year > 9999 {
		return isoerr.Malformedf("udf.Timestamp.Unmarshal", -1, -1, "year %d out of range", t.Year)
	}
	if t.Month < 1 || t.Month > 12 {
		return isoerr.Malformedf("udf.Timestamp.Unmarshal", -1, -1, "month %d out of range", t.Month)
	}
	if t.Day < 1 || t.Day > 31 {
		return isoerr.Malformedf("udf.Timestamp.Unmarshal", -1, -1, "day %d out of range", t.Day)
	}
	return nil
}

func signExtend12(v uint16) int16 {
	if v&0x0800 != 0 {
		return int16(v) - 4096
	}
	return int16(v)
}
