package schemadsl

import (
	"encoding/json"
	"time"
)

// JSON carries durations as milliseconds: ParseOptions.Timeout as an integer,
// ParseMetadata.ParseTime as a number with fractional milliseconds.

// MarshalJSON writes Timeout as integer milliseconds.
func (o ParseOptions) MarshalJSON() ([]byte, error) {
	type plain ParseOptions
	return json.Marshal(struct {
		plain
		Timeout int64 `json:"timeout"`
	}{plain(o), o.Timeout.Milliseconds()})
}

// UnmarshalJSON reads Timeout as milliseconds. A missing timeout leaves the
// field unchanged.
func (o *ParseOptions) UnmarshalJSON(data []byte) error {
	type plain ParseOptions
	wire := struct {
		*plain
		Timeout *float64 `json:"timeout"`
	}{plain: (*plain)(o)}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Timeout != nil {
		o.Timeout = millis(*wire.Timeout)
	}
	return nil
}

// MarshalJSON writes ParseTime as milliseconds.
func (m ParseMetadata) MarshalJSON() ([]byte, error) {
	type plain ParseMetadata
	return json.Marshal(struct {
		plain
		ParseTime float64 `json:"parseTime"`
	}{plain(m), float64(m.ParseTime) / float64(time.Millisecond)})
}

// UnmarshalJSON reads ParseTime as milliseconds.
func (m *ParseMetadata) UnmarshalJSON(data []byte) error {
	type plain ParseMetadata
	wire := struct {
		*plain
		ParseTime float64 `json:"parseTime"`
	}{plain: (*plain)(m)}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	m.ParseTime = millis(wire.ParseTime)
	return nil
}

func millis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}
