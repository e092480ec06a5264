// Package decode maps raw upstream payloads (GTFS-Realtime protobuf,
// SIRI-VM JSON, GBFS JSON, weather JSON) to domain candidate records.
//
// Each decoder is a pure function from payload bytes to zero-or-more
// records. The decoders deliberately do NOT share a schema: each upstream
// has an incompatible shape and its own missing-field policy (weather
// hard-skips a record without an observation timestamp, GBFS status falls
// back to the feed-level timestamp), and those policies must stay visible
// at each decode site.
//
// Every nested field access on loose JSON goes through the obj helpers,
// which return (value, ok) pairs so missing, invalid, and fallback-applied
// remain distinguishable.
package decode

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/jamiefw/flux/internal/types"
)

// unmarshalObj decodes payload into a loose object, wrapping JSON failures
// with the given message as a decode error.
func unmarshalObj(payload []byte, failMsg string) (obj, error) {
	var root map[string]any
	if err := json.Unmarshal(payload, &root); err != nil {
		return nil, types.NewAppError(types.ErrCodeDecodeFailed, failMsg, err)
	}
	return obj(root), nil
}

// obj is a decoded loose-JSON object. All field access returns (value, ok);
// nothing here ever assumes presence.
type obj map[string]any

// asObj converts a decoded JSON value to an obj.
func asObj(v any) (obj, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return obj(m), true
}

// child returns the nested object at key.
func (o obj) child(key string) (obj, bool) {
	v, ok := o[key]
	if !ok {
		return nil, false
	}
	return asObj(v)
}

// list returns the array at key.
func (o obj) list(key string) ([]any, bool) {
	v, ok := o[key]
	if !ok {
		return nil, false
	}
	l, ok := v.([]any)
	return l, ok
}

// str returns the string at key. Non-string values are not coerced: an
// upstream type change should surface as a missing field, not a garbage
// value.
func (o obj) str(key string) (string, bool) {
	v, ok := o[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// f64 returns the number at key, coercing numeric strings. Some providers
// serialize coordinates as strings.
func (o obj) f64(key string) (float64, bool) {
	v, ok := o[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// integer returns the whole number at key. Fractional values are rejected
// rather than truncated.
func (o obj) integer(key string) (int, bool) {
	f, ok := o.f64(key)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

// boolish returns the boolean at key, accepting JSON booleans and the 0/1
// numerics some GBFS feeds still serve for the pre-2.3 encoding.
func (o obj) boolish(key string) (bool, bool) {
	v, ok := o[key]
	if !ok {
		return false, false
	}
	switch b := v.(type) {
	case bool:
		return b, true
	case float64:
		if b == 0 {
			return false, true
		}
		if b == 1 {
			return true, true
		}
		return false, false
	default:
		return false, false
	}
}

// epoch returns the value at key interpreted as epoch seconds, as a UTC
// instant. Zero and negative epochs are treated as absent.
func (o obj) epoch(key string) (time.Time, bool) {
	f, ok := o.f64(key)
	if !ok || f <= 0 {
		return time.Time{}, false
	}
	return time.Unix(int64(f), 0).UTC(), true
}

// Pointer helpers for assembling candidate records.

func strPtr(s string) *string        { return &s }
func f64Ptr(f float64) *float64      { return &f }
func intPtr(i int) *int              { return &i }
func boolPtr(b bool) *bool           { return &b }
func timePtr(t time.Time) *time.Time { return &t }
