// Package reading provides the validated sensor reading type and the
// decoder that produces it from raw stream payloads.
package reading

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/grillworks/smokewatch/errors"
)

// Reading is one decoded sensor observation. The timestamp is carried
// through unmodified for reporting; it is never parsed or compared.
type Reading struct {
	Value     float64 `json:"temperature"`
	Timestamp string  `json:"timestamp"`
}

// Field names required in every payload
const (
	fieldTemperature = "temperature"
	fieldTimestamp   = "timestamp"
)

// Decode parses a raw payload into a Reading.
//
// The payload must be a JSON object with a "temperature" field (a number,
// or a string optionally carrying a trailing unit suffix such as "225.5 F")
// and a "timestamp" string. Failures map onto the per-message taxonomy:
// errors.ErrMalformedPayload, errors.ErrMissingField, or
// errors.ErrInvalidNumericValue. Decode has no side effects.
func Decode(payload []byte) (Reading, error) {
	var fields map[string]any
	if err := json.Unmarshal(payload, &fields); err != nil {
		return Reading{}, fmt.Errorf("%w: %v", errors.ErrMalformedPayload, err)
	}
	if fields == nil {
		return Reading{}, fmt.Errorf("%w: payload is not an object", errors.ErrMalformedPayload)
	}

	rawTemp, ok := fields[fieldTemperature]
	if !ok {
		return Reading{}, fmt.Errorf("%w: %s", errors.ErrMissingField, fieldTemperature)
	}

	rawTS, ok := fields[fieldTimestamp]
	if !ok {
		return Reading{}, fmt.Errorf("%w: %s", errors.ErrMissingField, fieldTimestamp)
	}

	timestamp, ok := rawTS.(string)
	if !ok {
		return Reading{}, fmt.Errorf("%w: %s must be a string", errors.ErrMalformedPayload, fieldTimestamp)
	}

	value, err := parseTemperature(rawTemp)
	if err != nil {
		return Reading{}, err
	}

	return Reading{Value: value, Timestamp: timestamp}, nil
}

// parseTemperature accepts a JSON number or a string with an optional
// trailing unit suffix.
func parseTemperature(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case string:
		numeric := stripUnitSuffix(v)
		if numeric == "" {
			return 0, fmt.Errorf("%w: %q", errors.ErrInvalidNumericValue, v)
		}
		value, err := strconv.ParseFloat(numeric, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", errors.ErrInvalidNumericValue, v)
		}
		return value, nil
	default:
		return 0, fmt.Errorf("%w: temperature has type %T", errors.ErrInvalidNumericValue, raw)
	}
}

// stripUnitSuffix removes a trailing run of non-numeric characters
// (e.g. " F", "°C") so "225.5 F" parses as 225.5. Leading/trailing
// whitespace is ignored.
func stripUnitSuffix(s string) string {
	s = strings.TrimSpace(s)
	end := len(s)
	for end > 0 && !isNumericChar(s[end-1]) {
		end--
	}
	return strings.TrimSpace(s[:end])
}

func isNumericChar(c byte) bool {
	return (c >= '0' && c <= '9') || c == '.'
}
