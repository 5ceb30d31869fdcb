package reports

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Payload is a loosely typed form submitted by the mobile app. Values may be
// native JSON values, json.Number, raw tokens or strings. Extraction never
// fails; unusable values fall back to the default.
type Payload map[string]any

func (p Payload) value(key string) (any, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p[key]
	if !ok || v == nil {
		return nil, false
	}
	if raw, ok := v.(json.RawMessage); ok {
		var decoded any
		dec := json.NewDecoder(strings.NewReader(string(raw)))
		dec.UseNumber()
		if err := dec.Decode(&decoded); err != nil || decoded == nil {
			return nil, false
		}
		return decoded, true
	}
	return v, true
}

func parseBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

func parseDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, true
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(t), true
	case float32:
		return decimal.NewFromFloat32(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		return d, err == nil
	}
	return decimal.Zero, false
}

func Bool(p Payload, key string, def bool) bool {
	v, ok := p.value(key)
	if !ok {
		return def
	}
	if b, ok := parseBool(v); ok {
		return b
	}
	return def
}

func NullableBool(p Payload, key string) *bool {
	v, ok := p.value(key)
	if !ok {
		return nil
	}
	if b, ok := parseBool(v); ok {
		return &b
	}
	return nil
}

func Decimal(p Payload, key string, def decimal.Decimal) decimal.Decimal {
	v, ok := p.value(key)
	if !ok {
		return def
	}
	if d, ok := parseDecimal(v); ok {
		return d
	}
	return def
}

func NullableDecimal(p Payload, key string) *decimal.Decimal {
	v, ok := p.value(key)
	if !ok {
		return nil
	}
	if d, ok := parseDecimal(v); ok {
		return &d
	}
	return nil
}

func String(p Payload, key, def string) string {
	v, ok := p.value(key)
	if !ok {
		return def
	}
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return s
		}
		return def
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	}
	return def
}

// Int reads a whole number; fractional or garbage values yield nil.
func Int(p Payload, key string) *int {
	d := NullableDecimal(p, key)
	if d == nil || !d.Equal(d.Truncate(0)) {
		return nil
	}
	n := int(d.IntPart())
	return &n
}

// TriStateValue reads a yes/no/not-applicable answer. It also accepts the
// legacy 1/0 form. Anything unreadable is TriFalse.
func TriStateValue(p Payload, key string) TriState {
	v, ok := p.value(key)
	if !ok {
		return TriFalse
	}
	if b, ok := parseBool(v); ok {
		if b {
			return TriTrue
		}
		return TriFalse
	}
	switch t := v.(type) {
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1":
			return TriTrue
		case "n/a", "na", "not applicable":
			return TriNotApplicable
		}
	case json.Number, float64, int:
		// Older app builds sent the cartridge answer as 1/0.
		if d, ok := parseDecimal(t); ok && d.Equal(decimal.NewFromInt(1)) {
			return TriTrue
		}
	}
	return TriFalse
}
