package reports

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, body string) Payload {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var p Payload
	require.NoError(t, dec.Decode(&p))
	return p
}

func TestBool(t *testing.T) {
	p := Payload{
		"native":   true,
		"upper":    "TRUE",
		"padded":   " false ",
		"raw":      json.RawMessage("true"),
		"garbage":  "yes",
		"number":   json.Number("1"),
		"explicit": nil,
	}
	tests := []struct {
		key  string
		def  bool
		want bool
	}{
		{key: "native", want: true},
		{key: "upper", want: true},
		{key: "padded", def: true, want: false},
		{key: "raw", want: true},
		{key: "garbage", def: true, want: true},
		{key: "number", want: false},
		{key: "explicit", def: true, want: true},
		{key: "missing", want: false},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.key, func(t *testing.T) {
			assert.Equal(t, tc.want, Bool(p, tc.key, tc.def))
		})
	}
	assert.True(t, Bool(nil, "anything", true))
}

func TestNullableBool(t *testing.T) {
	p := Payload{"yes": true, "no": "false", "junk": 3}
	require.NotNil(t, NullableBool(p, "yes"))
	assert.True(t, *NullableBool(p, "yes"))
	require.NotNil(t, NullableBool(p, "no"))
	assert.False(t, *NullableBool(p, "no"))
	assert.Nil(t, NullableBool(p, "junk"))
	assert.Nil(t, NullableBool(p, "missing"))
}

func TestDecimalExtraction(t *testing.T) {
	p := decode(t, `{"number": 12.5, "text": "7.4", "bad": "high", "nothing": null, "raw": 3}`)
	def := decimal.NewFromInt(-1)

	assert.True(t, decimal.RequireFromString("12.5").Equal(Decimal(p, "number", def)))
	assert.True(t, decimal.RequireFromString("7.4").Equal(Decimal(p, "text", def)))
	assert.True(t, def.Equal(Decimal(p, "bad", def)))
	assert.True(t, def.Equal(Decimal(p, "nothing", def)))
	assert.True(t, decimal.NewFromFloat(2.25).Equal(Decimal(Payload{"f": 2.25}, "f", def)))

	assert.Nil(t, NullableDecimal(p, "bad"))
	assert.Nil(t, NullableDecimal(p, "missing"))
	require.NotNil(t, NullableDecimal(p, "raw"))
	assert.Equal(t, "3", NullableDecimal(p, "raw").String())
}

func TestStringAndInt(t *testing.T) {
	p := Payload{"name": "  Spa ", "blank": "  ", "rating": json.Number("4"), "half": "2.5"}
	assert.Equal(t, "Spa", String(p, "name", "x"))
	assert.Equal(t, "x", String(p, "blank", "x"))
	require.NotNil(t, Int(p, "rating"))
	assert.Equal(t, 4, *Int(p, "rating"))
	assert.Nil(t, Int(p, "half"))
}

func TestTriStateValue(t *testing.T) {
	p := Payload{"t": true, "f": "false", "na": "N/A", "other": "maybe"}
	assert.Equal(t, TriTrue, TriStateValue(p, "t"))
	assert.Equal(t, TriFalse, TriStateValue(p, "f"))
	assert.Equal(t, TriNotApplicable, TriStateValue(p, "na"))
	assert.Equal(t, TriFalse, TriStateValue(p, "other"))
	assert.Equal(t, TriFalse, TriStateValue(p, "missing"))
}

func TestTriStateValueLegacyDigits(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want TriState
	}{
		{name: "string one", in: "1", want: TriTrue},
		{name: "string zero", in: "0", want: TriFalse},
		{name: "number one", in: json.Number("1"), want: TriTrue},
		{name: "number zero", in: json.Number("0"), want: TriFalse},
		{name: "float one", in: float64(1), want: TriTrue},
		{name: "raw one", in: json.RawMessage(`1`), want: TriTrue},
		{name: "other number", in: json.Number("2"), want: TriFalse},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TriStateValue(Payload{"cleanedCartridges": tc.in}, "cleanedCartridges"))
		})
	}

	assert.False(t, Bool(Payload{"poolVacuumed": "1"}, "poolVacuumed", false), "plain flags stay strict")
}

func TestReadingBodyOfWater(t *testing.T) {
	assert.Equal(t, "Spa", readingFromPayload(Payload{"bodyOfWater": "spa"}).BodyOfWater)
	assert.Equal(t, DefaultBodyOfWater, readingFromPayload(Payload{}).BodyOfWater)
	assert.Equal(t, "Lazy river", readingFromPayload(Payload{"bodyOfWater": "Lazy river"}).BodyOfWater)
}
