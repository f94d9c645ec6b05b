package logrecord

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Kinds(t *testing.T) {
	v, err := Parse([]byte(`{"a":1.5,"b":"x","c":true,"d":null,"e":[1,"two",false],"f":{"g":{}}}`), DefaultLimits)
	require.NoError(t, err)
	require.Equal(t, KindObject, v.Kind())

	a, ok := v.Get("a")
	require.True(t, ok)
	assert.Equal(t, KindNumber, a.Kind())
	assert.Equal(t, 1.5, a.AsNumber())

	b, _ := v.Get("b")
	assert.Equal(t, "x", b.AsString())

	c, _ := v.Get("c")
	assert.True(t, c.AsBool())

	d, _ := v.Get("d")
	assert.True(t, d.IsNull())

	e, _ := v.Get("e")
	require.Len(t, e.Items(), 3)
	assert.Equal(t, KindString, e.Items()[1].Kind())

	f, _ := v.Get("f")
	g, ok := f.Get("g")
	require.True(t, ok)
	assert.Equal(t, KindObject, g.Kind())
	assert.Empty(t, g.Fields())
}

func TestParse_Limits(t *testing.T) {
	tests := []struct {
		name  string
		input string
		lim   Limits
		limit string
	}{
		{
			name:  "too deep",
			input: `[[[[1]]]]`,
			lim:   Limits{MaxDepth: 3},
			limit: "depth",
		},
		{
			name:  "too many nodes",
			input: `[1,2,3,4,5]`,
			lim:   Limits{MaxNodes: 4},
			limit: "node count",
		},
		{
			name:  "string too long",
			input: `{"k":"abcdef"}`,
			lim:   Limits{MaxStringLen: 5},
			limit: "string length",
		},
		{
			name:  "key too long",
			input: `{"abcdef":1}`,
			lim:   Limits{MaxStringLen: 5},
			limit: "string length",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input), tt.lim)
			var limErr *LimitError
			require.True(t, errors.As(err, &limErr), "expected LimitError, got %v", err)
			assert.Equal(t, tt.limit, limErr.Limit)
		})
	}
}

func TestParse_WithinLimits(t *testing.T) {
	_, err := Parse([]byte(`[[[1]]]`), Limits{MaxDepth: 4, MaxNodes: 4})
	assert.NoError(t, err)
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := Parse([]byte(`{"a":`), DefaultLimits)
	assert.Error(t, err)
}

func TestValue_MarshalSortsKeys(t *testing.T) {
	v := Object(map[string]Value{
		"zeta":  Number(1),
		"alpha": String("a\"b"),
		"mid":   Array(Bool(false), Null()),
	})

	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":"a\"b","mid":[false,null],"zeta":1}`, string(b))
}

func TestValue_RoundTripPreservesEquality(t *testing.T) {
	src := `{"steps":[{"tool":"search","hits":3},{"tool":"reply","ok":true}],"score":0.25}`
	var v Value
	require.NoError(t, json.Unmarshal([]byte(src), &v))

	b, err := json.Marshal(v)
	require.NoError(t, err)

	var back Value
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, v.Equal(back))
}

func TestFromAny(t *testing.T) {
	v := FromAny(map[string]any{
		"n":     3,
		"s":     "x",
		"list":  []any{1.5, "y", nil},
		"tags":  []string{"a", "b"},
		"inner": map[string]any{"deep": map[string]any{"deeper": 1}},
	}, 3)

	n, _ := v.Get("n")
	assert.Equal(t, float64(3), n.AsNumber())

	tags, _ := v.Get("tags")
	assert.Len(t, tags.Items(), 2)

	inner, _ := v.Get("inner")
	deep, _ := inner.Get("deep")
	assert.Equal(t, KindString, deep.Kind())
	assert.Equal(t, Truncated, deep.AsString())
}

func TestFromAny_UnknownTypeFormatted(t *testing.T) {
	type point struct{ X, Y int }
	v := FromAny(point{1, 2}, 0)
	assert.Equal(t, KindString, v.Kind())
	assert.True(t, strings.Contains(v.AsString(), "1"))
}

func TestParseStatus(t *testing.T) {
	st, ok := ParseStatus(" success ")
	assert.True(t, ok)
	assert.Equal(t, StatusSuccess, st)

	st, ok = ParseStatus("failed")
	assert.True(t, ok)
	assert.Equal(t, StatusFailed, st)

	st, ok = ParseStatus("partial")
	assert.True(t, ok)
	assert.Equal(t, StatusPartial, st)

	_, ok = ParseStatus("done")
	assert.False(t, ok)
}

func TestClamp(t *testing.T) {
	v := Object(map[string]Value{
		"a":   String("héllo"),
		"b":   Array(Number(1), Number(2), Number(3)),
		"c":   Object(map[string]Value{"d": Object(map[string]Value{"e": Bool(true)})}),
		"zzz": Null(),
	})

	t.Run("strings cut on rune boundary", func(t *testing.T) {
		got := Clamp(v, Limits{MaxStringLen: 2})
		a, _ := got.Get("a")
		assert.Equal(t, "h", a.AsString())
		_, ok := got.Get("zzz")
		assert.False(t, ok, "oversized keys are dropped")
	})

	t.Run("depth", func(t *testing.T) {
		got := Clamp(v, Limits{MaxDepth: 2})
		c, _ := got.Get("c")
		d, _ := c.Get("d")
		assert.Equal(t, String(Truncated), d)
	})

	t.Run("node count keeps sorted prefix", func(t *testing.T) {
		got := Clamp(v, Limits{MaxNodes: 4})
		assert.Len(t, got.Fields(), 2)
		b, ok := got.Get("b")
		require.True(t, ok)
		assert.Len(t, b.Items(), 1)
	})

	t.Run("within limits unchanged", func(t *testing.T) {
		assert.True(t, v.Equal(Clamp(v, DefaultLimits)))
	})
}
