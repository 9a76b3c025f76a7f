package name

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSide_String(t *testing.T) {
	assert.Equal(t, "first", SideFirst.String())
	assert.Equal(t, "last", SideLast.String())
	assert.Equal(t, "unknown", Side(42).String())
}

func TestSide_Opposite(t *testing.T) {
	assert.Equal(t, SideLast, SideFirst.Opposite())
	assert.Equal(t, SideFirst, SideLast.Opposite())
}

func TestSide_Field(t *testing.T) {
	assert.Equal(t, "first_names", SideFirst.Field())
	assert.Equal(t, "last_names", SideLast.Field())
}

func TestSide_JSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(SideFirst)
	require.NoError(t, err)
	assert.Equal(t, `"first"`, string(data))

	var s Side
	require.NoError(t, json.Unmarshal([]byte(`"last"`), &s))
	assert.Equal(t, SideLast, s)

	assert.Error(t, json.Unmarshal([]byte(`"middle"`), &s))
	assert.Error(t, json.Unmarshal([]byte(`7`), &s))
}

func TestEntry_Less(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Entry
		expected bool
	}{
		{"smaller id", Entry{ID: 1}, Entry{ID: 2}, true},
		{"larger id", Entry{ID: 3}, Entry{ID: 2}, false},
		{"equal id earlier seq", Entry{ID: 5, Seq: 0}, Entry{ID: 5, Seq: 1}, true},
		{"equal id later seq", Entry{ID: 5, Seq: 2}, Entry{ID: 5, Seq: 1}, false},
		{"identical", Entry{ID: 5, Seq: 1}, Entry{ID: 5, Seq: 1}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, test.a.Less(test.b))
		})
	}
}

func TestMatchedPair_FullName(t *testing.T) {
	pair := MatchedPair{First: "Adam", Last: "Smith", ID: 1234}
	assert.Equal(t, "Adam Smith", pair.FullName())
}

func TestUnpaired_JSON(t *testing.T) {
	data, err := json.Marshal(Unpaired{Name: "Bob", ID: 7, Side: SideFirst})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Bob","id":7,"side":"first"}`, string(data))
}
