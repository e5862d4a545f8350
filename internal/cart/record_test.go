package cart

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	items := []Item{
		{ID: 25, Snapshot: pokemon(25, "50.5", 7), Quantity: 2},
		{ID: 1, Snapshot: pokemon(1, "10", 5), Quantity: 1},
	}
	items[1].Snapshot.Image = "https://img.example/1.gif"
	items[1].Snapshot.Height = 7

	data, err := Encode(items)
	require.NoError(t, err)

	got, skipped, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, got, 2)
	for i := range items {
		assert.Equal(t, items[i].ID, got[i].ID)
		assert.Equal(t, items[i].Quantity, got[i].Quantity)
		assert.True(t, items[i].UnitPrice().Equal(got[i].UnitPrice()))
		assert.Equal(t, items[i].Snapshot.Name, got[i].Snapshot.Name)
	}
	assert.Equal(t, "https://img.example/1.gif", got[1].Snapshot.Image)
}

func TestEncode_Format(t *testing.T) {
	data, err := Encode([]Item{{ID: 4, Snapshot: pokemon(4, "25", 3), Quantity: 2}})
	require.NoError(t, err)

	var rec struct {
		Version int                 `json:"version"`
		Entries [][]json.RawMessage `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, 1, rec.Version)
	require.Len(t, rec.Entries, 1)
	assert.JSONEq(t, `4`, string(rec.Entries[0][0]))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Entries[0][1], &body))
	assert.Equal(t, float64(4), body["id"])
	assert.Equal(t, float64(2), body["quantity"])
	assert.Equal(t, "25", body["unitPrice"])
	assert.Contains(t, body, "pokemon")
}

func TestEncode_Empty(t *testing.T) {
	data, err := Encode(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1,"entries":[]}`, string(data))

	got, skipped, err := Decode(data)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Empty(t, skipped)
}

func TestDecode_LegacyArray(t *testing.T) {
	legacy := `[[25,{"id":25,"pokemon":{"id":25,"name":"pikachu","types":["electric"],"price":55,"stock":9,"height":4,"weight":60,"image":"x.gif"},"quantity":3}],
	            [7,{"id":7,"pokemon":{"id":7,"name":"squirtle","types":["water"],"price":12}}]]`

	got, skipped, err := Decode([]byte(legacy))
	require.NoError(t, err)
	assert.Empty(t, skipped)
	require.Len(t, got, 2)

	assert.Equal(t, 25, got[0].ID)
	assert.Equal(t, 3, got[0].Quantity)
	assert.True(t, decimal.NewFromInt(55).Equal(got[0].UnitPrice()))
	assert.Equal(t, 1, got[1].Quantity, "missing quantity defaults to 1")
}

func TestDecode_Corrupt(t *testing.T) {
	tests := map[string]string{
		"garbage":         `not json`,
		"truncated":       `{"version":1,"entries":[[1,`,
		"empty":           ``,
		"unknown version": `{"version":2,"entries":[]}`,
		"scalar":          `42`,
		"entries object":  `{"version":1,"entries":{}}`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := Decode([]byte(data))
			assert.ErrorIs(t, err, ErrPersistenceCorrupt)
		})
	}
}

func TestDecode_SkipsInvalidEntries(t *testing.T) {
	data := `{"version":1,"entries":[
		[1,{"id":1,"pokemon":{"name":"bulbasaur","price":"10"},"quantity":2}],
		"not a pair",
		[0,{"pokemon":{"name":"zero"}}],
		[2,{"id":3,"pokemon":{"name":"mismatch"}}],
		[4,{"pokemon":{"name":"charmander"},"quantity":0}],
		[5,{"pokemon":{"name":"charmeleon"},"quantity":1.5}],
		[6,{"pokemon":{"name":""}}],
		[7,{"quantity":1}],
		[8,{"pokemon":{"name":"wartortle"},"unitPrice":"-1"}],
		[1,{"pokemon":{"name":"duplicate"},"quantity":9}],
		[9,{"pokemon":{"name":"blastoise","price":"5"},"unitPrice":"7.5"}]
	]}`

	got, skipped, err := Decode([]byte(data))
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ID)
	assert.Equal(t, 2, got[0].Quantity)
	assert.Equal(t, "bulbasaur", got[0].Snapshot.Name)
	assert.Equal(t, 9, got[1].ID)
	assert.True(t, decimal.RequireFromString("7.5").Equal(got[1].UnitPrice()), "unitPrice wins over snapshot price")

	assert.Len(t, skipped, 9)
	for _, s := range skipped {
		assert.ErrorIs(t, s, ErrEntrySkipped)
	}
	assert.Equal(t, "duplicate id", skipped[len(skipped)-1].Reason)
}
