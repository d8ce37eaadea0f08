package lookup

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/qualifyodds/internal/models"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Smith, John Quincy", "SMITH,JOHN"},
		{"  smith ,  john  ", "SMITH,JOHN"},
		{"O'Brien, Mary-Kate A.", "O'BRIEN,MARY-KATE"},
		{"Cher", "CHER,"},
		{"Smith,", "SMITH,"},
		{"", ""},
		{" , ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.raw), "raw=%q", tt.raw)
	}

	key, ok := Key("Smith, John Q", 12)
	assert.True(t, ok)
	assert.Equal(t, "SMITH,JOHN,D12", key)
	_, ok = Key("   ", 12)
	assert.False(t, ok)
}

func TestPositionsMatchPublishedLayout(t *testing.T) {
	f, err := New(65536, 7)
	require.NoError(t, err)
	assert.Equal(t, []uint64{48943, 47994, 47045, 46096, 45147, 44198, 43249}, f.Positions("SMITH,JOHN,D1"))

	// non power-of-two sizes reduce exactly as arbitrary-precision arithmetic would
	f, err = New(1000, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint64{471, 362, 253}, f.Positions("SMITH,JOHN,D1"))
}

func TestNewRejectsBadSizing(t *testing.T) {
	_, err := New(0, 7)
	assert.Error(t, err)
	_, err = New(100, 7)
	assert.Error(t, err)
	_, err = New(64, 0)
	assert.Error(t, err)
}

func TestFilterFalsePositiveRate(t *testing.T) {
	const (
		m      = 65536
		k      = 7
		n      = 5000
		trials = 20000
	)
	f, err := New(m, k)
	require.NoError(t, err)

	for i := 0; i < n; i++ {
		f.Add(fmt.Sprintf("VOTER%d,PERSON%d,D1", i, i))
	}
	for i := 0; i < n; i++ {
		require.True(t, f.Test(fmt.Sprintf("VOTER%d,PERSON%d,D1", i, i)), "inserted key %d must be found", i)
	}

	hits := 0
	for i := 0; i < trials; i++ {
		if f.Test(fmt.Sprintf("ABSENT%d,NOBODY%d,D1", i, i)) {
			hits++
		}
	}
	observed := float64(hits) / trials
	expected := math.Pow(1-math.Exp(-float64(k*n)/m), k)
	assert.InDelta(t, expected, observed, 0.002)
}

func TestBuildAndDecode(t *testing.T) {
	names := map[int][]string{
		1: {"Smith, John Quincy", "Doe, Jane", "", " , "},
		2: {"Smith, John"},
	}

	index, err := Build(names, 4096, 5)
	require.NoError(t, err)
	assert.Equal(t, models.LookupIndexVersion, index.Version)
	assert.Equal(t, 3, index.Count, "empty names are not indexed")
	require.Len(t, index.Districts, 2)
	assert.Equal(t, 4096, index.Districts["1"].M)

	idx, err := Decode(index)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Count())

	assert.True(t, idx.Contains("SMITH, JOHN", 1))
	assert.True(t, idx.Contains("smith, john adams", 2), "middle names are ignored")
	assert.True(t, idx.Contains("Doe, Jane", 1))
	assert.False(t, idx.Contains("Smith, John", 3), "unknown district")
	assert.False(t, idx.Contains("", 1))
}

func TestBuildIsDeterministic(t *testing.T) {
	names := map[int][]string{1: {"A, B"}, 2: {"C, D"}, 3: {"E, F"}}
	a, err := Build(names, 1024, 3)
	require.NoError(t, err)
	b, err := Build(names, 1024, 3)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(nil)
	assert.Error(t, err)

	_, err = Decode(&models.LookupIndex{Version: 1})
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = Decode(&models.LookupIndex{Version: 2, Districts: map[string]models.FilterDoc{
		"x": {M: 8, K: 1, Bits: "AA=="},
	}})
	assert.Error(t, err)

	_, err = Decode(&models.LookupIndex{Version: 2, Districts: map[string]models.FilterDoc{
		"1": {M: 16, K: 1, Bits: "AA=="},
	}})
	assert.Error(t, err, "bit array length must match m")

	_, err = Decode(&models.LookupIndex{Version: 2, Districts: map[string]models.FilterDoc{
		"1": {M: 8, K: 1, Bits: "not base64!"},
	}})
	assert.Error(t, err)
}
