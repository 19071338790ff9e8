package mapping

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricetier/internal/model"
)

func TestEncodeNeighbourhood(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"Bronx", 1},
		{"Queens", 2},
		{"Staten Island", 3},
		{"Brooklyn", 4},
		{"Manhattan", 5},
	}

	for _, tt := range tests {
		got, err := EncodeNeighbourhood(tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestEncodeRoomType(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"Shared room", 1},
		{"Private room", 2},
		{"Entire home/apt", 3},
		{"Hotel room", 4},
	}

	for _, tt := range tests {
		got, err := EncodeRoomType(tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestEncode_UnknownKeyFailsClosed(t *testing.T) {
	_, err := EncodeNeighbourhood("Atlantis")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrUnknownCategory))

	var uc *model.UnknownCategoryError
	require.ErrorAs(t, err, &uc)
	assert.Equal(t, ColNeighbourhood, uc.Field)
	assert.Equal(t, "Atlantis", uc.Value)

	// Matching is exact, not case-folded.
	_, err = EncodeRoomType("private room")
	assert.ErrorIs(t, err, model.ErrUnknownCategory)
}

func TestEncode_TotalOnKeySet(t *testing.T) {
	seen := map[int]bool{}
	for _, n := range Neighbourhoods() {
		code, err := EncodeNeighbourhood(n)
		require.NoError(t, err)
		assert.False(t, seen[code], "duplicate code %d", code)
		seen[code] = true
	}

	seen = map[int]bool{}
	for _, r := range RoomTypes() {
		code, err := EncodeRoomType(r)
		require.NoError(t, err)
		assert.False(t, seen[code], "duplicate code %d", code)
		seen[code] = true
	}
}

func TestDecodeCategory(t *testing.T) {
	for code, want := range []string{"budget", "low", "mid", "high"} {
		got, err := DecodeCategory(code)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := DecodeCategory(4)
	assert.ErrorIs(t, err, model.ErrUnknownCategory)
	_, err = DecodeCategory(-1)
	assert.ErrorIs(t, err, model.ErrUnknownCategory)
}

func TestVersion_Stable(t *testing.T) {
	assert.Equal(t, Version(), Version())
	assert.Len(t, Version(), 16)
}

func TestAccessorsReturnCopies(t *testing.T) {
	labels := CategoryLabels()
	labels[0] = "changed"
	got, _ := DecodeCategory(0)
	assert.Equal(t, "budget", got)
}
