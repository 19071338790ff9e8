package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"model not found", fmt.Errorf("load: %w", ErrModelNotFound), KindNotFound},
		{"missing columns", &MissingColumnsError{Columns: []string{"bedrooms"}}, KindValidation},
		{"unknown category", &UnknownCategoryError{Field: "neighbourhood", Value: "Atlantis"}, KindValidation},
		{"invalid input", fmt.Errorf("path: %w", ErrInvalidInput), KindValidation},
		{"not fitted", ErrNotFitted, KindInternal},
		{"schema mismatch", ErrSchemaMismatch, KindInternal},
		{"plain error", errors.New("boom"), KindInternal},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestMissingColumnsError_ListsColumns(t *testing.T) {
	err := fmt.Errorf("serve: %w", &MissingColumnsError{Columns: []string{"bathrooms", "room_type"}})

	var mc *MissingColumnsError
	require.ErrorAs(t, err, &mc)
	assert.Equal(t, []string{"bathrooms", "room_type"}, mc.Columns)
	assert.ErrorIs(t, err, ErrMissingColumns)
	assert.Contains(t, err.Error(), "bathrooms, room_type")
}

func TestFeatureImportances_JSONKeepsOrder(t *testing.T) {
	fi := FeatureImportances{
		{Feature: "room_type", Importance: 0.5},
		{Feature: "accommodates", Importance: 0.3},
		{Feature: "bathrooms", Importance: 0.2},
	}

	raw, err := json.Marshal(fi)
	require.NoError(t, err)
	assert.Equal(t, `{"room_type":0.5,"accommodates":0.3,"bathrooms":0.2}`, string(raw))

	var back FeatureImportances
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, fi, back)
}
