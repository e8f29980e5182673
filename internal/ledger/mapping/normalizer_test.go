package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/part-ledger/internal/ledger/domain"
)

var fullHeaders = []string{"Part Number", "Location", "Cabinet", "Qty", "Description"}

func fullMapping() domain.Mapping {
	return domain.Mapping{Part: 0, Location: 1, Location2: 2, Quantity: 3, Description: 4}
}

func TestCombineLocation(t *testing.T) {
	tests := []struct {
		primary, secondary, expected string
	}{
		{"Room 1", "Bay 2", "Room 1 / Bay 2"},
		{" Room 1 ", "", "Room 1"},
		{"", "Bay 2", "Bay 2"},
		{"  ", "\t", domain.UnspecifiedLocation},
		{"", "", domain.UnspecifiedLocation},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, CombineLocation(tt.primary, tt.secondary))
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		raw      string
		expected int
		ok       bool
	}{
		{"5", 5, true},
		{" 12 ", 12, true},
		{"1,250", 1250, true},
		{"2.9", 2, true},
		{"1e2", 100, true},
		{"0", 0, false},
		{"-3", 0, false},
		{"0.4", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"99999999999999", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			qty, ok := ParseQuantity(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, qty)
		})
	}
}

func TestNormalizeRow(t *testing.T) {
	tuple, ok := NormalizeRow([]string{" P-100 ", "Room 1", "Bay 2", "4", " Relay "}, fullMapping(), fullHeaders)
	require.True(t, ok)
	assert.Equal(t, domain.Tuple{PartNumber: "P-100", Location: "Room 1 / Bay 2", Quantity: 4, Description: "Relay"}, tuple)
}

func TestNormalizeRow_Defaults(t *testing.T) {
	m := domain.EmptyMapping()
	m.Part = 0
	m.Quantity = 1

	t.Run("blank quantity defaults to one", func(t *testing.T) {
		tuple, ok := NormalizeRow([]string{"P1", "  "}, m, nil)
		require.True(t, ok)
		assert.Equal(t, 1, tuple.Quantity)
		assert.Equal(t, domain.UnspecifiedLocation, tuple.Location)
		assert.Empty(t, tuple.Description)
	})

	t.Run("unmapped quantity defaults to one", func(t *testing.T) {
		tuple, ok := NormalizeRow([]string{"P1", "7"}, domain.Mapping{Part: 0, Location: -1, Location2: -1, Quantity: -1, Description: -1}, nil)
		require.True(t, ok)
		assert.Equal(t, 1, tuple.Quantity)
	})

	t.Run("short row reads missing cells as blank", func(t *testing.T) {
		tuple, ok := NormalizeRow([]string{"P1"}, fullMapping(), fullHeaders)
		require.True(t, ok)
		assert.Equal(t, 1, tuple.Quantity)
		assert.Equal(t, domain.UnspecifiedLocation, tuple.Location)
	})
}

func TestNormalizeRow_PartFallsBackToClassifier(t *testing.T) {
	headers := []string{"Qty", "Catalog"}
	m := domain.EmptyMapping()
	m.Quantity = 0

	tuple, ok := NormalizeRow([]string{"3", "CAT-9"}, m, headers)
	require.True(t, ok)
	assert.Equal(t, "CAT-9", tuple.PartNumber)
	assert.Equal(t, 3, tuple.Quantity)
}

func TestNormalizeRow_Rejections(t *testing.T) {
	tests := []struct {
		name string
		row  []string
	}{
		{"blank part number", []string{"   ", "A", "", "2", ""}},
		{"zero quantity", []string{"P1", "A", "", "0", ""}},
		{"negative quantity", []string{"P1", "A", "", "-3", ""}},
		{"unparseable quantity", []string{"P1", "A", "", "abc", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := NormalizeRow(tt.row, fullMapping(), fullHeaders)
			assert.False(t, ok)
		})
	}
}

func TestNormalizeRows_DropsRejectedRowsSilently(t *testing.T) {
	rows := [][]string{
		{"P1", "A", "", "2", "first"},
		{"P2", "A", "", "0", ""},
		{"", "A", "", "1", ""},
		{"P3", "B", "C", "abc", ""},
		{"P4", "B", "C", "1", ""},
	}

	tuples := NormalizeRows(rows, fullMapping(), fullHeaders)
	require.Len(t, tuples, 2)
	assert.Equal(t, "P1", tuples[0].PartNumber)
	assert.Equal(t, "P4", tuples[1].PartNumber)
	assert.Equal(t, "B / C", tuples[1].Location)
}

func TestMappingValidate(t *testing.T) {
	assert.NoError(t, fullMapping().Validate(5))
	assert.NoError(t, domain.EmptyMapping().Validate(0))

	bad := fullMapping()
	bad.Quantity = 5
	assert.ErrorIs(t, bad.Validate(5), domain.ErrInvalidMapping)

	bad = fullMapping()
	bad.Part = -2
	assert.ErrorIs(t, bad.Validate(5), domain.ErrInvalidMapping)
}
