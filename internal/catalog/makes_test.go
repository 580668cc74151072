package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakes_LoadsPartitionTable(t *testing.T) {
	all, err := Makes()
	require.NoError(t, err)
	require.NotEmpty(t, all)

	assert.Equal(t, "Chevrolet", all[0].Name)
	assert.Positive(t, all[0].Expected)
	for _, m := range all {
		assert.NotEmpty(t, m.Name)
	}
}

func TestSelectMakes_All(t *testing.T) {
	all, err := Makes()
	require.NoError(t, err)

	selected, unmatched, err := SelectMakes(nil, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, unmatched)
	assert.Len(t, selected, len(all))
}

func TestSelectMakes_ByName(t *testing.T) {
	selected, unmatched, err := SelectMakes([]string{"toyota", "HONDA"}, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, unmatched)
	require.Len(t, selected, 2)
	assert.Equal(t, "Toyota", selected[0].Name)
	assert.Equal(t, "Honda", selected[1].Name)
}

func TestSelectMakes_UnknownName(t *testing.T) {
	selected, unmatched, err := SelectMakes([]string{"Toyota", "Zaporozhets"}, 0, 0)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, []string{"Zaporozhets"}, unmatched)
}

func TestSelectMakes_NamesIgnoreWindow(t *testing.T) {
	// Explicit names win over skip/limit.
	selected, _, err := SelectMakes([]string{"Toyota"}, 5, 1)
	require.NoError(t, err)
	require.Len(t, selected, 1)
	assert.Equal(t, "Toyota", selected[0].Name)
}

func TestSelectMakes_SkipLimit(t *testing.T) {
	all, err := Makes()
	require.NoError(t, err)

	selected, _, err := SelectMakes(nil, 2, 3)
	require.NoError(t, err)
	require.Len(t, selected, 3)
	assert.Equal(t, all[2].Name, selected[0].Name)

	selected, _, err = SelectMakes(nil, len(all)+10, 0)
	require.NoError(t, err)
	assert.Empty(t, selected)

	selected, _, err = SelectMakes(nil, len(all)-1, 100)
	require.NoError(t, err)
	assert.Len(t, selected, 1)
}
