package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentalops/reservations-tracker/internal/common"
)

var testEntries = []Entry{
	{ID: 3, Name: "Casa Aroeira III", Aliases: []string{"Aroeira III", "Aroeira 3"}},
	{ID: 4, Name: "Casa Aroeira IV", Aliases: []string{"Aroeira IV"}},
	{ID: 7, Name: "Apartamento Sete Rios", Aliases: []string{"Sete Rios", "7 Rios"}},
	{ID: 9, Name: "Moradia São João", Aliases: nil},
}

func TestResolveExact(t *testing.T) {
	m, err := Resolve("casa aroeira iii", testEntries, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), m.PropertyID)
	assert.Equal(t, TierExact, m.Tier)
	assert.Equal(t, "Casa Aroeira III", m.Name)
}

func TestResolveAlias(t *testing.T) {
	m, err := Resolve("Aroeira III", testEntries, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), m.PropertyID)
	assert.Equal(t, TierAlias, m.Tier)
}

func TestResolveNormalized(t *testing.T) {
	// diacritics stripped and joiners collapsed
	m, err := Resolve("moradia sao-joao", testEntries, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(9), m.PropertyID)
	assert.Equal(t, TierNormalized, m.Tier)
}

func TestResolvePartial(t *testing.T) {
	m, err := Resolve("Sete Rios — Casa de Férias", testEntries, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), m.PropertyID)
	assert.Equal(t, TierPartial, m.Tier)
}

func TestResolveAmbiguousNeverGuesses(t *testing.T) {
	_, err := Resolve("Aroeira", testEntries, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrAmbiguousProperty)
}

func TestResolveUnknownProperty(t *testing.T) {
	_, err := Resolve("Aroeira V", testEntries, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnresolvedProperty)

	_, err = Resolve("   ", testEntries, nil)
	assert.ErrorIs(t, err, common.ErrUnresolvedProperty)
}

func TestResolveDeterministic(t *testing.T) {
	first, err := Resolve("Aroeira III", testEntries, nil)
	require.NoError(t, err)
	second, err := Resolve("Aroeira III", testEntries, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestTierConfidence(t *testing.T) {
	assert.Greater(t, TierExact.Confidence(), TierAlias.Confidence())
	assert.Greater(t, TierAlias.Confidence(), TierNormalized.Confidence())
	assert.Greater(t, TierNormalized.Confidence(), TierPartial.Confidence())
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "sao joao 2", NormalizeName("São João-2"))
	assert.Equal(t, "sete rios", NormalizeName("  Sete—Rios "))
	assert.Equal(t, NormalizeName("sao joao 2"), NormalizeName("São_João–2"))
}
