package stagedi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAxisRejectsDuplicateChoices(t *testing.T) {
	t.Parallel()
	_, err := NewAxis("env", "prod", "prod")
	require.Error(t, err)
}

func TestNewAxisRejectsEmptyChoices(t *testing.T) {
	t.Parallel()
	_, err := NewAxis("env")
	require.Error(t, err)
}

func TestTwoAxesWithSameNameAreDistinct(t *testing.T) {
	t.Parallel()
	a, err := NewAxis("env", "prod", "dev")
	require.NoError(t, err)
	b, err := NewAxis("env", "prod", "dev")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestBindingTagsMatchesRequiresEveryPoint(t *testing.T) {
	t.Parallel()
	env, err := NewAxis("env", "prod", "dev")
	require.NoError(t, err)
	region, err := NewAxis("region", "us", "eu")
	require.NoError(t, err)

	prodPoint, err := NewAxisPoint(env, "prod")
	require.NoError(t, err)
	usPoint, err := NewAxisPoint(region, "us")
	require.NoError(t, err)

	tags, err := NewBindingTags(prodPoint, usPoint)
	require.NoError(t, err)

	activationBoth, err := NewActivation(prodPoint, usPoint)
	require.NoError(t, err)
	assert.True(t, tags.Matches(activationBoth))

	euPoint, err := NewAxisPoint(region, "eu")
	require.NoError(t, err)
	activationMismatch, err := NewActivation(prodPoint, euPoint)
	require.NoError(t, err)
	assert.False(t, tags.Matches(activationMismatch))

	activationPartial, err := NewActivation(prodPoint)
	require.NoError(t, err)
	assert.False(t, tags.Matches(activationPartial), "activation silent on an axis the tags require is not a match")
}

func TestSpecificityCountsTaggedAxes(t *testing.T) {
	t.Parallel()
	env, err := NewAxis("env", "prod", "dev")
	require.NoError(t, err)
	prodPoint, err := NewAxisPoint(env, "prod")
	require.NoError(t, err)

	empty, err := NewBindingTags()
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Specificity())

	tagged, err := NewBindingTags(prodPoint)
	require.NoError(t, err)
	assert.Equal(t, 1, tagged.Specificity())
}

func TestNewAxisPointRejectsUnknownChoice(t *testing.T) {
	t.Parallel()
	env, err := NewAxis("env", "prod", "dev")
	require.NoError(t, err)
	_, err = NewAxisPoint(env, "staging")
	require.Error(t, err)
}
