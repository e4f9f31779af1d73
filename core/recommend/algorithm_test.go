package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine(t *testing.T) {
	a := map[string]float64{"x": 1, "y": 2}
	assert.InDelta(t, 1, cosine(a, map[string]float64{"x": 2, "y": 4}), 1e-9)
	assert.Equal(t, 0.0, cosine(a, map[string]float64{"z": 3}))
	assert.Equal(t, 0.0, cosine(a, nil))
}

func TestQuantities_mostSimilar(t *testing.T) {
	q := Quantities{
		"ann":  {"ugali": 2, "sukuma": 1},
		"bob":  {"ugali": 4, "sukuma": 2, "nyama": 3},
		"carl": {"chapati": 5},
	}
	other, ok := q.mostSimilar("ann")
	require.True(t, ok)
	assert.Equal(t, "bob", other)

	other, ok = q.mostSimilar("carl")
	require.True(t, ok)
	assert.Equal(t, "ann", other, "ties go to the smallest id")

	_, ok = Quantities{"ann": {"ugali": 1}}.mostSimilar("ann")
	assert.False(t, ok)
}

func TestQuantities_collaborative(t *testing.T) {
	q := Quantities{
		"ann": {"ugali": 2, "sukuma": 3},
		"bob": {"ugali": 5, "sukuma": 1, "nyama": 2},
	}
	assert.Equal(t, map[string]float64{"ugali": 3, "nyama": 2}, q.collaborative("ann"))
}

func TestQuantities_popularity(t *testing.T) {
	q := Quantities{
		"ann": {"ugali": 2},
		"bob": {"ugali": 1, "nyama": 4},
	}
	assert.Equal(t, map[string]float64{"ugali": 3, "nyama": 4}, q.popularity())
}

func TestJaccard(t *testing.T) {
	a := features([]string{"Spicy", "beef"}, []string{"onion"})
	b := features([]string{"spicy "}, []string{"onion", "garlic"})
	assert.InDelta(t, 0.5, jaccard(a, b), 1e-9)
	assert.Equal(t, 0.0, jaccard(features(), features()))

	assert.InDelta(t, 0.25, contentScore(a, []featureSet{b, features([]string{"fish"})}), 1e-9)
	assert.Equal(t, 0.0, contentScore(a, nil))
}

func TestFeedbackBoost(t *testing.T) {
	assert.Equal(t, 1.0, feedbackBoost(0, false))
	assert.Equal(t, 0.8, feedbackBoost(4, true))
}

func TestRank(t *testing.T) {
	items := []scored{
		{id: "3", name: "pilau", score: 1},
		{id: "1", name: "ugali", score: 2},
		{id: "2", name: "chapati", score: 1},
		{id: "4", name: "chapati", score: 1},
	}
	got := rank(items, 3)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"1", "2", "4"}, []string{got[0].id, got[1].id, got[2].id})
}
