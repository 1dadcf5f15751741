package stylometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildProfile_RanksByFrequency(t *testing.T) {
	tags := &TagResult{
		Verbs:      []string{"send", "review", "send", "attach", "send", "review"},
		Adverbs:    []string{"quickly", "kindly", "kindly"},
		Adjectives: []string{"final"},
	}

	profile := BuildProfile(tags, 2)

	assert.Equal(t, []string{"send", "review"}, profile.Verbs)
	assert.Equal(t, []string{"kindly", "quickly"}, profile.Adverbs)
	assert.Equal(t, []string{"final"}, profile.Adjectives)
}

func TestBuildProfile_CaseFoldsBeforeCounting(t *testing.T) {
	tags := &TagResult{
		Verbs: []string{"Send", "send", "SEND", "review"},
	}

	profile := BuildProfile(tags, 1)

	assert.Equal(t, []string{"send"}, profile.Verbs)
}

func TestBuildProfile_TiesBreakAlphabetically(t *testing.T) {
	tags := &TagResult{
		Adjectives: []string{"urgent", "brief", "clear"},
	}

	profile := BuildProfile(tags, 3)

	assert.Equal(t, []string{"brief", "clear", "urgent"}, profile.Adjectives)
}

func TestBuildProfile_EmptyInput(t *testing.T) {
	profile := BuildProfile(&TagResult{}, 5)

	assert.Empty(t, profile.Verbs)
	assert.Empty(t, profile.Adverbs)
	assert.Empty(t, profile.Adjectives)
	assert.True(t, profile.Empty())
}
