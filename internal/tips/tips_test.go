package tips_test

import (
	"testing"

	"github.com/Tahleel1611/Leaf-doc/internal/tips"
	"github.com/stretchr/testify/assert"
)

func TestExactMatch(t *testing.T) {
	tip := tips.Get("apple_scab")
	assert.Contains(t, tip, "fungicide")
}

func TestNormalizedMatch(t *testing.T) {
	assert.Equal(t, tips.Get("tomato_early_blight"), tips.Get("Tomato Early-Blight"))
}

func TestHealthyContainment(t *testing.T) {
	tip := tips.Get("cucumber_healthy")
	assert.Contains(t, tip, "healthy")
}

func TestSubstringFallback(t *testing.T) {
	// Label extends a known key.
	assert.Equal(t, tips.Get("grape_black_rot"), tips.Get("grape_black_rot_severe"))
}

func TestUnknownFallback(t *testing.T) {
	tip := tips.Get("martian_blight")
	assert.Contains(t, tip, "expert")
}

func TestNeverEmpty(t *testing.T) {
	for _, label := range []string{"", "???", "apple_scab", "x"} {
		assert.NotEmpty(t, tips.Get(label), "label %q", label)
	}
}
