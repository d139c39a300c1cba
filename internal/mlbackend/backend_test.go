package mlbackend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultAugmentation(t *testing.T) {
	t.Parallel()

	a := DefaultAugmentation()
	assert.Equal(t, []string{"crop", "rotation", "exposure", "flip"}, a.Names())
	assert.Equal(t, "crop,rotation,exposure,flip", a.String())
	assert.False(t, a.Blur)
	assert.False(t, a.Noise)
}

func TestAugmentationNamesEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Augmentation{}.Names())
	assert.Equal(t, "noise", Augmentation{Noise: true}.String())
}
