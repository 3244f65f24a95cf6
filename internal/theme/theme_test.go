package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/focusproof/internal/model"
)

func TestStatusStyleColors(t *testing.T) {
	assert.Equal(t, ColorGreen, StatusStyle(model.StatusCompleted).GetForeground())
	assert.Equal(t, ColorRed, StatusStyle(model.StatusFailed).GetForeground())
	assert.Equal(t, ColorMagenta, StatusStyle(model.StatusVerifying).GetForeground())
	assert.Equal(t, ColorGray, StatusStyle(model.Status("BOGUS")).GetForeground())
}

func TestPointsStyleBySign(t *testing.T) {
	assert.Equal(t, ColorGreen, PointsStyle(10).GetForeground())
	assert.Equal(t, ColorRed, PointsStyle(-5).GetForeground())
	assert.Equal(t, ColorGray, PointsStyle(0).GetForeground())
}
