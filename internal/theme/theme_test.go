package theme

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuotaStyle(t *testing.T) {
	assert.Equal(t, ColorRed, QuotaStyle(0, 25).GetForeground())
	assert.Equal(t, ColorRed, QuotaStyle(0, 0).GetForeground())
	assert.Equal(t, ColorYellow, QuotaStyle(5, 25).GetForeground())
	assert.Equal(t, ColorGreen, QuotaStyle(6, 25).GetForeground())
	assert.Equal(t, ColorGreen, QuotaStyle(1, 2).GetForeground())
}
