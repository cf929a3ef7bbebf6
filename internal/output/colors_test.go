package output

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColorSchemes(t *testing.T) {
	for name, scheme := range map[string]*ColorScheme{
		"default":  DefaultColorScheme(),
		"no color": NoColorScheme(),
	} {
		t.Run(name, func(t *testing.T) {
			assert.NotNil(t, scheme.Method)
			assert.NotNil(t, scheme.URL)
			assert.NotNil(t, scheme.StatusOK)
			assert.NotNil(t, scheme.StatusWarn)
			assert.NotNil(t, scheme.StatusError)
			assert.NotNil(t, scheme.HeaderKey)
			assert.NotNil(t, scheme.HeaderValue)
			assert.NotNil(t, scheme.Timing)
			assert.NotNil(t, scheme.Success)
			assert.NotNil(t, scheme.Error)
			assert.NotNil(t, scheme.Highlight)
		})
	}

	assert.Equal(t, "GET", NoColorScheme().Method.Sprint("GET"))
}

func TestColorScheme_StatusColor(t *testing.T) {
	scheme := DefaultColorScheme()

	assert.Same(t, scheme.StatusOK, scheme.StatusColor(http.StatusOK))
	assert.Same(t, scheme.StatusWarn, scheme.StatusColor(http.StatusFound))
	assert.Same(t, scheme.StatusError, scheme.StatusColor(http.StatusNotFound))
	assert.Same(t, scheme.StatusError, scheme.StatusColor(http.StatusBadGateway))
}

func TestShouldDisableColor(t *testing.T) {
	assert.True(t, ShouldDisableColor(&bytes.Buffer{}, false), "non-file writers are never terminals")
	assert.True(t, ShouldDisableColor(nil, true))

	t.Setenv("NO_COLOR", "1")
	assert.True(t, ShouldDisableColor(&bytes.Buffer{}, false))
}

func TestIcons(t *testing.T) {
	assert.Equal(t, "✓", SuccessIcon(true))
	assert.Equal(t, "✗", ErrorIcon(true))
	assert.Equal(t, "⚠", WarningIcon(true))

	assert.Contains(t, SuccessIcon(false), "✓")
	assert.Contains(t, ErrorIcon(false), "✗")
	assert.Contains(t, WarningIcon(false), "⚠")
}
