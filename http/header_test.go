package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombineHeader(t *testing.T) {
	tests := []struct {
		name     string
		input    map[string]string
		expected Header
	}{
		{
			name:     "nil header",
			input:    nil,
			expected: Header{"user-agent": DefaultUserAgent()},
		},
		{
			name:  "keys are lower-cased",
			input: map[string]string{"X-Trace-ID": "abc", "Accept": "text/html"},
			expected: Header{
				"user-agent": DefaultUserAgent(),
				"x-trace-id": "abc",
				"accept":     "text/html",
			},
		},
		{
			name:     "caller user agent wins",
			input:    map[string]string{"User-Agent": "crawler/2.0"},
			expected: Header{"user-agent": "crawler/2.0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CombineHeader(tt.input))
		})
	}
}

func TestCombineHeader_Idempotent(t *testing.T) {
	input := map[string]string{"Cookie": "a=1;", "USER-AGENT": "bot"}

	once := CombineHeader(input)
	twice := CombineHeader(once)

	assert.Equal(t, once, twice)
	assert.Len(t, twice, 2)
	assert.Equal(t, "bot", twice.Get("User-Agent"))
	assert.Equal(t, "bot", input["USER-AGENT"], "input must not be modified")
	assert.Len(t, input, 2)
}

func TestCombineHeader_FollowsDefaultUserAgent(t *testing.T) {
	original := DefaultUserAgent()
	defer SetDefaultUserAgent(original)

	SetDefaultUserAgent("Mozilla/5.0 (spidex test)")

	assert.Equal(t, "Mozilla/5.0 (spidex test)", CombineHeader(nil).Get("user-agent"))
}

func TestHeader_Clone(t *testing.T) {
	h := Header{"accept": "*/*"}
	clone := h.Clone()
	clone["accept"] = "text/plain"

	assert.Equal(t, "*/*", h["accept"])
	assert.True(t, clone.Has("Accept"))
	assert.False(t, clone.Has("content-type"))
}
