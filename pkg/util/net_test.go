package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComposeLANURLExplicitHost(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:8000", ComposeLANURL("127.0.0.1:8000"))
	assert.Equal(t, "http://[::1]:8000", ComposeLANURL("[::1]:8000"))
}

func TestComposeLANURLMissingPort(t *testing.T) {
	assert.Equal(t, "http://localhost", ComposeLANURL("localhost"))
}

func TestComposeLANURLWildcardBind(t *testing.T) {
	// The concrete IP depends on the machine, but the URL must keep the port
	// and never advertise the wildcard when a LAN address exists.
	url := ComposeLANURL("0.0.0.0:8000")
	assert.True(t, strings.HasPrefix(url, "http://"))
	assert.True(t, strings.HasSuffix(url, ":8000"), url)

	if lanIPv4() != "" {
		assert.NotContains(t, url, "0.0.0.0")
	}
}
