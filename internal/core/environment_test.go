package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEnvironment(t *testing.T) {
	assert.Equal(t, Production, ParseEnvironment(" Production "))
	assert.Equal(t, Staging, ParseEnvironment("staging"))
	assert.Equal(t, Development, ParseEnvironment(""))
	assert.Equal(t, Development, ParseEnvironment("prod"))
	assert.True(t, ParseEnvironment("production").IsProduction())
}
