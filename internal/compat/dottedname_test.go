package compat

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalizeDottedNameSplitsWhitelistedBase(t *testing.T) {
	base, server, ok := CanonicalizeDottedName("github.search")
	assert.True(t, ok)
	assert.Equal(t, "search", base)
	assert.Equal(t, "github", server)
}

func TestCanonicalizeDottedNameRejectsNonWhitelistedBase(t *testing.T) {
	_, _, ok := CanonicalizeDottedName("github.unknown_base")
	assert.False(t, ok)
}

func TestCanonicalizeDottedNameRejectsUndotted(t *testing.T) {
	_, _, ok := CanonicalizeDottedName("search")
	assert.False(t, ok)
}

func TestApplyDottedNameCanonicalizationRespectsEnvFlag(t *testing.T) {
	os.Unsetenv(dottedNameEnv)
	args := map[string]any{}
	name := ApplyDottedNameCanonicalization("github.search", args)
	assert.Equal(t, "github.search", name)
	assert.Empty(t, args)

	os.Setenv(dottedNameEnv, "true")
	defer os.Unsetenv(dottedNameEnv)
	name = ApplyDottedNameCanonicalization("github.search", args)
	assert.Equal(t, "search", name)
	assert.Equal(t, "github", args["server"])
}
