package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupLogger(t *testing.T) {
	t.Parallel()

	// an unrecognized env must still yield a usable logger
	for _, env := range []string{envLocal, envDev, envProd, "staging", ""} {
		require.NotNil(t, setupLogger(env), env)
	}
}
