//go:build !windows

package cmd

import (
	"context"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunHubStopsOnSIGTERM(t *testing.T) {
	r := startHub(t, context.Background())

	assert.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))

	assert.NoError(t, r.wait(t))
	r.assertStoppedLast(t)
}
