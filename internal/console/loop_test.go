package console

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoopRunShellsOutWithoutHandshakeWhenExternalShellSet(t *testing.T) {
	l := &Loop{ExternalShell: "true", out: defaultOut}
	err := l.Run(context.Background())
	assert.NoError(t, err, "the 'true' binary exits 0, so shelling out to it must not error")
}

func TestLoopRunShellOutPropagatesLaunchError(t *testing.T) {
	l := &Loop{ExternalShell: "/no/such/external-console-binary", out: defaultOut}
	err := l.Run(context.Background())
	assert.Error(t, err)
}
