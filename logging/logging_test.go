package logging

import (
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.log")

	closer := Setup(path)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	log.Printf("Sync %s completed", "popular")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Sync popular completed")
}

func TestSetup_StderrOnly(t *testing.T) {
	closer := Setup("")
	assert.NoError(t, closer.Close())
}
