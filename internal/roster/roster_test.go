package roster

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbit/botsim/internal/types"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bots.yaml")

	in := []types.Credential{
		{Username: "bot_retail_1", Password: "password123", Role: types.Retail, ID: 11},
		{Username: "bot_bandar_1", Password: "password123", Role: types.Bandar, ID: 12},
	}
	require.NoError(t, Save(path, in))

	out, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
