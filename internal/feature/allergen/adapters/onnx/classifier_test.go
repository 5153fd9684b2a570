package onnx

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLabels(t *testing.T) {
	t.Parallel()

	t.Run("valid artifact", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "labels.json")
		require.NoError(t, os.WriteFile(path, []byte(`["milk", "peanuts", "wheat"]`), 0o644))

		labels, err := loadLabels(path)

		require.NoError(t, err)
		assert.Equal(t, []string{"milk", "peanuts", "wheat"}, labels)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loadLabels(filepath.Join(t.TempDir(), "missing.json"))
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "labels.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"not": "a list"}`), 0o644))

		_, err := loadLabels(path)
		assert.Error(t, err)
	})

	t.Run("empty label list", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "labels.json")
		require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))

		_, err := loadLabels(path)
		assert.Error(t, err)
	})
}

func TestSigmoid(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.5, sigmoid(0), 1e-9)
	assert.Greater(t, sigmoid(4), 0.98)
	assert.Less(t, sigmoid(-4), 0.02)
	assert.InDelta(t, 1.0, sigmoid(float32(math.Inf(1))), 1e-9)
}
