package tools

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Sync   string `json:"sync" yaml:"sync"`
	Height int64  `json:"height" yaml:"height"`
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Print(&buf, FormatYAML, sample{Sync: "synced", Height: 42}))
	assert.Equal(t, "sync: synced\nheight: 42\n", buf.String())

	buf.Reset()
	require.NoError(t, Print(&buf, FormatJSON, sample{Sync: "syncing", Height: 7}))
	assert.Equal(t, "{\n    \"sync\": \"syncing\",\n    \"height\": 7\n}\n", buf.String())

	buf.Reset()
	require.NoError(t, Print(&buf, FormatJSON, nil))
	assert.Empty(t, buf.String())

	assert.Error(t, Print(&buf, "xml", sample{}))
}
