package common

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.dat")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0600))

	sum, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", sum)

	_, err = HashFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestVerifyChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asset.zip")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0600))
	log := logrus.NewEntry(logrus.New())

	assert.NoError(t, VerifyChecksum(log, path, "2CF24DBA5FB0A30E26E83B2AC5B9E29E1B161E5C1FA7425E73043362938B9824"))
	assert.Error(t, VerifyChecksum(log, path, "deadbeef"))
}

func TestIsExecutable(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "lynxd")
	plain := filepath.Join(dir, "readme")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\n"), 0755))
	require.NoError(t, os.WriteFile(plain, []byte("x"), 0644))

	assert.True(t, IsExecutable(exe))
	assert.False(t, IsExecutable(plain))
	assert.False(t, IsExecutable(dir))
	assert.False(t, IsExecutable(filepath.Join(dir, "missing")))
}

func TestCopyWithContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var dst bytes.Buffer
	_, err := CopyWithContext(ctx, &dst, strings.NewReader("data"))
	assert.ErrorIs(t, err, context.Canceled)
}
