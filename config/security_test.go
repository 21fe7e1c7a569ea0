package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfigPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{
			name:    "empty path",
			path:    "",
			wantErr: "empty config path",
		},
		{
			name:    "relative traversal",
			path:    "../../../etc/secrets.yaml",
			wantErr: "path traversal",
		},
		{
			name:    "wrong extension",
			path:    "config.json",
			wantErr: "only YAML",
		},
		{
			name:    "path too long",
			path:    strings.Repeat("a", maxPathLen+1) + ".yaml",
			wantErr: "path too long",
		},
		{
			name: "plain relative yaml",
			path: "config.yaml",
		},
		{
			name: "yml extension",
			path: "config.yml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfigPath(tt.path)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSafeReadFile_Missing(t *testing.T) {
	_, err := safeReadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot stat")
}

func TestSafeReadFile_TooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.yaml")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("a"), maxConfigSize+1), 0600))

	_, err := safeReadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestSafeReadFile_NotRegular(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dir.yaml")
	require.NoError(t, os.Mkdir(path, 0755))

	_, err := safeReadFile(path)
	require.Error(t, err)
}

func TestSafeWriteFile_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, safeWriteFile(path, []byte("server:\n  addr: \":8080\"\n")))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestValidateEnvVar(t *testing.T) {
	assert.NoError(t, validateEnvVar("NEUROBLOCK_ADDR", ":8080"))
	assert.NoError(t, validateEnvVar("NEUROBLOCK_ADDR", ""))

	err := validateEnvVar("NEUROBLOCK_ADDR", strings.Repeat("x", maxEnvVarLen+1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too long")

	err = validateEnvVar("NEUROBLOCK_ADDR", "bad\x00value")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null byte")
}
