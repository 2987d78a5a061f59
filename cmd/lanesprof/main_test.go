package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestExecuteWritesProfile(t *testing.T) {
	for _, cfg := range []config{
		{iterations: 2, checksum: "crc32"},
		{iterations: 2, checksum: "xxhash", compress: true, unsafe: true, inPlace: true},
	} {
		cfg.profile = filepath.Join(t.TempDir(), "mem.prof")
		core, logs := observer.New(zapcore.InfoLevel)
		require.Equal(t, 0, execute(cfg, zap.New(core)))

		info, err := os.Stat(cfg.profile)
		require.NoError(t, err)
		require.NotZero(t, info.Size())
		require.Equal(t, 1, logs.FilterMessage("heap profile written").Len())
	}
}

func TestExecuteReportsFailure(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	cfg := config{iterations: 1, checksum: "md5", profile: filepath.Join(t.TempDir(), "mem.prof")}

	require.Equal(t, 1, execute(cfg, zap.New(core)))
	failed := logs.FilterMessage("lanesprof failed").All()
	require.Len(t, failed, 1)
	require.Contains(t, failed[0].ContextMap()["error"], "unknown checksum")

	_, err := os.Stat(cfg.profile)
	require.True(t, os.IsNotExist(err))
}
