package store_test

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/game-time/core/cooldown"
	"example.com/game-time/driver/store"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	f := &store.File{Path: filepath.Join(t.TempDir(), "timedata.dat")}

	recs := []cooldown.Record{
		{ID: "quest_player1", StartUnixMillis: 1_700_000_000_000, DurationMillis: 60_000},
		{ID: "teleport_player2", StartUnixMillis: 1_700_000_100_000, DurationMillis: 5_000},
	}
	require.NoError(t, f.Save(4321, recs))

	total, got, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(4321), total)
	assert.Equal(t, recs, got)
}

func TestLoadMissingFileIsZeroState(t *testing.T) {
	f := &store.File{Path: filepath.Join(t.TempDir(), "absent.dat")}

	total, recs, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, recs)
}

func TestLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		raw  []byte
	}{
		{"truncated", []byte{0x00, 0x01}},
		{"bad version", append([]byte("GTCK"), 0x00, 0x09)},
		{"negative count", legacyBytes(t, 10, -1)},
		{"trailing garbage", append(legacyBytes(t, 10, 0), 0xFF)},
	}
	for _, tt := range tests {
		path := filepath.Join(dir, tt.name)
		require.NoError(t, os.WriteFile(path, tt.raw, 0o644))

		f := &store.File{Path: path}
		_, _, err := f.Load()
		assert.ErrorIs(t, err, store.ErrCorrupt, tt.name)
	}
}

func TestLoadLegacyLayout(t *testing.T) {
	// Legacy files carry no magic and no duration per record.
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, int64(9999)))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, int32(1)))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint16(5)))
	buf.WriteString("old_x")
	require.NoError(t, binary.Write(&buf, binary.BigEndian, int64(1_600_000_000_000)))

	path := filepath.Join(t.TempDir(), "legacy.dat")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	f := &store.File{Path: path}
	total, recs, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(9999), total)
	require.Len(t, recs, 1)
	assert.Equal(t, "old_x", recs[0].ID)
	assert.Equal(t, int64(1_600_000_000_000), recs[0].StartUnixMillis)
	assert.Equal(t, int64(0), recs[0].DurationMillis)
}

func TestSaveCreatesDirectory(t *testing.T) {
	f := &store.File{Path: filepath.Join(t.TempDir(), "nested", "deeper", "timedata.dat")}

	require.NoError(t, f.Save(1, nil))
	total, _, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestSaveOverwritesAtomically(t *testing.T) {
	f := &store.File{Path: filepath.Join(t.TempDir(), "timedata.dat")}

	require.NoError(t, f.Save(1, nil))
	require.NoError(t, f.Save(2, []cooldown.Record{{ID: "x", StartUnixMillis: 1, DurationMillis: 2}}))

	total, recs, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, recs, 1)

	_, err = os.Stat(f.Path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func legacyBytes(t *testing.T, total int64, count int32) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.BigEndian, total))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, count))
	return buf.Bytes()
}
