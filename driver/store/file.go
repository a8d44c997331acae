// Package store persists the clock state as a small binary file:
// the canonical minute counter plus the wall-clock cooldown entries.
package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"example.com/game-time/core/cooldown"
)

// Layout v2:
//
//	"GTCK" | uint16 version | int64 totalMinutes |
//	int32 count x (uint16 idLen | id | int64 startMillis | int64 durationMillis)
//
// Version 1 is the bare legacy layout without magic and without
// durations; it is still readable, and its entries restore with zero
// duration (immediately expired). All integers are big-endian.
const (
	fileVersion = 2

	maxIDLen       = 1 << 15
	maxRecordCount = 1 << 20
)

var fileMagic = []byte("GTCK")

var ErrCorrupt = errors.New("corrupt state file")

// File reads and writes clock state at a fixed path.
type File struct {
	Path string
}

// Load returns the persisted state. A missing file is zero state, not
// an error. A malformed file returns ErrCorrupt; callers recover by
// starting from zero.
func (f *File) Load() (int64, []cooldown.Record, error) {
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil, nil
	}
	if err != nil {
		return 0, nil, err
	}
	total, recs, err := decode(raw)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, f.Path, err)
	}
	return total, recs, nil
}

// Save writes the state to a temporary file and renames it into
// place, so a crash mid-write never leaves a torn file behind.
func (f *File) Save(total int64, recs []cooldown.Record) error {
	raw, err := encode(total, recs)
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, f.Path)
}

func encode(total int64, recs []cooldown.Record) ([]byte, error) {
	if len(recs) > maxRecordCount {
		return nil, fmt.Errorf("too many cooldown records: %d", len(recs))
	}
	var buf bytes.Buffer
	buf.Write(fileMagic)
	writeBE(&buf, uint16(fileVersion))
	writeBE(&buf, total)
	writeBE(&buf, int32(len(recs)))
	for _, r := range recs {
		if len(r.ID) >= maxIDLen {
			return nil, fmt.Errorf("cooldown id too long: %d bytes", len(r.ID))
		}
		writeBE(&buf, uint16(len(r.ID)))
		buf.WriteString(r.ID)
		writeBE(&buf, r.StartUnixMillis)
		writeBE(&buf, r.DurationMillis)
	}
	return buf.Bytes(), nil
}

func writeBE(buf *bytes.Buffer, v any) {
	err := binary.Write(buf, binary.BigEndian, v)
	if err != nil {
		panic(err)
	}
}

func decode(raw []byte) (int64, []cooldown.Record, error) {
	r := bytes.NewReader(raw)
	withDurations := false
	if bytes.HasPrefix(raw, fileMagic) {
		if _, err := r.Seek(int64(len(fileMagic)), io.SeekStart); err != nil {
			return 0, nil, err
		}
		var version uint16
		if err := binary.Read(r, binary.BigEndian, &version); err != nil {
			return 0, nil, err
		}
		if version != fileVersion {
			return 0, nil, fmt.Errorf("unsupported state file version %d", version)
		}
		withDurations = true
	}

	var total int64
	if err := binary.Read(r, binary.BigEndian, &total); err != nil {
		return 0, nil, err
	}
	if total < 0 {
		return 0, nil, fmt.Errorf("negative minute counter %d", total)
	}
	var count int32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return 0, nil, err
	}
	if count < 0 || count > maxRecordCount {
		return 0, nil, fmt.Errorf("implausible cooldown record count %d", count)
	}

	recs := make([]cooldown.Record, 0, count)
	for i := int32(0); i < count; i++ {
		var idLen uint16
		if err := binary.Read(r, binary.BigEndian, &idLen); err != nil {
			return 0, nil, err
		}
		id := make([]byte, idLen)
		if _, err := io.ReadFull(r, id); err != nil {
			return 0, nil, err
		}
		var rec cooldown.Record
		rec.ID = string(id)
		if err := binary.Read(r, binary.BigEndian, &rec.StartUnixMillis); err != nil {
			return 0, nil, err
		}
		if withDurations {
			if err := binary.Read(r, binary.BigEndian, &rec.DurationMillis); err != nil {
				return 0, nil, err
			}
		}
		recs = append(recs, rec)
	}
	if r.Len() != 0 {
		return 0, nil, fmt.Errorf("%d trailing bytes", r.Len())
	}
	return total, recs, nil
}
