package rundown

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
)

// MarshalJSON encodes the rundown as a JSON array of segments in broadcast
// order.
func (r *Rundown) MarshalJSON() ([]byte, error) {
	segs := r.segments
	if segs == nil {
		segs = []Segment{}
	}
	return json.Marshal(segs)
}

// UnmarshalJSON replaces the segments with a decoded JSON array. The anchor
// is cleared so the next pass derives it from the loaded backtimes.
func (r *Rundown) UnmarshalJSON(data []byte) error {
	var segs []Segment
	if err := json.Unmarshal(data, &segs); err != nil {
		return err
	}
	r.segments = segs
	r.anchor = time.Time{}
	return nil
}

// Encode writes the rundown to w as indented JSON.
func Encode(w io.Writer, r *Rundown) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode rundown: %w", err)
	}
	return nil
}

// Decode reads a rundown written by Encode.
func Decode(rd io.Reader, defaults SegmentDefaults) (*Rundown, error) {
	r := New(defaults)
	if err := json.NewDecoder(rd).Decode(r); err != nil {
		return nil, fmt.Errorf("failed to decode rundown: %w", err)
	}
	return r, nil
}

// SaveFile writes the rundown to path. The file is replaced atomically.
func SaveFile(path string, r *Rundown) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal rundown: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create rundown directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".rundown-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write rundown: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set rundown permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write rundown: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to save rundown: %w", err)
	}
	return nil
}

// LoadFile reads a rundown saved with SaveFile. A missing file is reported
// with an error wrapping os.ErrNotExist.
//
// The anchor is not part of the file. Until SetAnchor is called, the first
// schedule pass anchors on the last segment's saved backtime, which is the
// show end minus that segment's duration, so every backtime shifts earlier by
// that amount. Callers that need stable backtimes across a save and load must
// keep the anchor themselves and restore it with SetAnchor.
func LoadFile(path string, defaults SegmentDefaults) (*Rundown, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rundown: %w", err)
	}
	defer f.Close()

	return Decode(f, defaults)
}
