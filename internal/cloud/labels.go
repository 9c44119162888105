package cloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// LabelRecordLen is the size of one record in a .label file: a single
// little-endian uint32 per point.
const LabelRecordLen = 4

// Label is one raw .label record. The lower 16 bits carry the semantic
// class; the upper 16 bits carry an instance ID for panoptic datasets.
type Label uint32

// Semantic returns the semantic class in the lower 16 bits.
func (l Label) Semantic() uint16 { return uint16(l & 0xFFFF) }

// Instance returns the instance ID in the upper 16 bits.
func (l Label) Instance() uint16 { return uint16(l >> 16) }

// MakeLabel packs a semantic class and instance ID into a raw label.
func MakeLabel(semantic, instance uint16) Label {
	return Label(uint32(instance)<<16 | uint32(semantic))
}

// ReadLabels decodes a .label stream: flat little-endian uint32 records,
// one per point, no header.
func ReadLabels(r io.Reader) ([]Label, error) {
	br := bufio.NewReader(r)
	var labels []Label
	buf := make([]byte, LabelRecordLen)
	for {
		_, err := io.ReadFull(br, buf)
		if err == io.EOF {
			return labels, nil
		}
		if err == io.ErrUnexpectedEOF {
			return nil, ErrTruncatedRecord
		}
		if err != nil {
			return nil, fmt.Errorf("cloud: read label record: %w", err)
		}
		labels = append(labels, Label(binary.LittleEndian.Uint32(buf)))
	}
}

// ReadLabelsFile reads a .label file from disk.
func ReadLabelsFile(path string) ([]Label, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cloud: open %s: %w", path, err)
	}
	defer f.Close()

	labels, err := ReadLabels(f)
	if err != nil {
		return nil, fmt.Errorf("cloud: decode %s: %w", path, err)
	}
	return labels, nil
}

// WriteLabels encodes labels in the .label layout.
func WriteLabels(w io.Writer, labels []Label) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, LabelRecordLen)
	for i, l := range labels {
		binary.LittleEndian.PutUint32(buf, uint32(l))
		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("cloud: write label record %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// WriteLabelsFile writes labels to a .label file.
func WriteLabelsFile(path string, labels []Label) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cloud: create %s: %w", path, err)
	}
	if err := WriteLabels(f, labels); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Semantics extracts the semantic halves of a raw label buffer.
func Semantics(labels []Label) []uint16 {
	out := make([]uint16, len(labels))
	for i, l := range labels {
		out[i] = l.Semantic()
	}
	return out
}
