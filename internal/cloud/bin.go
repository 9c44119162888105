package cloud

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// BinRecordLen is the size of one point record in a velodyne .bin file:
// four little-endian float32 values (x, y, z, intensity).
const BinRecordLen = 4 * 4

// ErrTruncatedRecord indicates a .bin or .label file whose length is not a
// whole number of records.
var ErrTruncatedRecord = errors.New("cloud: truncated record")

// ReadBin decodes a velodyne .bin stream into a Cloud. The stream is a flat
// little-endian float32 array with 4 values per point and no header.
func ReadBin(r io.Reader) (Cloud, error) {
	br := bufio.NewReader(r)
	var c Cloud
	buf := make([]byte, BinRecordLen)
	for {
		_, err := io.ReadFull(br, buf)
		if err == io.EOF {
			return c, nil
		}
		if err == io.ErrUnexpectedEOF {
			return nil, ErrTruncatedRecord
		}
		if err != nil {
			return nil, fmt.Errorf("cloud: read bin record: %w", err)
		}
		c = append(c, Point{
			X:         math.Float32frombits(binary.LittleEndian.Uint32(buf[0:4])),
			Y:         math.Float32frombits(binary.LittleEndian.Uint32(buf[4:8])),
			Z:         math.Float32frombits(binary.LittleEndian.Uint32(buf[8:12])),
			Intensity: math.Float32frombits(binary.LittleEndian.Uint32(buf[12:16])),
		})
	}
}

// ReadBinFile reads a velodyne .bin file from disk.
func ReadBinFile(path string) (Cloud, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cloud: open %s: %w", path, err)
	}
	defer f.Close()

	c, err := ReadBin(f)
	if err != nil {
		return nil, fmt.Errorf("cloud: decode %s: %w", path, err)
	}
	return c, nil
}

// WriteBin encodes a Cloud in the velodyne .bin layout.
func WriteBin(w io.Writer, c Cloud) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, BinRecordLen)
	for i, p := range c {
		binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(p.X))
		binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(p.Y))
		binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(p.Z))
		binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(p.Intensity))
		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("cloud: write bin record %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// WriteBinFile writes a Cloud to a velodyne .bin file.
func WriteBinFile(path string, c Cloud) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cloud: create %s: %w", path, err)
	}
	if err := WriteBin(f, c); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
