package tinyfs

import (
	"compress/gzip"
	"fmt"
	"io"
)

// SnapshotCodec identifies how Dump/Load (de)compresses a raw device image.
// The registry mirrors the teacher's pluggable-codec pattern: a codec
// identifier type, a registry populated by init(), and optional codecs
// behind build tags (snapshot_xz.go, snapshot_zstd.go).
type SnapshotCodec uint8

const (
	// SnapshotRaw stores the device image byte-for-byte, uncompressed.
	SnapshotRaw SnapshotCodec = iota
	// SnapshotGzip compresses with the standard library's compress/gzip.
	SnapshotGzip
	// SnapshotXZ compresses with github.com/ulikunitz/xz. Registered only
	// when built with the "xz" build tag.
	SnapshotXZ
	// SnapshotZSTD compresses with github.com/klauspost/compress/zstd.
	// Registered only when built with the "zstd" build tag.
	SnapshotZSTD
)

func (c SnapshotCodec) String() string {
	switch c {
	case SnapshotRaw:
		return "raw"
	case SnapshotGzip:
		return "gzip"
	case SnapshotXZ:
		return "xz"
	case SnapshotZSTD:
		return "zstd"
	}
	return fmt.Sprintf("SnapshotCodec(%d)", c)
}

type snapshotHandler struct {
	compress   func(io.Writer) (io.WriteCloser, error)
	decompress func(io.Reader) (io.Reader, error)
}

var snapshotCodecs = map[SnapshotCodec]*snapshotHandler{}

// RegisterSnapshotCodec installs a compressor/decompressor pair for the
// given codec identifier. Called from init() by this file and by the
// build-tag-gated codec files.
func RegisterSnapshotCodec(c SnapshotCodec, h *snapshotHandler) {
	snapshotCodecs[c] = h
}

func init() {
	RegisterSnapshotCodec(SnapshotGzip, &snapshotHandler{
		compress: func(w io.Writer) (io.WriteCloser, error) {
			return gzip.NewWriter(w), nil
		},
		decompress: func(r io.Reader) (io.Reader, error) {
			return gzip.NewReader(r)
		},
	})
}

// Dump streams a byte-for-byte copy of the mounted device, compressed with
// codec, to w. This is operational tooling around the format (backup and
// restore); it never touches the on-disk layout itself.
func (fs *FileSystem) Dump(w io.Writer, codec SnapshotCodec) error {
	if !fs.mounted {
		return fsErr("dump", ErrNotMounted, codeGeneric)
	}

	dest := w
	var wc io.WriteCloser
	if codec != SnapshotRaw {
		h, ok := snapshotCodecs[codec]
		if !ok {
			return fmt.Errorf("tinyfs: snapshot codec %s not registered (missing build tag?)", codec)
		}
		var err error
		wc, err = h.compress(w)
		if err != nil {
			return err
		}
		dest = wc
	}

	var b block
	for i := int32(0); i < fs.totalBlocks; i++ {
		if err := fs.dev.ReadBlock(fs.handle, i, b[:]); err != nil {
			return err
		}
		if _, err := dest.Write(b[:]); err != nil {
			return err
		}
	}

	if wc != nil {
		return wc.Close()
	}
	return nil
}

// Load restores a mounted device's contents from a snapshot previously
// produced by Dump with the same codec. The device must already be mounted
// with exactly fs.totalBlocks worth of space.
func (fs *FileSystem) Load(r io.Reader, codec SnapshotCodec) error {
	if !fs.mounted {
		return fsErr("load", ErrNotMounted, codeGeneric)
	}

	src := r
	if codec != SnapshotRaw {
		h, ok := snapshotCodecs[codec]
		if !ok {
			return fmt.Errorf("tinyfs: snapshot codec %s not registered (missing build tag?)", codec)
		}
		decoded, err := h.decompress(r)
		if err != nil {
			return err
		}
		src = decoded
	}

	var b block
	for i := int32(0); i < fs.totalBlocks; i++ {
		if _, err := io.ReadFull(src, b[:]); err != nil {
			return err
		}
		if err := fs.dev.WriteBlock(fs.handle, i, b[:]); err != nil {
			return err
		}
	}

	fs.rebuildColorCache()
	return nil
}
