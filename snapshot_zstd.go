//go:build zstd

package tinyfs

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

func init() {
	RegisterSnapshotCodec(SnapshotZSTD, &snapshotHandler{
		compress: func(w io.Writer) (io.WriteCloser, error) {
			return zstd.NewWriter(w)
		},
		decompress: func(r io.Reader) (io.Reader, error) {
			dec, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}
			return dec.IOReadCloser(), nil
		},
	})
}
