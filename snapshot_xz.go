//go:build xz

package tinyfs

import (
	"io"

	"github.com/ulikunitz/xz"
)

func init() {
	RegisterSnapshotCodec(SnapshotXZ, &snapshotHandler{
		compress: func(w io.Writer) (io.WriteCloser, error) {
			return xz.NewWriter(w)
		},
		decompress: func(r io.Reader) (io.Reader, error) {
			return xz.NewReader(r)
		},
	})
}
