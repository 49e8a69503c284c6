package tinyfs

import (
	"time"

	"github.com/cznic/mathutil"
)

// chainLength returns ceil(size/payloadSize), the number of data extent
// blocks needed to hold size bytes of file content.
func chainLength(size int32) int32 {
	if size == 0 {
		return 0
	}
	return (size + payloadSize - 1) / payloadSize
}

// truncateChain walks a file's data chain starting at head, releasing every
// block it visits.
func (fs *FileSystem) truncateChain(head int32) error {
	var b block
	for head != 0 {
		if err := fs.dev.ReadBlock(fs.handle, head, b[:]); err != nil {
			return err
		}
		next := decodeInt32(b[offDataNext : offDataNext+4])
		if err := fs.release(head); err != nil {
			return err
		}
		head = next
	}
	return nil
}

// writeWholeFile replaces inodeBlock's entire data chain with the content
// of buf, freeing the old chain first so its blocks can be reused by the
// new one. It fails without side effects visible to the caller if there
// are not enough free blocks, or rolls back any partial allocation on a
// later I/O error.
func (fs *FileSystem) writeWholeFile(inodeBlock int32, buf []byte) error {
	rec, err := fs.readInode(inodeBlock)
	if err != nil {
		return err
	}
	if rec.readOnly {
		return ErrReadOnly
	}

	size := int32(len(buf))
	need := chainLength(size)

	if need > 0 {
		// Pre-flight against the *current* free count: the old chain's
		// blocks are not released yet, so they don't count as available.
		// Truncation happens next, which is what lets the allocation loop
		// below actually draw on the blocks this check didn't count.
		free, err := fs.freeCount()
		if err != nil {
			return err
		}
		if need > free {
			return ErrNoSpace
		}
	}

	if err := fs.truncateChain(rec.firstDataBlock); err != nil {
		return err
	}

	if size == 0 {
		err := fs.updateInode(inodeBlock, func(r *inodeRecord) {
			r.size = 0
			r.firstDataBlock = 0
			r.mtime = int32(time.Now().Unix())
		})
		if err != nil {
			return err
		}
		fs.setColorFirstData(inodeBlock, 0)
		return nil
	}

	allocated := make([]int32, 0, need)
	rollback := func() {
		for _, b := range allocated {
			fs.release(b)
		}
	}

	var firstBlock, prevBlock int32
	var b block
	for i := int32(0); i < need; i++ {
		cur, ok, err := fs.alloc()
		if err != nil {
			rollback()
			return err
		}
		if !ok {
			rollback()
			return ErrNoSpace
		}
		allocated = append(allocated, cur)

		start := i * payloadSize
		n := mathutil.Min(int(size-start), payloadSize)

		b = block{}
		b[offTag] = tagData
		b[offMagic] = magic
		copy(b[offDataPayload:offDataPayload+n], buf[start:start+int32(n)])
		if err := fs.dev.WriteBlock(fs.handle, cur, b[:]); err != nil {
			rollback()
			return err
		}

		if firstBlock == 0 {
			firstBlock = cur
		}
		if prevBlock != 0 {
			var pb block
			if err := fs.dev.ReadBlock(fs.handle, prevBlock, pb[:]); err != nil {
				rollback()
				return err
			}
			encodeInt32(cur, pb[offDataNext:])
			if err := fs.dev.WriteBlock(fs.handle, prevBlock, pb[:]); err != nil {
				rollback()
				return err
			}
		}
		prevBlock = cur
	}

	err = fs.updateInode(inodeBlock, func(r *inodeRecord) {
		r.size = size
		r.firstDataBlock = firstBlock
		r.mtime = int32(time.Now().Unix())
	})
	if err != nil {
		rollback()
		return err
	}

	fs.setColorFirstData(inodeBlock, firstBlock)
	return nil
}

// readByteAt reads the single byte at offset fp in inodeBlock's file,
// updating the access timestamp on success.
func (fs *FileSystem) readByteAt(inodeBlock int32, fp int32) (byte, error) {
	rec, err := fs.readInode(inodeBlock)
	if err != nil {
		return 0, err
	}
	if fp >= rec.size {
		return 0, ErrEOF
	}

	blockIdx := fp / payloadSize
	within := fp % payloadSize

	cur := rec.firstDataBlock
	var b block
	for i := int32(0); i < blockIdx; i++ {
		if err := fs.dev.ReadBlock(fs.handle, cur, b[:]); err != nil {
			return 0, err
		}
		cur = decodeInt32(b[offDataNext : offDataNext+4])
	}
	if err := fs.dev.ReadBlock(fs.handle, cur, b[:]); err != nil {
		return 0, err
	}
	result := b[offDataPayload+within]

	err = fs.updateInode(inodeBlock, func(r *inodeRecord) {
		r.atime = int32(time.Now().Unix())
	})
	if err != nil {
		return 0, err
	}

	return result, nil
}

// writeByteAt overwrites the single byte at offset in place. The file must
// not be read-only and offset must be a valid existing byte position.
func (fs *FileSystem) writeByteAt(inodeBlock int32, offset int32, data byte) error {
	rec, err := fs.readInode(inodeBlock)
	if err != nil {
		return err
	}
	if rec.readOnly {
		return ErrReadOnly
	}
	if offset < 0 || offset >= rec.size {
		return ErrSeek
	}

	blockIdx := offset / payloadSize
	within := offset % payloadSize

	cur := rec.firstDataBlock
	var b block
	for i := int32(0); i < blockIdx; i++ {
		if err := fs.dev.ReadBlock(fs.handle, cur, b[:]); err != nil {
			return err
		}
		cur = decodeInt32(b[offDataNext : offDataNext+4])
		if cur == 0 {
			return ErrWrite
		}
	}
	if err := fs.dev.ReadBlock(fs.handle, cur, b[:]); err != nil {
		return err
	}
	b[offDataPayload+within] = data
	if err := fs.dev.WriteBlock(fs.handle, cur, b[:]); err != nil {
		return err
	}

	return fs.updateInode(inodeBlock, func(r *inodeRecord) {
		r.mtime = int32(time.Now().Unix())
	})
}
