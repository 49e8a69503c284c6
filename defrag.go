package tinyfs

import (
	"io"

	"github.com/orcaman/writerseeker"
)

// Defrag compacts every allocated (inode or data) block to the front of the
// device, rewrites every inode's first-data pointer and every data block's
// next pointer to match, and rebuilds the free list over the remaining
// suffix. It assumes exclusive access: it is best-effort maintenance and
// does not roll back on I/O failure (spec.md §4.9).
//
// The compacted region is assembled in an in-memory staging buffer before
// being flushed to the device in one sequential pass, the same
// buffer-then-flush shape the teacher's Writer uses when its underlying
// io.Writer can't be written to at arbitrary offsets directly.
func (fs *FileSystem) Defrag() error {
	if !fs.mounted {
		return fsErr("defrag", ErrNotMounted, codeGeneric)
	}

	n := fs.totalBlocks
	mapping := make([]int32, n)
	for i := range mapping {
		mapping[i] = int32(i)
	}

	var staging writerseeker.WriterSeeker
	nextSlot := int32(1)
	var buf block

	for i := int32(1); i < n; i++ {
		if err := fs.dev.ReadBlock(fs.handle, i, buf[:]); err != nil {
			return err
		}
		if buf.tag() == tagFree {
			continue
		}
		mapping[i] = nextSlot
		if _, err := staging.Write(buf[:]); err != nil {
			return err
		}
		nextSlot++
	}

	// Flush the compacted region to the front of the device.
	r := staging.BytesReader()
	var flushBuf block
	for slot := int32(1); slot < nextSlot; slot++ {
		if _, err := io.ReadFull(r, flushBuf[:]); err != nil {
			return err
		}
		if err := fs.dev.WriteBlock(fs.handle, slot, flushBuf[:]); err != nil {
			return err
		}
	}

	// Rewrite chain pointers through mapping.
	for i := int32(1); i < nextSlot; i++ {
		if err := fs.dev.ReadBlock(fs.handle, i, buf[:]); err != nil {
			return err
		}
		switch buf.tag() {
		case tagInode:
			old := decodeInt32(buf[offInodeFirstData : offInodeFirstData+4])
			if old != 0 {
				encodeInt32(mapping[old], buf[offInodeFirstData:])
			}
			if err := fs.dev.WriteBlock(fs.handle, i, buf[:]); err != nil {
				return err
			}
		case tagData:
			old := decodeInt32(buf[offDataNext : offDataNext+4])
			if old != 0 {
				encodeInt32(mapping[old], buf[offDataNext:])
			}
			if err := fs.dev.WriteBlock(fs.handle, i, buf[:]); err != nil {
				return err
			}
		}
	}

	// Rebuild the free chain in one pass over the remaining suffix. Doing
	// this last (rather than writing a transient next-free pointer into
	// each moved-from slot during the loop above) avoids building a free
	// list that the final pass would just overwrite again.
	var fb block
	for i := nextSlot; i < n; i++ {
		next := int32(0)
		if i != n-1 {
			next = i + 1
		}
		fb.stampFree(next)
		if err := fs.dev.WriteBlock(fs.handle, i, fb[:]); err != nil {
			return err
		}
	}

	var sb block
	if err := fs.dev.ReadBlock(fs.handle, 0, sb[:]); err != nil {
		return err
	}
	firstFree := int32(0)
	if nextSlot < n {
		firstFree = nextSlot
	}
	encodeInt32(firstFree, sb[offSuperFirstFree:])
	if err := fs.dev.WriteBlock(fs.handle, 0, sb[:]); err != nil {
		return err
	}

	// Remap the in-memory metadata cache.
	for _, c := range fs.colors {
		c.inodeBlock = mapping[c.inodeBlock]
		if c.firstDataBlock != 0 {
			c.firstDataBlock = mapping[c.firstDataBlock]
		}
	}
	remapped := make(map[int32]*inodeColor, len(fs.colors))
	for _, c := range fs.colors {
		remapped[c.inodeBlock] = c
	}
	fs.colors = remapped

	// Open descriptors point at inode blocks by index; remap those too, or
	// they'd silently start reading/writing whatever now occupies their
	// old slot. Defrag assumes exclusive access, but this keeps any
	// descriptor left open across the call from corrupting a file.
	for i := range fs.openFiles {
		if fs.openFiles[i].inUse {
			fs.openFiles[i].inodeBlock = mapping[fs.openFiles[i].inodeBlock]
		}
	}

	return nil
}
