package tinyfs

// alloc takes the superblock's first-free pointer, advances it to the
// block's own next-free pointer, and returns the block that used to be at
// the head of the free list. The caller is responsible for overwriting the
// returned block with its new typed content. alloc returns ok=false when
// the free list is empty.
func (fs *FileSystem) alloc() (blockNum int32, ok bool, err error) {
	var sb block
	if err := fs.dev.ReadBlock(fs.handle, 0, sb[:]); err != nil {
		return 0, false, err
	}

	head := decodeInt32(sb[offSuperFirstFree : offSuperFirstFree+4])
	if head == 0 {
		return 0, false, nil
	}

	var fb block
	if err := fs.dev.ReadBlock(fs.handle, head, fb[:]); err != nil {
		return 0, false, err
	}

	encodeInt32(fb.freeNext(), sb[offSuperFirstFree:])
	if err := fs.dev.WriteBlock(fs.handle, 0, sb[:]); err != nil {
		return 0, false, err
	}

	return head, true, nil
}

// release marks blockNum free and pushes it onto the head of the free
// list (LIFO: the next alloc returns it first).
func (fs *FileSystem) release(blockNum int32) error {
	var sb block
	if err := fs.dev.ReadBlock(fs.handle, 0, sb[:]); err != nil {
		return err
	}
	head := decodeInt32(sb[offSuperFirstFree : offSuperFirstFree+4])

	var fb block
	fb.stampFree(head)
	if err := fs.dev.WriteBlock(fs.handle, blockNum, fb[:]); err != nil {
		return err
	}

	encodeInt32(blockNum, sb[offSuperFirstFree:])
	return fs.dev.WriteBlock(fs.handle, 0, sb[:])
}

// freeCount scans the device counting tag-4 blocks. Used as a write
// pre-flight check so a whole-file write never fails partway through for
// lack of space.
func (fs *FileSystem) freeCount() (int32, error) {
	var b block
	var n int32
	for i := int32(1); i < fs.totalBlocks; i++ {
		if err := fs.dev.ReadBlock(fs.handle, i, b[:]); err != nil {
			return 0, err
		}
		if b.tag() == tagFree {
			n++
		}
	}
	return n, nil
}
