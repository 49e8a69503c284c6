package tinyfs

import (
	"math/rand"
	"strings"
	"time"
)

// inodeRecord is the in-memory decoding of one tag-2 inode block.
type inodeRecord struct {
	rawName        [inodeNameLen]byte
	size           int32
	firstDataBlock int32
	ctime, mtime, atime int32
	readOnly       bool
	r, g, b        byte
}

func (r *inodeRecord) name() string {
	return strings.TrimRight(string(r.rawName[:]), "\x00")
}

func (r *inodeRecord) setName(name string) {
	r.rawName = [inodeNameLen]byte{}
	copy(r.rawName[:], name)
}

func (r *inodeRecord) marshal(b *block) {
	*b = block{}
	b[offTag] = tagInode
	b[offMagic] = magic
	copy(b[offInodeName:offInodeName+inodeNameLen], r.rawName[:])
	encodeInt32(r.size, b[offInodeSize:])
	encodeInt32(r.firstDataBlock, b[offInodeFirstData:])
	encodeInt32(r.ctime, b[offInodeCTime:])
	encodeInt32(r.mtime, b[offInodeMTime:])
	encodeInt32(r.atime, b[offInodeATime:])
	if r.readOnly {
		b[offInodeReadOnly] = 1
	}
	b[offInodeColor] = r.r
	b[offInodeColor+1] = r.g
	b[offInodeColor+2] = r.b
}

func (r *inodeRecord) unmarshal(b *block) {
	copy(r.rawName[:], b[offInodeName:offInodeName+inodeNameLen])
	r.size = decodeInt32(b[offInodeSize : offInodeSize+4])
	r.firstDataBlock = decodeInt32(b[offInodeFirstData : offInodeFirstData+4])
	r.ctime = decodeInt32(b[offInodeCTime : offInodeCTime+4])
	r.mtime = decodeInt32(b[offInodeMTime : offInodeMTime+4])
	r.atime = decodeInt32(b[offInodeATime : offInodeATime+4])
	r.readOnly = b[offInodeReadOnly] != 0
	r.r = b[offInodeColor]
	r.g = b[offInodeColor+1]
	r.b = b[offInodeColor+2]
}

// paddedName returns name truncated/zero-padded to inodeNameLen bytes for
// comparison against the raw on-disk field.
func paddedName(name string) [inodeNameLen]byte {
	var out [inodeNameLen]byte
	copy(out[:], name)
	return out
}

// findInode performs a linear scan of the device for an inode block whose
// name field matches name exactly (up to inodeNameLen bytes, zero-padded).
func (fs *FileSystem) findInode(name string) (blockNum int32, found bool, err error) {
	want := paddedName(name)
	var b block
	for i := int32(1); i < fs.totalBlocks; i++ {
		if err := fs.dev.ReadBlock(fs.handle, i, b[:]); err != nil {
			return 0, false, err
		}
		if b.tag() != tagInode || !b.isMagic() {
			continue
		}
		if [inodeNameLen]byte(b[offInodeName:offInodeName+inodeNameLen]) == want {
			return i, true, nil
		}
	}
	return 0, false, nil
}

// createInode allocates a fresh inode block for name: size 0, no data
// chain, current timestamps, read-write, and a random display color. It
// also registers the new inode in the in-memory metadata cache.
func (fs *FileSystem) createInode(name string) (int32, error) {
	blockNum, ok, err := fs.alloc()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrNoSpace
	}

	now := int32(time.Now().Unix())
	rec := inodeRecord{
		rawName: paddedName(name),
		ctime:   now,
		mtime:   now,
		atime:   now,
	}
	rec.r = byte(rand.Intn(256))
	rec.g = byte(rand.Intn(256))
	rec.b = byte(rand.Intn(256))

	var b block
	rec.marshal(&b)
	if err := fs.dev.WriteBlock(fs.handle, blockNum, b[:]); err != nil {
		return 0, err
	}

	fs.addColor(blockNum, name, 0, rec.r, rec.g, rec.b)
	return blockNum, nil
}

// readInode reads and decodes the inode block at blockNum.
func (fs *FileSystem) readInode(blockNum int32) (inodeRecord, error) {
	var b block
	if err := fs.dev.ReadBlock(fs.handle, blockNum, b[:]); err != nil {
		return inodeRecord{}, err
	}
	var rec inodeRecord
	rec.unmarshal(&b)
	return rec, nil
}

// updateInode performs a read-modify-write of the inode block at blockNum.
func (fs *FileSystem) updateInode(blockNum int32, mutate func(*inodeRecord)) error {
	rec, err := fs.readInode(blockNum)
	if err != nil {
		return err
	}
	mutate(&rec)
	var b block
	rec.marshal(&b)
	return fs.dev.WriteBlock(fs.handle, blockNum, b[:])
}

// destroyInode frees its data chain, frees the inode block itself, and
// removes its metadata-cache entry. Read-only files cannot be destroyed.
func (fs *FileSystem) destroyInode(blockNum int32) error {
	rec, err := fs.readInode(blockNum)
	if err != nil {
		return err
	}
	if rec.readOnly {
		return ErrReadOnly
	}

	if err := fs.truncateChain(rec.firstDataBlock); err != nil {
		return err
	}
	if err := fs.release(blockNum); err != nil {
		return err
	}
	fs.removeColor(blockNum)
	return nil
}
