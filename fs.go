// Package tinyfs implements TinyFS, a single-file block-based file system
// that stores a flat namespace of small files inside one host-level file
// treated as a virtual disk of fixed-size blocks.
//
// A FileSystem value owns everything that the original C implementation
// kept as process-wide globals: the mounted device handle, the open-file
// table, and the in-memory inode metadata cache. That makes multiple
// independent mounts in one process safe, which the legacy singleton design
// was not.
package tinyfs

import "time"

const maxOpenFiles = 20

// FileSystem is a single TinyFS mount. The zero value is ready to use.
type FileSystem struct {
	dev    *BlockDevice
	handle int
	mounted bool

	totalBlocks int32

	openFiles [maxOpenFiles]openFileEntry
	colors    map[int32]*inodeColor
}

// New returns an unmounted FileSystem.
func New() *FileSystem {
	return &FileSystem{dev: NewBlockDevice()}
}

func (fs *FileSystem) requireMounted(op string, code int) error {
	if !fs.mounted {
		return fsErr(op, ErrNotMounted, code)
	}
	return nil
}

// Mkfs formats a new TinyFS volume at path. size must be positive and a
// whole multiple of BlockSize. Per spec.md §9's recommended policy, Mkfs
// always leaves the system unmounted afterward; call Mount to use the new
// volume.
func (fs *FileSystem) Mkfs(path string, size int) error {
	if size <= 0 || size%BlockSize != 0 {
		return fsErr("mkfs", ErrMkfs, codeMkfs)
	}

	dev := NewBlockDevice()
	handle, err := dev.Open(path, size)
	if err != nil {
		return fsErr("mkfs", ErrMkfs, codeMkfs)
	}
	defer dev.Close(handle)

	totalBlocks := int32(size / BlockSize)

	var sb block
	sb[offTag] = tagSuperblock
	sb[offMagic] = magic
	firstFree := int32(0)
	if totalBlocks > 1 {
		firstFree = 1
	}
	encodeInt32(firstFree, sb[offSuperFirstFree:])
	encodeInt32(totalBlocks, sb[offSuperTotal:])
	if err := dev.WriteBlock(handle, 0, sb[:]); err != nil {
		return fsErr("mkfs", ErrMkfs, codeMkfs)
	}

	var fb block
	for i := int32(1); i < totalBlocks; i++ {
		next := int32(0)
		if i != totalBlocks-1 {
			next = i + 1
		}
		fb.stampFree(next)
		if err := dev.WriteBlock(handle, i, fb[:]); err != nil {
			return fsErr("mkfs", ErrMkfs, codeMkfs)
		}
	}

	return nil
}

// Mount opens an existing TinyFS volume at path and validates its
// superblock. Mounting twice without an intervening Unmount fails.
func (fs *FileSystem) Mount(path string) error {
	if fs.mounted {
		return fsErr("mount", ErrAlreadyMounted, codeMount)
	}

	dev := NewBlockDevice()
	handle, err := dev.Open(path, 0)
	if err != nil {
		return fsErr("mount", ErrMount, codeMount)
	}

	var sb block
	if err := dev.ReadBlock(handle, 0, sb[:]); err != nil {
		dev.Close(handle)
		return fsErr("mount", ErrMount, codeMount)
	}
	if sb.tag() != tagSuperblock || !sb.isMagic() {
		dev.Close(handle)
		return fsErr("mount", ErrMount, codeMount)
	}

	fs.dev = dev
	fs.handle = handle
	fs.totalBlocks = decodeInt32(sb[offSuperTotal : offSuperTotal+4])
	fs.openFiles = [maxOpenFiles]openFileEntry{}
	fs.colors = make(map[int32]*inodeColor)
	fs.mounted = true

	fs.rebuildColorCache()

	return nil
}

// Unmount closes the device handle and clears all transient mount state.
func (fs *FileSystem) Unmount() error {
	if !fs.mounted {
		return fsErr("unmount", ErrUnmount, codeUnmount)
	}
	err := fs.dev.Close(fs.handle)
	fs.mounted = false
	fs.openFiles = [maxOpenFiles]openFileEntry{}
	fs.colors = nil
	if err != nil {
		return fsErr("unmount", ErrUnmount, codeUnmount)
	}
	return nil
}

// Open opens name, creating a new empty file if it does not already exist,
// and returns a file descriptor. name must be at most 8 bytes.
func (fs *FileSystem) Open(name string) (int, error) {
	if err := fs.requireMounted("open", codeOpen); err != nil {
		return -1, err
	}
	if len(name) > inodeNameLen {
		return -1, fsErr("open", ErrNameTooLong, codeOpen)
	}

	inodeBlock, found, err := fs.findInode(name)
	if err != nil {
		return -1, fsErr("open", ErrOpen, codeOpen)
	}
	if !found {
		inodeBlock, err = fs.createInode(name)
		if err != nil {
			return -1, fsErr("open", ErrOpen, codeOpen)
		}
	}

	fd := -1
	for i := range fs.openFiles {
		if !fs.openFiles[i].inUse {
			fd = i
			break
		}
	}
	if fd < 0 {
		return -1, fsErr("open", ErrOpen, codeOpen)
	}

	fs.openFiles[fd] = openFileEntry{inUse: true, inodeBlock: inodeBlock, fp: 0}
	return fd, nil
}

// Close releases fd. Reusing fd afterward is rejected until it is reopened.
func (fs *FileSystem) Close(fd int) error {
	e, err := fs.entry(fd, "close", codeClose)
	if err != nil {
		return err
	}
	*e = openFileEntry{}
	return nil
}

// Write replaces the entire contents of fd's file with buf. On success the
// file pointer is reset to 0, matching the legacy writeFile semantic.
func (fs *FileSystem) Write(fd int, buf []byte) error {
	e, err := fs.entry(fd, "write", codeWrite)
	if err != nil {
		return err
	}
	if err := fs.writeWholeFile(e.inodeBlock, buf); err != nil {
		return fsErr("write", err, codeWrite)
	}
	e.fp = 0
	return nil
}

// ReadByte reads the byte at the file pointer and advances it by one.
func (fs *FileSystem) ReadByte(fd int) (byte, error) {
	e, err := fs.entry(fd, "read", codeRead)
	if err != nil {
		return 0, err
	}
	b, err := fs.readByteAt(e.inodeBlock, e.fp)
	if err != nil {
		return 0, fsErr("read", err, codeRead)
	}
	e.fp++
	return b, nil
}

// Seek moves fd's file pointer to offset, which must satisfy
// 0 <= offset <= file size.
func (fs *FileSystem) Seek(fd int, offset int32) error {
	e, err := fs.entry(fd, "seek", codeSeek)
	if err != nil {
		return err
	}
	rec, err := fs.readInode(e.inodeBlock)
	if err != nil {
		return fsErr("seek", ErrSeek, codeSeek)
	}
	if offset < 0 || offset > rec.size {
		return fsErr("seek", ErrSeek, codeSeek)
	}
	e.fp = offset
	return nil
}

// WriteByte overwrites a single existing byte of fd's file in place.
func (fs *FileSystem) WriteByte(fd int, offset int32, b byte) error {
	e, err := fs.entry(fd, "write", codeWrite)
	if err != nil {
		return err
	}
	if err := fs.writeByteAt(e.inodeBlock, offset, b); err != nil {
		return fsErr("write", err, codeWrite)
	}
	return nil
}

// Delete removes fd's file entirely: its data chain and inode block are
// both freed. Fails if the file is read-only.
func (fs *FileSystem) Delete(fd int) error {
	e, err := fs.entry(fd, "delete", codeDelete)
	if err != nil {
		return err
	}
	inodeBlock := e.inodeBlock
	if err := fs.destroyInode(inodeBlock); err != nil {
		return fsErr("delete", err, codeDelete)
	}
	*e = openFileEntry{}
	return nil
}

// Rename changes fd's file name. newName longer than 8 bytes is rejected
// rather than silently truncated (spec.md §9 open question 5).
func (fs *FileSystem) Rename(fd int, newName string) error {
	e, err := fs.entry(fd, "rename", codeRename)
	if err != nil {
		return err
	}
	if len(newName) > inodeNameLen {
		return fsErr("rename", ErrNameTooLong, codeRename)
	}
	err = fs.updateInode(e.inodeBlock, func(r *inodeRecord) {
		r.setName(newName)
		r.mtime = int32(time.Now().Unix())
	})
	if err != nil {
		return fsErr("rename", ErrRename, codeRename)
	}
	return nil
}

// MakeRO marks the named file read-only.
func (fs *FileSystem) MakeRO(name string) error {
	return fs.setReadOnly(name, true, "makeRO", codeMakeRO, ErrMakeRO)
}

// MakeRW clears the named file's read-only flag.
func (fs *FileSystem) MakeRW(name string) error {
	return fs.setReadOnly(name, false, "makeRW", codeMakeRW, ErrMakeRW)
}

func (fs *FileSystem) setReadOnly(name string, ro bool, op string, code int, sentinel error) error {
	if err := fs.requireMounted(op, code); err != nil {
		return err
	}
	inodeBlock, found, err := fs.findInode(name)
	if err != nil || !found {
		return fsErr(op, sentinel, code)
	}
	err = fs.updateInode(inodeBlock, func(r *inodeRecord) {
		r.readOnly = ro
	})
	if err != nil {
		return fsErr(op, sentinel, code)
	}
	return nil
}

// FileInfo is the metadata readFileInfo reports about one open file.
type FileInfo struct {
	Name       string
	Size       int32
	CTime      time.Time
	MTime      time.Time
	ATime      time.Time
	ReadOnly   bool
	R, G, B    byte
}

// ReadFileInfo returns fd's metadata.
func (fs *FileSystem) ReadFileInfo(fd int) (FileInfo, error) {
	e, err := fs.entry(fd, "readinfo", codeReadInfo)
	if err != nil {
		return FileInfo{}, err
	}
	rec, err := fs.readInode(e.inodeBlock)
	if err != nil {
		return FileInfo{}, fsErr("readinfo", ErrReadInfo, codeReadInfo)
	}
	return FileInfo{
		Name:     rec.name(),
		Size:     rec.size,
		CTime:    time.Unix(int64(rec.ctime), 0),
		MTime:    time.Unix(int64(rec.mtime), 0),
		ATime:    time.Unix(int64(rec.atime), 0),
		ReadOnly: rec.readOnly,
		R:        rec.r,
		G:        rec.g,
		B:        rec.b,
	}, nil
}

// DirEntry is one line of a Readdir listing.
type DirEntry struct {
	Name     string
	Size     int32
	ReadOnly bool
}

// Readdir lists every file currently on the mounted volume.
func (fs *FileSystem) Readdir() ([]DirEntry, error) {
	if err := fs.requireMounted("readdir", codeReaddir); err != nil {
		return nil, err
	}

	var entries []DirEntry
	var buf block
	for i := int32(1); i < fs.totalBlocks; i++ {
		if err := fs.dev.ReadBlock(fs.handle, i, buf[:]); err != nil {
			continue
		}
		if buf.tag() != tagInode || !buf.isMagic() {
			continue
		}
		var rec inodeRecord
		rec.unmarshal(&buf)
		entries = append(entries, DirEntry{
			Name:     rec.name(),
			Size:     rec.size,
			ReadOnly: rec.readOnly,
		})
	}
	return entries, nil
}

func (fs *FileSystem) entry(fd int, op string, code int) (*openFileEntry, error) {
	if fd < 0 || fd >= maxOpenFiles || !fs.openFiles[fd].inUse {
		return nil, fsErr(op, ErrBadDescriptor, code)
	}
	return &fs.openFiles[fd], nil
}
