//go:build fuse

package tinyfs

import (
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/hanwen/go-fuse/v2/fuse/nodefs"
	"github.com/hanwen/go-fuse/v2/fuse/pathfs"
)

// FuseFS exposes a mounted *FileSystem as a flat read/write directory,
// mirroring the shape of the teacher's own (also build-tag-gated)
// inode_fuse.go: embed the library's defaults and override only the
// handful of methods the flat TinyFS namespace actually needs.
type FuseFS struct {
	pathfs.FileSystem
	tfs *FileSystem
}

// NewFuseFS wraps a mounted FileSystem for use with go-fuse's pathfs server.
func NewFuseFS(tfs *FileSystem) *FuseFS {
	return &FuseFS{FileSystem: pathfs.NewDefaultFileSystem(), tfs: tfs}
}

func (f *FuseFS) GetAttr(name string, context *fuse.Context) (*fuse.Attr, fuse.Status) {
	if name == "" {
		return &fuse.Attr{Mode: fuse.S_IFDIR | 0o755}, fuse.OK
	}

	fd, err := f.tfs.Open(name)
	if err != nil {
		return nil, fuse.ENOENT
	}
	defer f.tfs.Close(fd)

	info, err := f.tfs.ReadFileInfo(fd)
	if err != nil {
		return nil, fuse.EIO
	}

	mode := uint32(fuse.S_IFREG | 0o644)
	if info.ReadOnly {
		mode = fuse.S_IFREG | 0o444
	}
	return &fuse.Attr{
		Mode:  mode,
		Size:  uint64(info.Size),
		Mtime: uint64(info.MTime.Unix()),
		Atime: uint64(info.ATime.Unix()),
		Ctime: uint64(info.CTime.Unix()),
	}, fuse.OK
}

func (f *FuseFS) OpenDir(name string, context *fuse.Context) ([]fuse.DirEntry, fuse.Status) {
	if name != "" {
		return nil, fuse.ENOENT
	}
	entries, err := f.tfs.Readdir()
	if err != nil {
		return nil, fuse.EIO
	}
	out := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, fuse.DirEntry{Name: e.Name, Mode: fuse.S_IFREG})
	}
	return out, fuse.OK
}

func (f *FuseFS) Open(name string, flags uint32, context *fuse.Context) (nodefs.File, fuse.Status) {
	fd, err := f.tfs.Open(name)
	if err != nil {
		return nil, fuse.ENOENT
	}
	return &fuseFile{File: nodefs.NewDefaultFile(), tfs: f.tfs, fd: fd}, fuse.OK
}

func (f *FuseFS) Create(name string, flags uint32, mode uint32, context *fuse.Context) (nodefs.File, fuse.Status) {
	return f.Open(name, flags, context)
}

func (f *FuseFS) Unlink(name string, context *fuse.Context) fuse.Status {
	fd, err := f.tfs.Open(name)
	if err != nil {
		return fuse.ENOENT
	}
	defer f.tfs.Close(fd)
	if err := f.tfs.Delete(fd); err != nil {
		return fuse.EIO
	}
	return fuse.OK
}

func (f *FuseFS) Rename(oldName, newName string, context *fuse.Context) fuse.Status {
	fd, err := f.tfs.Open(oldName)
	if err != nil {
		return fuse.ENOENT
	}
	defer f.tfs.Close(fd)
	if err := f.tfs.Rename(fd, newName); err != nil {
		return fuse.EIO
	}
	return fuse.OK
}

func (f *FuseFS) Truncate(name string, size uint64, context *fuse.Context) fuse.Status {
	fd, err := f.tfs.Open(name)
	if err != nil {
		return fuse.ENOENT
	}
	defer f.tfs.Close(fd)
	if err := f.tfs.Write(fd, make([]byte, size)); err != nil {
		return fuse.EIO
	}
	return fuse.OK
}

// fuseFile adapts a TinyFS descriptor to go-fuse's nodefs.File, again by
// embedding the library default and overriding only what's needed.
type fuseFile struct {
	nodefs.File
	tfs *FileSystem
	fd  int
}

func (f *fuseFile) Read(dest []byte, off int64) (fuse.ReadResult, fuse.Status) {
	if err := f.tfs.Seek(f.fd, int32(off)); err != nil {
		return nil, fuse.OK
	}
	n := 0
	for n < len(dest) {
		b, err := f.tfs.ReadByte(f.fd)
		if err != nil {
			break
		}
		dest[n] = b
		n++
	}
	return fuse.ReadResultData(dest[:n]), fuse.OK
}

func (f *fuseFile) Write(data []byte, off int64) (uint32, fuse.Status) {
	if off != 0 {
		info, err := f.tfs.ReadFileInfo(f.fd)
		if err != nil {
			return 0, fuse.EIO
		}
		size := int(info.Size)
		end := len(data) + int(off)
		if end < size {
			end = size
		}
		merged := make([]byte, end)
		if err := f.tfs.Seek(f.fd, 0); err != nil {
			return 0, fuse.EIO
		}
		for i := 0; i < size; i++ {
			b, err := f.tfs.ReadByte(f.fd)
			if err != nil {
				return 0, fuse.EIO
			}
			merged[i] = b
		}
		copy(merged[off:], data)
		if err := f.tfs.Write(f.fd, merged); err != nil {
			return 0, fuse.EIO
		}
		return uint32(len(data)), fuse.OK
	}
	if err := f.tfs.Write(f.fd, data); err != nil {
		return 0, fuse.EIO
	}
	return uint32(len(data)), fuse.OK
}

func (f *fuseFile) Flush() fuse.Status {
	return fuse.OK
}

func (f *fuseFile) Release() {
	f.tfs.Close(f.fd)
}
