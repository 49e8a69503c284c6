package tinyfs

import (
	"io"
	"os"
)

// maxDeviceHandles bounds the number of virtual disks a single BlockDevice
// can have open at once, mirroring the original libDisk's fixed disk table.
const maxDeviceHandles = 10

type deviceSlot struct {
	f      *os.File
	blocks int32 // total block count
	open   bool
}

// BlockDevice provides fixed-size block read/write over host-backed files.
// It is the lowest layer of TinyFS: a FileSystem owns exactly one open
// handle on one BlockDevice for the lifetime of a mount, but the device
// itself can hold up to maxDeviceHandles open files, opaque small integers
// indexing into its slot table.
type BlockDevice struct {
	slots [maxDeviceHandles]deviceSlot
}

// NewBlockDevice returns an empty device table with no open handles.
func NewBlockDevice() *BlockDevice {
	return &BlockDevice{}
}

// Open opens a virtual disk backed by the host file at path. If size is 0,
// it opens an existing file and measures its length (which must be a
// multiple of BlockSize); BlockCount reports the result in blocks. Otherwise it truncates the file and zero-fills
// floor(size/BlockSize)*BlockSize bytes, discarding any existing content.
func (d *BlockDevice) Open(path string, size int) (int, error) {
	slot := -1
	for i := range d.slots {
		if !d.slots[i].open {
			slot = i
			break
		}
	}
	if slot == -1 {
		return 0, diskErr("open", ErrDiskHandle, codeDiskHandle)
	}

	if size != 0 {
		if size < BlockSize {
			return 0, diskErr("open", ErrDiskInvalid, codeDiskInvalid)
		}
		blockCount := size / BlockSize
		diskSize := blockCount * BlockSize

		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return 0, diskErr("open", ErrDiskIO, codeDiskIO)
		}

		zeros := make([]byte, BlockSize)
		for i := 0; i < blockCount; i++ {
			if _, err := f.Write(zeros); err != nil {
				f.Close()
				return 0, diskErr("open", ErrDiskIO, codeDiskIO)
			}
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return 0, diskErr("open", ErrDiskIO, codeDiskIO)
		}

		d.slots[slot] = deviceSlot{f: f, blocks: int32(diskSize / BlockSize), open: true}
		return slot, nil
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return 0, diskErr("open", ErrDiskIO, codeDiskIO)
	}
	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return 0, diskErr("open", ErrDiskIO, codeDiskIO)
	}
	if end%BlockSize != 0 {
		f.Close()
		return 0, diskErr("open", ErrDiskInvalid, codeDiskInvalid)
	}

	d.slots[slot] = deviceSlot{f: f, blocks: int32(end / BlockSize), open: true}
	return slot, nil
}

// Close releases a handle's slot, closing the underlying host file.
func (d *BlockDevice) Close(handle int) error {
	if err := d.check(handle); err != nil {
		return err
	}
	s := &d.slots[handle]
	err := s.f.Close()
	*s = deviceSlot{}
	if err != nil {
		return diskErr("close", ErrDiskIO, codeDiskIO)
	}
	return nil
}

// BlockCount reports the total number of blocks on the device behind handle.
func (d *BlockDevice) BlockCount(handle int) (int32, error) {
	if err := d.check(handle); err != nil {
		return 0, err
	}
	return d.slots[handle].blocks, nil
}

// ReadBlock reads the block at blockIndex into buf, which must be exactly
// BlockSize bytes long.
func (d *BlockDevice) ReadBlock(handle int, blockIndex int32, buf []byte) error {
	if err := d.check(handle); err != nil {
		return err
	}
	s := &d.slots[handle]
	if blockIndex < 0 || blockIndex >= s.blocks {
		return diskErr("read", ErrDiskInvalid, codeDiskInvalid)
	}
	off := int64(blockIndex) * BlockSize
	if _, err := s.f.Seek(off, io.SeekStart); err != nil {
		return diskErr("read", ErrDiskIO, codeDiskIO)
	}
	if _, err := io.ReadFull(s.f, buf[:BlockSize]); err != nil {
		return diskErr("read", ErrDiskIO, codeDiskIO)
	}
	return nil
}

// WriteBlock writes buf (exactly BlockSize bytes) to blockIndex and flushes
// it to the host file before returning.
func (d *BlockDevice) WriteBlock(handle int, blockIndex int32, buf []byte) error {
	if err := d.check(handle); err != nil {
		return err
	}
	s := &d.slots[handle]
	if blockIndex < 0 || blockIndex >= s.blocks {
		return diskErr("write", ErrDiskInvalid, codeDiskInvalid)
	}
	off := int64(blockIndex) * BlockSize
	if _, err := s.f.Seek(off, io.SeekStart); err != nil {
		return diskErr("write", ErrDiskIO, codeDiskIO)
	}
	if _, err := s.f.Write(buf[:BlockSize]); err != nil {
		return diskErr("write", ErrDiskIO, codeDiskIO)
	}
	if err := s.f.Sync(); err != nil {
		return diskErr("write", ErrDiskIO, codeDiskIO)
	}
	return nil
}

func (d *BlockDevice) check(handle int) error {
	if handle < 0 || handle >= maxDeviceHandles || !d.slots[handle].open {
		return diskErr("handle", ErrDiskHandle, codeDiskHandle)
	}
	return nil
}
