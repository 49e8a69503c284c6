package tinyfs

// inodeColor is one entry of the in-memory inode metadata cache
// (spec.md §4.8): a derived view used only to colorize the fragmentation
// display and to let the defragmenter remap in-memory indices. The on-disk
// inode is always authoritative; this cache is rebuilt from scratch on
// every Mount rather than trusted across a mount boundary.
type inodeColor struct {
	name           string
	inodeBlock     int32
	firstDataBlock int32
	r, g, b        byte
}

func (fs *FileSystem) addColor(inodeBlock int32, name string, firstDataBlock int32, r, g, b byte) {
	if fs.colors == nil {
		fs.colors = make(map[int32]*inodeColor)
	}
	if _, exists := fs.colors[inodeBlock]; exists {
		return
	}
	fs.colors[inodeBlock] = &inodeColor{
		name:           name,
		inodeBlock:     inodeBlock,
		firstDataBlock: firstDataBlock,
		r:              r, g: g, b: b,
	}
}

func (fs *FileSystem) removeColor(inodeBlock int32) {
	delete(fs.colors, inodeBlock)
}

func (fs *FileSystem) setColorFirstData(inodeBlock, firstDataBlock int32) {
	if c, ok := fs.colors[inodeBlock]; ok {
		c.firstDataBlock = firstDataBlock
	}
}

// ownerOfDataBlock finds which file's chain a data block belongs to, by
// walking every cached chain. Used only by the fragmentation display.
func (fs *FileSystem) ownerOfDataBlock(dataBlock int32) *inodeColor {
	if dataBlock == 0 {
		return nil
	}
	var b block
	for _, c := range fs.colors {
		cur := c.firstDataBlock
		for cur != 0 {
			if cur == dataBlock {
				return c
			}
			if err := fs.dev.ReadBlock(fs.handle, cur, b[:]); err != nil {
				break
			}
			cur = decodeInt32(b[offDataNext : offDataNext+4])
		}
	}
	return nil
}

// rebuildColorCache repopulates the metadata cache by scanning the device,
// the always-correct alternative to trying to keep it in lockstep across a
// mount boundary (spec.md §9).
func (fs *FileSystem) rebuildColorCache() {
	fs.colors = make(map[int32]*inodeColor)
	var b block
	for i := int32(1); i < fs.totalBlocks; i++ {
		if err := fs.dev.ReadBlock(fs.handle, i, b[:]); err != nil {
			continue
		}
		if b.tag() != tagInode || !b.isMagic() {
			continue
		}
		var rec inodeRecord
		rec.unmarshal(&b)
		fs.addColor(i, rec.name(), rec.firstDataBlock, rec.r, rec.g, rec.b)
	}
}
