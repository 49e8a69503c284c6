package tinyfs

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// DisplayFragments writes a color-coded per-block map of the mounted
// device to w, in the same style as the legacy ANSI fragmentation display.
// When w is os.Stdout and it is not a terminal (e.g. piped to a file),
// escape codes are suppressed so the output stays readable as plain text.
func (fs *FileSystem) DisplayFragments(w io.Writer) error {
	if !fs.mounted {
		fmt.Fprintln(w, "No filesystem mounted.")
		return fsErr("displayfragments", ErrNotMounted, codeGeneric)
	}

	color := true
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	fmt.Fprintln(w, "--- File Color Mapping ---")
	for _, c := range fs.colors {
		printName(w, c, color)
	}

	fmt.Fprintln(w, "\n--- Disk Fragmentation Map ---")
	var b block
	for i := int32(0); i < fs.totalBlocks; i++ {
		if err := fs.dev.ReadBlock(fs.handle, i, b[:]); err != nil {
			continue
		}
		printBlockTag(w, fs, i, &b, color)
		if (i+1)%10 == 0 {
			fmt.Fprintln(w)
		}
	}
	fmt.Fprintln(w)
	return nil
}

func printName(w io.Writer, c *inodeColor, color bool) {
	if color {
		fmt.Fprintf(w, "  \033[1;38;2;%d;%d;%dm%s\033[0m\n", c.r, c.g, c.b, c.name)
		return
	}
	fmt.Fprintf(w, "  %s\n", c.name)
}

func printBlockTag(w io.Writer, fs *FileSystem, i int32, b *block, color bool) {
	switch {
	case i == 0:
		tagPrint(w, color, "1m", "[SUPERBLOCK]")
	case b.tag() == tagInode:
		var owner *inodeColor
		for _, c := range fs.colors {
			if c.inodeBlock == i {
				owner = c
				break
			}
		}
		if owner != nil {
			tagPrintRGB(w, color, "3", owner.r, owner.g, owner.b, "[INODE]")
		} else {
			tagPrint(w, color, "3m", "[UNKNOWN INODE]")
		}
	case b.tag() == tagData:
		if owner := fs.ownerOfDataBlock(i); owner != nil {
			tagPrintRGB(w, color, "1", owner.r, owner.g, owner.b, "[DATA]")
		} else {
			tagPrint(w, color, "1;36m", "[DATA]")
		}
	case b.tag() == tagFree:
		tagPrint(w, color, "1;31m", "[FREE]")
	default:
		tagPrint(w, color, "1;33m", "[UNKNOWN]")
	}
}

func tagPrint(w io.Writer, color bool, code, label string) {
	if color {
		fmt.Fprintf(w, "\033[%s%s\033[0m ", code, label)
		return
	}
	fmt.Fprintf(w, "%s ", label)
}

func tagPrintRGB(w io.Writer, color bool, style string, r, g, b byte, label string) {
	if color {
		fmt.Fprintf(w, "\033[%s;38;2;%d;%d;%dm%s\033[0m ", style, r, g, b, label)
		return
	}
	fmt.Fprintf(w, "%s ", label)
}
