package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/HUJOE003/TinyFS"
)

const usage = `tinyfs - TinyFS CLI tool

Usage:
  tinyfs mkfs <disk> <size>           Format <disk> as a new volume of <size> bytes
  tinyfs ls <disk>                    List files on <disk>
  tinyfs cat <disk> <name>            Print the contents of a file
  tinyfs put <disk> <name> <file>     Write <file>'s contents into <name>
  tinyfs rm <disk> <name>             Delete a file
  tinyfs info <disk> <name>           Show a file's metadata
  tinyfs frag <disk>                  Show the fragmentation map
  tinyfs defrag <disk>                Compact the volume
  tinyfs help                         Show this help message

Examples:
  tinyfs mkfs disk.img 10240
  tinyfs put disk.img hello hello.txt
  tinyfs cat disk.img hello
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "mkfs":
		err = cmdMkfs(os.Args[2:])
	case "ls":
		err = cmdLs(os.Args[2:])
	case "cat":
		err = cmdCat(os.Args[2:])
	case "put":
		err = cmdPut(os.Args[2:])
	case "rm":
		err = cmdRm(os.Args[2:])
	case "info":
		err = cmdInfo(os.Args[2:])
	case "frag":
		err = cmdFrag(os.Args[2:])
	case "defrag":
		err = cmdDefrag(os.Args[2:])
	case "help":
		fmt.Print(usage)
		return
	default:
		fmt.Printf("Error: unknown command %q\n", os.Args[1])
		fmt.Print(usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func cmdMkfs(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: tinyfs mkfs <disk> <size>")
	}
	size, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid size %q", args[1])
	}
	return tinyfs.New().Mkfs(args[0], size)
}

func mountArg(args []string, n int) (*tinyfs.FileSystem, error) {
	if len(args) < n {
		return nil, fmt.Errorf("not enough arguments")
	}
	fs := tinyfs.New()
	if err := fs.Mount(args[0]); err != nil {
		return nil, err
	}
	return fs, nil
}

func cmdLs(args []string) error {
	fs, err := mountArg(args, 1)
	if err != nil {
		return err
	}
	defer fs.Unmount()

	entries, err := fs.Readdir()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("(no files found)")
		return nil
	}
	for _, e := range entries {
		ro := ""
		if e.ReadOnly {
			ro = " (ro)"
		}
		fmt.Printf("%-8s %8d bytes%s\n", e.Name, e.Size, ro)
	}
	return nil
}

func cmdCat(args []string) error {
	fs, err := mountArg(args, 2)
	if err != nil {
		return err
	}
	defer fs.Unmount()

	fd, err := fs.Open(args[1])
	if err != nil {
		return err
	}
	defer fs.Close(fd)

	for {
		b, err := fs.ReadByte(fd)
		if err != nil {
			break
		}
		os.Stdout.Write([]byte{b})
	}
	return nil
}

func cmdPut(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: tinyfs put <disk> <name> <file>")
	}
	fs := tinyfs.New()
	if err := fs.Mount(args[0]); err != nil {
		return err
	}
	defer fs.Unmount()

	data, err := os.ReadFile(args[2])
	if err != nil {
		return err
	}

	fd, err := fs.Open(args[1])
	if err != nil {
		return err
	}
	defer fs.Close(fd)

	return fs.Write(fd, data)
}

func cmdRm(args []string) error {
	fs, err := mountArg(args, 2)
	if err != nil {
		return err
	}
	defer fs.Unmount()

	fd, err := fs.Open(args[1])
	if err != nil {
		return err
	}
	return fs.Delete(fd)
}

func cmdInfo(args []string) error {
	fs, err := mountArg(args, 2)
	if err != nil {
		return err
	}
	defer fs.Unmount()

	fd, err := fs.Open(args[1])
	if err != nil {
		return err
	}
	defer fs.Close(fd)

	info, err := fs.ReadFileInfo(fd)
	if err != nil {
		return err
	}
	fmt.Println("File Info:")
	fmt.Printf("  Name: %s\n", info.Name)
	fmt.Printf("  Size: %d bytes\n", info.Size)
	fmt.Printf("  Created: %s\n", info.CTime)
	fmt.Printf("  Modified: %s\n", info.MTime)
	fmt.Printf("  Last Accessed: %s\n", info.ATime)
	fmt.Printf("  Read-Only: %v\n", info.ReadOnly)
	return nil
}

func cmdFrag(args []string) error {
	fs, err := mountArg(args, 1)
	if err != nil {
		return err
	}
	defer fs.Unmount()
	return fs.DisplayFragments(os.Stdout)
}

func cmdDefrag(args []string) error {
	fs, err := mountArg(args, 1)
	if err != nil {
		return err
	}
	defer fs.Unmount()
	if err := fs.Defrag(); err != nil {
		return err
	}
	fmt.Println("Defragmentation complete.")
	return nil
}
