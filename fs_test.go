package tinyfs_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/HUJOE003/TinyFS"
)

func newVolume(t *testing.T, blocks int) (*tinyfs.FileSystem, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "disk.img")
	fs := tinyfs.New()
	if err := fs.Mkfs(path, blocks*tinyfs.BlockSize); err != nil {
		t.Fatalf("Mkfs failed: %s", err)
	}
	return fs, path
}

func mustMount(t *testing.T, blocks int) *tinyfs.FileSystem {
	t.Helper()
	fs, path := newVolume(t, blocks)
	if err := fs.Mount(path); err != nil {
		t.Fatalf("Mount failed: %s", err)
	}
	return fs
}

func TestMkfsRejectsBadSizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	fs := tinyfs.New()

	for _, size := range []int{0, 255, 257} {
		err := fs.Mkfs(path, size)
		if err == nil {
			t.Errorf("Mkfs(size=%d) succeeded, want error", size)
			continue
		}
		code := err.(*tinyfs.FSError).Code()
		if code != -2 {
			t.Errorf("Mkfs(size=%d) code = %d, want -2", size, code)
		}
	}
}

func TestMkfsLeavesVolumeUnmounted(t *testing.T) {
	fs, _ := newVolume(t, 4)
	if _, err := fs.Readdir(); err == nil {
		t.Error("Readdir succeeded on a freshly-Mkfs'd, unmounted FileSystem")
	}
}

func TestMountTwiceFails(t *testing.T) {
	fs, path := newVolume(t, 4)
	if err := fs.Mount(path); err != nil {
		t.Fatalf("first Mount failed: %s", err)
	}
	defer fs.Unmount()

	if err := fs.Mount(path); err == nil {
		t.Error("second Mount succeeded, want error")
	}
}

func TestUnmountResetsState(t *testing.T) {
	fs := mustMount(t, 4)
	if err := fs.Unmount(); err != nil {
		t.Fatalf("Unmount failed: %s", err)
	}
	if err := fs.Unmount(); err == nil {
		t.Error("second Unmount succeeded, want error")
	}
	if _, err := fs.Open("x"); err == nil {
		t.Error("Open succeeded after Unmount")
	}
}

func TestOpenRejectsLongNames(t *testing.T) {
	fs := mustMount(t, 10)
	defer fs.Unmount()

	if _, err := fs.Open("123456789"); err == nil {
		t.Error("Open with a 9-byte name succeeded, want error")
	} else if code := err.(*tinyfs.FSError).Code(); code != -5 {
		t.Errorf("code = %d, want -5", code)
	}
}

func TestOpenCreatesThenReopensSameFile(t *testing.T) {
	fs := mustMount(t, 10)
	defer fs.Unmount()

	fd1, err := fs.Open("a")
	if err != nil {
		t.Fatalf("Open #1 failed: %s", err)
	}
	if err := fs.Write(fd1, []byte("hi")); err != nil {
		t.Fatalf("Write failed: %s", err)
	}
	fs.Close(fd1)

	fd2, err := fs.Open("a")
	if err != nil {
		t.Fatalf("Open #2 failed: %s", err)
	}
	defer fs.Close(fd2)

	b, err := fs.ReadByte(fd2)
	if err != nil {
		t.Fatalf("ReadByte failed: %s", err)
	}
	if b != 'h' {
		t.Errorf("first byte = %q, want 'h'", b)
	}
}

func TestCloseInvalidatesDescriptor(t *testing.T) {
	fs := mustMount(t, 10)
	defer fs.Unmount()

	fd, _ := fs.Open("a")
	if err := fs.Close(fd); err != nil {
		t.Fatalf("Close failed: %s", err)
	}
	if err := fs.Close(fd); err == nil {
		t.Error("Close on an already-closed fd succeeded, want error")
	}
	if _, err := fs.ReadByte(fd); err == nil {
		t.Error("ReadByte on a closed fd succeeded, want error")
	}
}

func TestSeekThenReadByteAtEOFFails(t *testing.T) {
	fs := mustMount(t, 10)
	defer fs.Unmount()

	fd, _ := fs.Open("a")
	defer fs.Close(fd)
	fs.Write(fd, []byte("abc"))

	if err := fs.Seek(fd, 3); err != nil {
		t.Fatalf("Seek to file_size failed: %s", err)
	}
	if _, err := fs.ReadByte(fd); err == nil {
		t.Error("ReadByte at EOF succeeded, want error")
	} else if code := err.(*tinyfs.FSError).Code(); code != -8 {
		t.Errorf("code = %d, want -8", code)
	}
}

func TestWriteByteAtFileSizeFails(t *testing.T) {
	fs := mustMount(t, 10)
	defer fs.Unmount()

	fd, _ := fs.Open("a")
	defer fs.Close(fd)
	fs.Write(fd, []byte("abc"))

	if err := fs.WriteByte(fd, 3, 'x'); err == nil {
		t.Error("WriteByte at file_size succeeded, want error")
	} else if code := err.(*tinyfs.FSError).Code(); code != -7 {
		t.Errorf("code = %d, want -7", code)
	}
}

func TestDeleteThenOperationsFail(t *testing.T) {
	fs := mustMount(t, 10)
	defer fs.Unmount()

	fd, _ := fs.Open("a")
	fs.Write(fd, []byte("x"))

	if err := fs.Delete(fd); err != nil {
		t.Fatalf("Delete failed: %s", err)
	}
	if _, err := fs.ReadByte(fd); err == nil {
		t.Error("ReadByte on a deleted fd succeeded, want error")
	}

	entries, err := fs.Readdir()
	if err != nil {
		t.Fatalf("Readdir failed: %s", err)
	}
	for _, e := range entries {
		if e.Name == "a" {
			t.Error("Readdir still lists a deleted file")
		}
	}
}

func TestMakeROBlocksWriteAndDelete(t *testing.T) {
	fs := mustMount(t, 10)
	defer fs.Unmount()

	fd, _ := fs.Open("a")
	defer fs.Close(fd)
	fs.Write(fd, []byte("x"))

	if err := fs.MakeRO("a"); err != nil {
		t.Fatalf("MakeRO failed: %s", err)
	}
	if err := fs.Write(fd, []byte("y")); err == nil {
		t.Error("Write to a read-only file succeeded, want error")
	}
	if err := fs.Delete(fd); err == nil {
		t.Error("Delete of a read-only file succeeded, want error")
	}

	if err := fs.MakeRW("a"); err != nil {
		t.Fatalf("MakeRW failed: %s", err)
	}
	if err := fs.Write(fd, []byte("y")); err != nil {
		t.Errorf("Write after MakeRW failed: %s", err)
	}
}

func TestRenameRejectsLongNames(t *testing.T) {
	fs := mustMount(t, 10)
	defer fs.Unmount()

	fd, _ := fs.Open("a")
	defer fs.Close(fd)

	if err := fs.Rename(fd, "toolongname"); err == nil {
		t.Error("Rename with a 11-byte name succeeded, want error")
	}
}

func TestRenameUpdatesLookup(t *testing.T) {
	fs := mustMount(t, 10)
	defer fs.Unmount()

	fd, _ := fs.Open("a")
	defer fs.Close(fd)

	if err := fs.Rename(fd, "b"); err != nil {
		t.Fatalf("Rename failed: %s", err)
	}

	if _, err := fs.Open("a"); err != nil {
		t.Fatalf("Open after rename away from 'a' failed: %s", err)
	}

	info, err := fs.ReadFileInfo(fd)
	if err != nil {
		t.Fatalf("ReadFileInfo failed: %s", err)
	}
	if info.Name != "b" {
		t.Errorf("Name after rename = %q, want %q", info.Name, "b")
	}
}

func TestFileDescriptorBoundsRejected(t *testing.T) {
	fs := mustMount(t, 10)
	defer fs.Unmount()

	if _, err := fs.ReadByte(-1); err == nil {
		t.Error("ReadByte(-1) succeeded, want error")
	}
	if _, err := fs.ReadByte(20); err == nil {
		t.Error("ReadByte(20) on a 20-slot table succeeded, want error")
	}
}

func TestReaddirListsOpenAndClosedFiles(t *testing.T) {
	fs := mustMount(t, 10)
	defer fs.Unmount()

	// "a" and "b" are closed again; "c" stays open while Readdir runs.
	for _, name := range []string{"a", "b", "c"} {
		fd, err := fs.Open(name)
		if err != nil {
			t.Fatalf("Open(%q) failed: %s", name, err)
		}
		if name == "c" {
			defer fs.Close(fd)
		} else {
			fs.Close(fd)
		}
	}

	entries, err := fs.Readdir()
	if err != nil {
		t.Fatalf("Readdir failed: %s", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Readdir returned %d entries, want 3", len(entries))
	}
}

func TestEndToEndWriteDefragReadBack(t *testing.T) {
	fs := mustMount(t, 30)
	defer fs.Unmount()

	names := []string{"one", "two", "three"}
	contents := map[string][]byte{
		"one":   []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		"two":   []byte("b"),
		"three": []byte("ccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc"),
	}

	for _, n := range names {
		fd, err := fs.Open(n)
		if err != nil {
			t.Fatalf("Open(%q) failed: %s", n, err)
		}
		if err := fs.Write(fd, contents[n]); err != nil {
			t.Fatalf("Write(%q) failed: %s", n, err)
		}
		fs.Close(fd)
	}

	// Delete the middle file to fragment the device, then defrag.
	fd, _ := fs.Open("two")
	if err := fs.Delete(fd); err != nil {
		t.Fatalf("Delete failed: %s", err)
	}

	if err := fs.Defrag(); err != nil {
		t.Fatalf("Defrag failed: %s", err)
	}

	for _, n := range []string{"one", "three"} {
		fd, err := fs.Open(n)
		if err != nil {
			t.Fatalf("Open(%q) after defrag failed: %s", n, err)
		}
		for i := 0; i < len(contents[n]); i++ {
			b, err := fs.ReadByte(fd)
			if err != nil {
				t.Fatalf("ReadByte(%q, %d) after defrag failed: %s", n, i, err)
			}
			if b != contents[n][i] {
				t.Fatalf("%q byte %d = %q, want %q after defrag", n, i, b, contents[n][i])
			}
		}
		fs.Close(fd)
	}
}

func TestDefragIsIdempotent(t *testing.T) {
	fs := mustMount(t, 20)
	defer fs.Unmount()

	fd, _ := fs.Open("a")
	fs.Write(fd, []byte("hello"))
	fs.Close(fd)

	if err := fs.Defrag(); err != nil {
		t.Fatalf("first Defrag failed: %s", err)
	}
	var once bytes.Buffer
	if err := fs.Dump(&once, tinyfs.SnapshotRaw); err != nil {
		t.Fatalf("Dump after first Defrag failed: %s", err)
	}
	if err := fs.Defrag(); err != nil {
		t.Fatalf("second Defrag failed: %s", err)
	}
	var twice bytes.Buffer
	if err := fs.Dump(&twice, tinyfs.SnapshotRaw); err != nil {
		t.Fatalf("Dump after second Defrag failed: %s", err)
	}
	if !bytes.Equal(once.Bytes(), twice.Bytes()) {
		t.Error("second Defrag changed the disk image")
	}

	fd, err := fs.Open("a")
	if err != nil {
		t.Fatalf("Open after double defrag failed: %s", err)
	}
	defer fs.Close(fd)
	b, err := fs.ReadByte(fd)
	if err != nil || b != 'h' {
		t.Errorf("content lost across double defrag: b=%q err=%s", b, err)
	}
}
