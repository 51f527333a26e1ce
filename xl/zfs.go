package xl

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Storage receives the parts of a workbook as they are written.
type Storage interface {
	WriteBlob(path string, blob []byte) error
}

// DirStorage lays the parts out as plain files below Dir, which is handy
// for looking at the generated XML.
type DirStorage struct {
	Dir string
}

// NewDirStorage writes parts below dir.
func NewDirStorage(dir string) *DirStorage {
	return &DirStorage{
		Dir: dir,
	}
}

func (ds *DirStorage) WriteBlob(path string, blob []byte) error {
	path = strings.TrimPrefix(path, "/")
	fn := filepath.Join(ds.Dir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(fn), 0o777); err != nil {
		return err
	}
	return os.WriteFile(fn, blob, 0o666)
}

// ZipStorage packs the parts into an .xlsx archive. Entries carry a fixed
// timestamp, so equal workbooks give equal bytes.
type ZipStorage struct {
	z     *zip.Writer
	names map[string]struct{}
}

var zipEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// NewZipStorage writes parts as zip entries to out. Close it to finish
// the archive.
func NewZipStorage(out io.Writer) *ZipStorage {
	return &ZipStorage{z: zip.NewWriter(out), names: map[string]struct{}{}}
}

func (zs *ZipStorage) WriteBlob(path string, blob []byte) error {
	path = strings.TrimPrefix(path, "/")
	key := strings.ToLower(path)
	if _, dup := zs.names[key]; dup {
		return fmt.Errorf("duplicate archive entry %s", path)
	}
	zs.names[key] = struct{}{}
	f, err := zs.z.CreateHeader(&zip.FileHeader{
		Name:     path,
		Method:   zip.Deflate,
		Modified: zipEpoch,
	})
	if err != nil {
		return err
	}
	_, err = f.Write(blob)
	return err
}

// Close writes the central directory. The archive is unreadable without it.
func (zs *ZipStorage) Close() error {
	return zs.z.Close()
}
