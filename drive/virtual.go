package drive

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/skx/dosfs/dosname"
	"github.com/spf13/afero"
)

// VirtualLabel is the volume label of the internal drive.
const VirtualLabel = "DOSBOX"

// virtualFiles holds the files registered for the internal drive.
var virtualFiles = make(map[string][]byte)

// RegisterFile adds a file to those every new virtual drive contains.
func RegisterFile(name string, data []byte) {
	virtualFiles[strings.ToUpper(name)] = data
}

// RemoveFile removes a file registered with RegisterFile.
func RemoveFile(name string) {
	delete(virtualFiles, strings.ToUpper(name))
}

// NewVirtual returns the internal, read-only, drive.  It contains the
// files at the top-level of the given file-system, if any, and those
// registered with RegisterFile.
//
// Every file has the same date, and the drive is always full.
func NewVirtual(src fs.FS) (*FSDrive, error) {
	mem := afero.NewMemMapFs()

	files := make(map[string][]byte)
	if src != nil {
		entries, err := fs.ReadDir(src, ".")
		if err != nil {
			return nil, fmt.Errorf("failed to read virtual files: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			data, err := fs.ReadFile(src, e.Name())
			if err != nil {
				return nil, fmt.Errorf("failed to read virtual file %s: %w", e.Name(), err)
			}
			files[strings.ToUpper(e.Name())] = data
		}
	}
	for name, data := range virtualFiles {
		files[name] = data
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := afero.WriteFile(mem, "/"+name, files[name], 0444); err != nil {
			return nil, fmt.Errorf("failed to create virtual file %s: %w", name, err)
		}
	}

	d := NewFSDrive(afero.NewReadOnlyFs(mem), "Internal Virtual Drive")
	d.label = VirtualLabel
	d.fileInfo = 0x40
	d.fixedDate = dosname.PackDate(2002, 10, 1)
	d.fixedTime = dosname.PackTime(12, 34, 56)
	d.alloc = Allocation{
		BytesPerSector:    512,
		SectorsPerCluster: 32,
		TotalClusters:     32765,
		FreeClusters:      0,
	}
	return d, nil
}
