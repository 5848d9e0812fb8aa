package drive

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// NewLocal returns a drive which exposes the given host directory.
func NewLocal(dir string) (*FSDrive, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to mount %s: %w", dir, err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("failed to mount %s: not a directory", dir)
	}
	return NewFSDrive(afero.NewBasePathFs(afero.NewOsFs(), dir), "local directory "+dir), nil
}

// NewMemory returns a scratch drive, held in RAM, which is lost on exit.
func NewMemory() *FSDrive {
	return NewFSDrive(afero.NewMemMapFs(), "memory drive")
}

// init registers our drive types, by name.
func init() {
	Register("local", func(arg string) (Drive, error) {
		return NewLocal(arg)
	})
	Register("memory", func(arg string) (Drive, error) {
		return NewMemory(), nil
	})
	Register("virtual", func(arg string) (Drive, error) {
		return NewVirtual(nil)
	})
}
