// Package static holds the files which are shipped within the binary,
// and shown upon the internal Z: drive.
package static

import (
	"embed"
	"io/fs"
)

//go:embed Z/*
var content embed.FS

// GetContent returns the embedded filesystem we store within this package.
func GetContent() embed.FS {
	return content
}

// GetDrive returns the files of the named drive, suitable for
// drive.NewVirtual.
func GetDrive(letter string) (fs.FS, error) {
	return fs.Sub(content, letter)
}
