// Package artifact describes the downloadable release files and streams
// them from disk.
package artifact

import (
	"fmt"

	"github.com/wavesos/wavesos_web/internal/storage"
)

// Artifact is one downloadable release file.
type Artifact struct {
	// Route is the last path segment of /api/download/{artifact}.
	Route       string
	Filename    string
	FileType    storage.FileType
	ContentType string
	// Label names the file kind in user-facing messages.
	Label string
}

// NotFoundHint is the message returned to clients when the file is missing.
func (a Artifact) NotFoundHint() string {
	return fmt.Sprintf("%s file not found. Please place the %s file in the downloads folder.", a.Label, a.Label)
}

// Catalog is the static list of artifacts served by the site.
type Catalog []Artifact

// DefaultCatalog returns the installer ISO and the wrapper archive.
func DefaultCatalog() Catalog {
	return Catalog{
		{
			Route:       "iso",
			Filename:    "wavesinstaller_ultra.iso",
			FileType:    storage.FileTypeISO,
			ContentType: "application/octet-stream",
			Label:       "ISO",
		},
		{
			Route:       "wrapper",
			Filename:    "waves_wrapper.zip",
			FileType:    storage.FileTypeWrapper,
			ContentType: "application/zip",
			Label:       "ZIP",
		},
	}
}

// Lookup finds the artifact served under route.
func (c Catalog) Lookup(route string) (Artifact, bool) {
	for _, a := range c {
		if a.Route == route {
			return a, true
		}
	}

	return Artifact{}, false
}

// Seeds lists the records a volatile registry starts with.
func (c Catalog) Seeds() []storage.NewDownload {
	seeds := make([]storage.NewDownload, 0, len(c))
	for _, a := range c {
		seeds = append(seeds, storage.NewDownload{Filename: a.Filename, FileType: a.FileType})
	}

	return seeds
}
