package export

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/conneroisu/blockwright/internal/errors"
)

// File suffixes of the three generated documents.
const (
	TemplateSuffix       = ".astro"
	InputsSuffix         = ".cloudcannon.inputs.yml"
	StructureValueSuffix = ".cloudcannon.structure-value.yml"
)

// File is one generated document.
type File struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Bundle is the output of one export.
type Bundle struct {
	Target         Resolved `json:"target"`
	Template       string   `json:"template"`
	Inputs         string   `json:"inputs"`
	StructureValue string   `json:"structureValue"`

	// modified is stamped on archive entries.
	modified time.Time
}

// Files returns the three documents named after the component.
func (b *Bundle) Files() []File {
	name := b.Target.Name

	return []File{
		{Name: name + TemplateSuffix, Content: b.Template},
		{Name: name + InputsSuffix, Content: b.Inputs},
		{Name: name + StructureValueSuffix, Content: b.StructureValue},
	}
}

// ArchiveName returns the file name of the zip bundle.
func (b *Bundle) ArchiveName() string {
	return b.Target.Name + ".zip"
}

// WriteArchive writes the documents as a zip archive to w.
func (b *Bundle) WriteArchive(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, f := range b.Files() {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Deflate,
			Modified: b.modified,
		})
		if err != nil {
			return archiveError(err)
		}
		if _, err := io.WriteString(fw, f.Content); err != nil {
			return archiveError(err)
		}
	}
	if err := zw.Close(); err != nil {
		return archiveError(err)
	}

	return nil
}

// WriteDir writes the documents into dir/<target path>, creating
// directories as needed, and returns the paths written.
func (b *Bundle) WriteDir(dir string) ([]string, error) {
	out := filepath.Join(dir, filepath.FromSlash(b.Target.Path))
	if err := os.MkdirAll(out, 0o755); err != nil {
		return nil, errors.NewIOError(errors.ErrCodeExportFailed, "failed to create output directory", err).
			WithContext("dir", out)
	}

	var written []string
	for _, f := range b.Files() {
		path := filepath.Join(out, f.Name)
		if err := os.WriteFile(path, []byte(f.Content), 0o644); err != nil {
			return written, errors.NewIOError(errors.ErrCodeExportFailed, "failed to write export file", err).
				WithContext("file", path)
		}
		written = append(written, path)
	}

	return written, nil
}

func archiveError(err error) error {
	return errors.NewExportError(errors.ErrCodeExportFailed, "failed to write archive", err)
}
