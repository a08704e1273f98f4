package writer

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"smart2onyma/internal/mapping"

	"go.uber.org/zap"
)

// File is a writer bound to an opened export file
type File struct {
	*Writer
	name string
	path string
	f    *os.File
	buf  *bufio.Writer
}

// Name returns the export file kind
func (f *File) Name() string {
	return f.name
}

// Path returns the file location on disk
func (f *File) Path() string {
	return f.path
}

// Close flushes buffered rows and closes the file
func (f *File) Close() error {
	if err := f.buf.Flush(); err != nil {
		f.f.Close()
		return fmt.Errorf("failed to flush %s: %w", f.path, err)
	}
	return f.f.Close()
}

// Exporter opens export files by kind under the data directory
type Exporter struct {
	dir    string
	maps   *mapping.Maps
	logger *zap.Logger
}

// NewExporter creates the data directory when missing
func NewExporter(dir string, maps *mapping.Maps, logger *zap.Logger) (*Exporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export dir %s: %w", dir, err)
	}
	return &Exporter{
		dir:    dir,
		maps:   maps,
		logger: logger,
	}, nil
}

// Dir returns the data directory
func (e *Exporter) Dir() string {
	return e.dir
}

// Path returns where an export file kind is written
func (e *Exporter) Path(name string) (string, error) {
	ef, err := e.maps.ExportFile(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(e.dir, ef.Filename), nil
}

// Open opens an export file for appending, or truncates it when appendMode is false
func (e *Exporter) Open(name string, appendMode bool) (*File, error) {
	ef, err := e.maps.ExportFile(name)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(e.dir, ef.Filename)

	flags := os.O_CREATE | os.O_WRONLY
	if appendMode {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	buf := bufio.NewWriter(f)
	return &File{
		Writer: New(buf, ef.Format),
		name:   name,
		path:   path,
		f:      f,
		buf:    buf,
	}, nil
}

// Clear truncates every configured export file, writing the header row when asked
func (e *Exporter) Clear(withHeader bool) error {
	for _, name := range e.maps.ExportFileNames() {
		f, err := e.Open(name, false)
		if err != nil {
			return err
		}
		if withHeader {
			if err := f.WriteHeader(); err != nil {
				f.Close()
				return fmt.Errorf("failed to write header of %s: %w", f.Path(), err)
			}
		}
		if err := f.Close(); err != nil {
			return err
		}
	}
	e.logger.Info("Export files cleared", zap.String("dir", e.dir), zap.Bool("header", withHeader))
	return nil
}

// Files is a set of opened export files closed together
type Files struct {
	files map[string]*File
}

// OpenAll opens the named export files in append mode
func (e *Exporter) OpenAll(names ...string) (*Files, error) {
	set := &Files{files: make(map[string]*File, len(names))}
	for _, name := range names {
		f, err := e.Open(name, true)
		if err != nil {
			set.Close()
			return nil, err
		}
		set.files[name] = f
	}
	return set, nil
}

// Get returns an opened file by kind, nil when it was not opened
func (s *Files) Get(name string) *File {
	return s.files[name]
}

// Close closes every file and returns the first error
func (s *Files) Close() error {
	var first error
	for _, f := range s.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
