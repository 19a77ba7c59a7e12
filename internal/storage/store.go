package storage

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultExtension = ".yml"

// DocumentStore reads and writes Documents as YAML files beneath a root
// directory. Documents are addressed by slash separated names relative to the
// root, without the file extension (e.g. "group/owner").
type DocumentStore struct {
	root string
	ext  string
}

func NewDocumentStore(root string) *DocumentStore {
	return &DocumentStore{
		root: root,
		ext:  DefaultExtension,
	}
}

func (s *DocumentStore) Root() string {
	return s.root
}

// Exists reports whether the named document is present on disk.
func (s *DocumentStore) Exists(name string) bool {
	info, err := os.Stat(s.filePath(name))
	return err == nil && !info.IsDir()
}

// Load reads the named document. A missing document yields an error wrapping
// fs.ErrNotExist.
func (s *DocumentStore) Load(name string) (Document, error) {
	file, err := os.Open(s.filePath(name))
	if err != nil {
		return nil, fmt.Errorf("opening document: %w", err)
	}

	// Ignoring close error - file is read-only, error is not actionable
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}

	var raw map[string]any
	err = yaml.Unmarshal(data, &raw)
	if err != nil {
		return nil, fmt.Errorf("unmarshalling document: %w", err)
	}
	if raw == nil {
		return NewDocument(), nil
	}

	return Document(normalize(raw).(map[string]any)), nil
}

// Save writes the named document, creating parent directories as needed.
func (s *DocumentStore) Save(name string, doc Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshalling yaml: %w", err)
	}

	p := s.filePath(name)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	return atomicWrite(p, data, 0644)
}

// Delete removes the named document. Deleting a missing document is not an error.
func (s *DocumentStore) Delete(name string) error {
	err := os.Remove(s.filePath(name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing document: %w", err)
	}
	return nil
}

// Rename moves a document. It refuses to replace an existing target.
func (s *DocumentStore) Rename(from, to string) error {
	if s.Exists(to) {
		return fmt.Errorf("renaming %q: target %q already exists", from, to)
	}
	if err := os.Rename(s.filePath(from), s.filePath(to)); err != nil {
		return fmt.Errorf("renaming %q to %q: %w", from, to, err)
	}
	return nil
}

// List returns the document names and sub-directory names directly inside
// dir. Files without the store's extension are ignored. A missing directory
// yields an error wrapping fs.ErrNotExist.
func (s *DocumentStore) List(dir string) (docs []string, dirs []string, err error) {
	entries, err := os.ReadDir(filepath.Join(s.root, filepath.FromSlash(dir)))
	if err != nil {
		return nil, nil, fmt.Errorf("listing %q: %w", dir, err)
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			dirs = append(dirs, path.Join(dir, name))
			continue
		}

		if filepath.Ext(name) != s.ext {
			continue
		}
		docs = append(docs, path.Join(dir, strings.TrimSuffix(name, s.ext)))
	}

	return docs, dirs, nil
}

func (s *DocumentStore) filePath(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name)+s.ext)
}

// atomicWrite writes data to a temp file then renames it to the target path.
// This prevents partial or empty files if the process is interrupted.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		if removeErr := os.Remove(tmp); removeErr != nil {
			slog.Warn("failed to remove temp file after rename failure", "path", tmp, "error", removeErr)
		}
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
