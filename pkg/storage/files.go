package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data next to path and renames it into place, so a
// reader never sees a partially written document.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return WriteDocumentsAtomic([]Document{{Path: path, Data: data, Perm: perm}})
}

// MarshalDocument renders v as two-space indented JSON with a trailing newline.
func MarshalDocument(v interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// WriteJSONAtomic marshals v and writes it with WriteFileAtomic.
func WriteJSONAtomic(path string, v interface{}) error {
	data, err := MarshalDocument(v)
	if err != nil {
		return fmt.Errorf("could not encode %s: %w", filepath.Base(path), err)
	}
	return WriteFileAtomic(path, data, 0o644)
}

// Document is one file of a staged write.
type Document struct {
	Path string
	Data []byte
	Perm os.FileMode
}

// WriteDocumentsAtomic stages every document next to its target before
// renaming any of them, so a failure while writing leaves all targets
// untouched. Only a failing rename can leave the set partially replaced.
func WriteDocumentsAtomic(docs []Document) error {
	staged := make([]string, 0, len(docs))
	defer func() {
		for _, tmp := range staged {
			os.Remove(tmp)
		}
	}()

	for _, d := range docs {
		tmp, err := stageFile(d)
		if err != nil {
			return err
		}
		staged = append(staged, tmp)
	}
	for i, d := range docs {
		if err := os.Rename(staged[i], d.Path); err != nil {
			return fmt.Errorf("could not replace %s: %w", d.Path, err)
		}
	}
	return nil
}

func stageFile(d Document) (string, error) {
	dir := filepath.Dir(d.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("could not create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(d.Path)+".*.tmp")
	if err != nil {
		return "", err
	}
	name := tmp.Name()
	if _, err := tmp.Write(d.Data); err != nil {
		tmp.Close()
		os.Remove(name)
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(name)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	perm := d.Perm
	if perm == 0 {
		perm = 0o644
	}
	if err := os.Chmod(name, perm); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}
