package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"ai-docqa-be/pkg/utils"
)

// Document is one loaded source file. SourceID is the file's base name.
type Document struct {
	SourceID string
	Text     string
}

// Chunk is a bounded span of one document.
type Chunk struct {
	ID       string
	SourceID string
	Index    int
	Text     string
}

var supportedExt = map[string]struct{}{
	".txt": {},
	".md":  {},
}

var ErrUnsupportedFile = errors.New("unsupported file type")

func Supported(filename string) bool {
	_, ok := supportedExt[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// FolderLoader reads every supported file directly under Dir, sorted by name.
type FolderLoader struct {
	Dir string
}

func NewFolderLoader(dir string) *FolderLoader {
	return &FolderLoader{Dir: dir}
}

// Load returns no documents (and no error) when the folder does not exist.
func (l *FolderLoader) Load() ([]Document, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read docs dir %s: %w", l.Dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	docs := make([]Document, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(l.Dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		doc, err := FromBytes(name, data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// FromBytes builds a document from uploaded content. Directory parts of filename are dropped
// and blank content is rejected.
func FromBytes(filename string, data []byte) (Document, error) {
	name := filepath.Base(filepath.Clean("/" + filename))
	if name == "/" || name == "." || !Supported(name) {
		return Document{}, fmt.Errorf("%w: %q", ErrUnsupportedFile, filename)
	}
	if !utf8.Valid(data) {
		return Document{}, fmt.Errorf("%s is not valid UTF-8", name)
	}
	if strings.TrimSpace(string(data)) == "" {
		return Document{}, fmt.Errorf("%s has no text", name)
	}
	return Document{SourceID: name, Text: string(data)}, nil
}

// Split cuts every document into chunks, dropping blank ones.
func Split(docs []Document, chunkSize, overlap int) []Chunk {
	var out []Chunk
	for _, d := range docs {
		idx := 0
		for _, piece := range utils.SplitText(d.Text, chunkSize, overlap) {
			text := strings.TrimSpace(piece)
			if text == "" {
				continue
			}
			out = append(out, Chunk{
				ID:       fmt.Sprintf("%s#%d", d.SourceID, idx),
				SourceID: d.SourceID,
				Index:    idx,
				Text:     text,
			})
			idx++
		}
	}
	return out
}

// Save writes doc into dir under its SourceID, creating dir if needed. The returned
// function restores dir to its state before the call.
func Save(dir string, doc Document) (undo func() error, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create docs dir: %w", err)
	}
	path := filepath.Join(dir, doc.SourceID)
	previous, readErr := os.ReadFile(path)
	existed := readErr == nil
	if readErr != nil && !errors.Is(readErr, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", doc.SourceID, readErr)
	}
	if err := os.WriteFile(path, []byte(doc.Text), 0o644); err != nil {
		return nil, err
	}
	return func() error {
		if existed {
			return os.WriteFile(path, previous, 0o644)
		}
		return os.Remove(path)
	}, nil
}
