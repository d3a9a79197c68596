package corpus

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	verrors "github.com/veracite/veracite/internal/errors"
)

// SidecarFileName is the optional per-corpus metadata file.
const SidecarFileName = "corpus.yaml"

// sidecar mirrors the corpus.yaml layout.
type sidecar struct {
	// Scope is the default scope for every document in the corpus.
	Scope     string                    `yaml:"scope"`
	Documents map[string]sidecarEntry   `yaml:"documents"`
}

type sidecarEntry struct {
	Title  string `yaml:"title"`
	Client string `yaml:"client"`
	Matter string `yaml:"matter"`
	Scope  string `yaml:"scope"`
	Pages  int    `yaml:"pages"`
}

// DirSource reads .txt and .md documents under a corpus directory.
// Document IDs are derived from the relative path, so they survive
// re-scans and process restarts.
type DirSource struct {
	root string

	mu     sync.RWMutex
	byID   map[string]DocumentInfo
	byPath map[string]string
}

// NewDirSource creates a source over the given corpus directory.
func NewDirSource(root string) *DirSource {
	return &DirSource{
		root:   root,
		byID:   make(map[string]DocumentInfo),
		byPath: make(map[string]string),
	}
}

// DocumentID derives the stable ID for a corpus-relative path.
func DocumentID(relPath string) string {
	h := sha256.Sum256([]byte(filepath.ToSlash(relPath)))
	return hex.EncodeToString(h[:8])
}

// IsDocument reports whether the file name is an indexable document.
func IsDocument(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".txt" || ext == ".md"
}

// Documents scans the corpus directory, merges sidecar metadata, and
// refreshes the ID index.
func (d *DirSource) Documents(ctx context.Context) ([]DocumentInfo, error) {
	meta, err := d.loadSidecar()
	if err != nil {
		return nil, err
	}

	var infos []DocumentInfo
	err = filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if entry.IsDir() {
			// Skip hidden directories such as the data dir.
			if path != d.root && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsDocument(entry.Name()) {
			return nil
		}

		rel, err := filepath.Rel(d.root, path)
		if err != nil {
			return err
		}
		infos = append(infos, d.describe(rel, meta))
		return nil
	})
	if err != nil {
		return nil, verrors.IOError(fmt.Sprintf("failed to scan corpus %s", d.root), err)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })

	d.mu.Lock()
	d.byID = make(map[string]DocumentInfo, len(infos))
	d.byPath = make(map[string]string, len(infos))
	for _, info := range infos {
		d.byID[info.ID] = info
		d.byPath[info.Path] = info.ID
	}
	d.mu.Unlock()

	return infos, nil
}

// describe builds a DocumentInfo for one relative path.
func (d *DirSource) describe(rel string, meta sidecar) DocumentInfo {
	rel = filepath.ToSlash(rel)
	info := DocumentInfo{
		ID:    DocumentID(rel),
		Path:  rel,
		Title: strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel)),
		Scope: meta.Scope,
	}
	if entry, ok := meta.Documents[rel]; ok {
		if entry.Title != "" {
			info.Title = entry.Title
		}
		info.Client = entry.Client
		info.Matter = entry.Matter
		info.Pages = entry.Pages
		if entry.Scope != "" {
			info.Scope = entry.Scope
		}
	}
	return info
}

// Info returns metadata for one document, scanning first if needed.
func (d *DirSource) Info(ctx context.Context, documentID string) (DocumentInfo, error) {
	d.mu.RLock()
	info, ok := d.byID[documentID]
	d.mu.RUnlock()
	if ok {
		return info, nil
	}

	if _, err := d.Documents(ctx); err != nil {
		return DocumentInfo{}, err
	}

	d.mu.RLock()
	info, ok = d.byID[documentID]
	d.mu.RUnlock()
	if !ok {
		return DocumentInfo{}, verrors.New(verrors.ErrCodeDocumentNotFound,
			fmt.Sprintf("document %s not found in corpus", documentID), nil)
	}
	return info, nil
}

// InfoByPath returns metadata for a corpus-relative path.
func (d *DirSource) InfoByPath(ctx context.Context, relPath string) (DocumentInfo, error) {
	return d.Info(ctx, DocumentID(filepath.ToSlash(relPath)))
}

// Content reads the document's raw text.
func (d *DirSource) Content(ctx context.Context, documentID string) (string, error) {
	info, err := d.Info(ctx, documentID)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(filepath.Join(d.root, filepath.FromSlash(info.Path)))
	if err != nil {
		if os.IsNotExist(err) {
			return "", verrors.New(verrors.ErrCodeFileNotFound,
				fmt.Sprintf("document file %s missing", info.Path), err)
		}
		return "", verrors.IOError(fmt.Sprintf("failed to read %s", info.Path), err)
	}
	return string(data), nil
}

// Root returns the corpus root directory.
func (d *DirSource) Root() string {
	return d.root
}

// loadSidecar reads corpus.yaml if present.
func (d *DirSource) loadSidecar() (sidecar, error) {
	var meta sidecar
	data, err := os.ReadFile(filepath.Join(d.root, SidecarFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return meta, nil
		}
		return meta, verrors.IOError("failed to read corpus sidecar", err)
	}
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return meta, verrors.ConfigError("failed to parse corpus.yaml", err)
	}
	return meta, nil
}

var _ Source = (*DirSource)(nil)
