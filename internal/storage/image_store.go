package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gosimple/slug"
)

// Kind selects the sub folder and file name prefix of a stored image
type Kind string

const (
	KindProfile Kind = "profile"
	KindID      Kind = "id"
	KindMisc    Kind = "misc"
)

func (k Kind) folder() string {
	switch k {
	case KindProfile:
		return "profile_image"
	case KindID:
		return "id_image"
	default:
		return "misc"
	}
}

const (
	anonymousFolder = "temp_user"
	dateFolder      = "02.01.2006"
)

var mimeExtensions = map[string]string{
	"image/jpeg":    ".jpg",
	"image/jpg":     ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
	"image/bmp":     ".bmp",
}

// IsImage reports whether the declared content type is an image
func IsImage(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), "image/")
}

// ExtensionFor picks the file extension from the MIME type, then from the
// original name when it is a known image extension, else .jpg.
func ExtensionFor(contentType, originalName string) string {
	if ext, ok := mimeExtensions[strings.ToLower(contentType)]; ok {
		return ext
	}
	ext := strings.ToLower(filepath.Ext(originalName))
	for _, known := range mimeExtensions {
		if ext == known {
			return ext
		}
	}
	return ".jpg"
}

// FolderName turns a guest name into a filesystem-safe folder name
func FolderName(guestName string) string {
	name := strings.ReplaceAll(slug.Make(guestName), "-", "_")
	if name == "" {
		return anonymousFolder
	}
	return name
}

// StoredFile is an image written by the store
type StoredFile struct {
	Path string // filesystem path
	URL  string // public URL under /api/images
}

// ImageStore writes uploaded images under
// <root>/<hotel>/<dd.mm.yyyy>/<guest>/<kind folder>/<kind>-<epochms><ext>
type ImageStore struct {
	root    string
	baseURL string
	now     func() time.Time
	mu      sync.Mutex
}

// NewImageStore creates a store rooted at root whose URLs start with baseURL
func NewImageStore(root, baseURL string) *ImageStore {
	return &ImageStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}
}

// Root returns the directory images are stored under
func (s *ImageStore) Root() string {
	return s.root
}

// ErrOutsideRoot is returned when a hotel code would place a file outside
// the images root
var ErrOutsideRoot = errors.New("image path escapes the images root")

// within reports whether dir resolves to root or a directory below it
func within(root, dir string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(dir))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// hotelFolder checks that the hotel code is a single path segment
func hotelFolder(hotelCode string) (string, error) {
	if hotelCode == "" || hotelCode == "." || hotelCode == ".." || strings.ContainsAny(hotelCode, `/\`) {
		return "", fmt.Errorf("%w: hotel code %q", ErrOutsideRoot, hotelCode)
	}
	return hotelCode, nil
}

// Save writes data as a new image. guestName may be empty for uploads not
// tied to a guest.
func (s *ImageStore) Save(data io.Reader, originalName, contentType string, kind Kind, guestName, hotelCode string) (*StoredFile, error) {
	hotel, err := hotelFolder(hotelCode)
	if err != nil {
		return nil, err
	}

	now := s.now()
	rel := path.Join(hotel, now.Format(dateFolder), FolderName(guestName), kind.folder())
	dir := filepath.Join(s.root, filepath.FromSlash(rel))
	if !within(s.root, dir) {
		return nil, fmt.Errorf("%w: %s", ErrOutsideRoot, rel)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	ext := ExtensionFor(contentType, originalName)
	file, name, err := s.create(dir, string(kind), now, ext)
	if err != nil {
		return nil, err
	}

	fullPath := filepath.Join(dir, name)
	if _, err := io.Copy(file, data); err != nil {
		file.Close()
		os.Remove(fullPath)
		return nil, fmt.Errorf("failed to write image: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(fullPath)
		return nil, fmt.Errorf("failed to write image: %w", err)
	}

	return &StoredFile{
		Path: fullPath,
		URL:  s.baseURL + "/api/images/" + path.Join(rel, name),
	}, nil
}

// create opens a new file named <prefix>-<epochms><ext>, moving to the next
// millisecond while the name is taken.
func (s *ImageStore) create(dir, prefix string, at time.Time, ext string) (*os.File, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms := at.UnixMilli()
	for attempt := 0; attempt < 1000; attempt++ {
		name := fmt.Sprintf("%s-%d%s", prefix, ms+int64(attempt), ext)
		file, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return file, name, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("failed to create image file: %w", err)
		}
	}
	return nil, "", fmt.Errorf("failed to create image file: no free name in %s", dir)
}

// Batch tracks the files written for one request so they can be removed when
// the request fails.
type Batch struct {
	store *ImageStore
	paths []string
}

// NewBatch starts an empty batch on the store
func (s *ImageStore) NewBatch() *Batch {
	return &Batch{store: s}
}

// Save stores an image and remembers it for Discard
func (b *Batch) Save(data io.Reader, originalName, contentType string, kind Kind, guestName, hotelCode string) (*StoredFile, error) {
	stored, err := b.store.Save(data, originalName, contentType, kind, guestName, hotelCode)
	if err != nil {
		return nil, err
	}
	b.paths = append(b.paths, stored.Path)
	return stored, nil
}

// Paths returns the files written so far
func (b *Batch) Paths() []string {
	return b.paths
}

// Discard removes every file in the batch. Files already gone are ignored;
// other failures are returned joined.
func (b *Batch) Discard() error {
	var errs []error
	for _, p := range b.paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	b.paths = nil
	return errors.Join(errs...)
}
