package api

import (
	"errors"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/media"
)

var ErrNotFound = errors.New("playlist item not found")

// ListQuery selects a page of the playlist. Length < 0 means no limit.
type ListQuery struct {
	Offset int
	Length int
	Search string
	// Filter keeps items whose MIME type starts with one of the prefixes.
	Filter []string
}

// Playlist is the path list served over HTTP. The controller replaces it
// wholesale; requests only read it.
type Playlist struct {
	mu    sync.RWMutex
	paths []string
}

func NewPlaylist(paths []string) *Playlist {
	p := &Playlist{}
	p.Replace(paths)
	return p
}

func (p *Playlist) Replace(paths []string) {
	copied := append([]string(nil), paths...)
	p.mu.Lock()
	p.paths = copied
	p.mu.Unlock()
}

func (p *Playlist) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.paths)
}

// Get resolves id to an item. Items without a known MIME type are not found.
func (p *Playlist) Get(id int) (Item, error) {
	p.mu.RLock()
	if id < 0 || id >= len(p.paths) {
		p.mu.RUnlock()
		return Item{}, ErrNotFound
	}
	path := p.paths[id]
	p.mu.RUnlock()

	mimeType, err := media.ContentType(path)
	if err != nil {
		return Item{}, errors.Join(ErrNotFound, err)
	}
	return Item{ID: id, Path: path, MimeType: mimeType}, nil
}

// List filters then paginates. The count is the size of the whole playlist.
func (p *Playlist) List(q ListQuery) ([]Item, int) {
	p.mu.RLock()
	paths := p.paths
	p.mu.RUnlock()

	items := []Item{}
	skipped := 0
	for i, path := range paths {
		mimeType, err := media.ContentType(path)
		if err != nil {
			continue
		}
		if q.Search != "" && !fuzzy.Match(q.Search, path) {
			continue
		}
		if len(q.Filter) > 0 && !lo.SomeBy(q.Filter, func(prefix string) bool {
			return strings.HasPrefix(mimeType, prefix)
		}) {
			continue
		}
		if skipped < q.Offset {
			skipped++
			continue
		}
		if q.Length >= 0 && len(items) >= q.Length {
			break
		}
		items = append(items, Item{ID: i, Path: path, MimeType: mimeType})
	}
	return items, len(paths)
}
