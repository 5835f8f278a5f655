// Package store holds the current workflow artifacts: prompt, image,
// caption, social posts, and SEO metadata.
//
// The store does no validation. Its one rule is the cascade-clear: replacing
// the image clears caption, posts, and SEO metadata in the same critical
// section, so no reader ever sees derived artifacts next to a different image.
package store

import (
	"maps"
	"sync"

	"github.com/tbourn/go-content-studio/internal/domain"
)

// Artifacts is a point-in-time copy of every slot.
type Artifacts struct {
	Prompt  string
	Image   *domain.Image
	Caption string
	Posts   map[string]string
	SEO     map[string]string // nil when absent
	Theme   domain.Theme
}

// Store is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	prompt  string
	image   *domain.Image
	caption string
	posts   map[string]string
	seo     map[string]string
	theme   domain.Theme
}

// New returns an empty store with the dark theme.
func New() *Store {
	return &Store{posts: map[string]string{}, theme: domain.ThemeDark}
}

// Prompt returns the prompt text.
func (s *Store) Prompt() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prompt
}

// SetPrompt replaces the prompt. No artifact depends on it.
func (s *Store) SetPrompt(p string) {
	s.mu.Lock()
	s.prompt = p
	s.mu.Unlock()
}

// Image returns a copy of the current image, or nil.
func (s *Store) Image() *domain.Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.image.Clone()
}

// ImageID returns the identity of the current image, or "" when absent.
func (s *Store) ImageID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.image == nil {
		return ""
	}
	return s.image.ID
}

// SetImage replaces the current image and cascade-clears caption, posts and
// SEO metadata.
func (s *Store) SetImage(img *domain.Image) {
	img = img.Clone()
	s.mu.Lock()
	s.image = img
	s.caption = ""
	s.posts = map[string]string{}
	s.seo = nil
	s.mu.Unlock()
}

// Caption returns the caption, or "" when absent.
func (s *Store) Caption() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.caption
}

// Posts returns a copy of the social posts; never nil.
func (s *Store) Posts() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.posts)
}

// SetCaption stores the caption and its posts as one pair. SEO metadata was
// derived from the previous caption, so it is cleared.
func (s *Store) SetCaption(caption string, posts map[string]string) {
	cp := maps.Clone(posts)
	if cp == nil {
		cp = map[string]string{}
	}
	s.mu.Lock()
	s.caption = caption
	s.posts = cp
	s.seo = nil
	s.mu.Unlock()
}

// SEO returns a copy of the SEO metadata, or nil when absent.
func (s *Store) SEO() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.seo)
}

// SetSEO stores a copy of meta.
func (s *Store) SetSEO(meta map[string]string) {
	cp := maps.Clone(meta)
	s.mu.Lock()
	s.seo = cp
	s.mu.Unlock()
}

// Theme returns the cosmetic theme.
func (s *Store) Theme() domain.Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

// SetTheme sets the cosmetic theme.
func (s *Store) SetTheme(t domain.Theme) {
	s.mu.Lock()
	s.theme = t
	s.mu.Unlock()
}

// Snapshot copies all slots under one read lock.
func (s *Store) Snapshot() Artifacts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	posts := maps.Clone(s.posts)
	if posts == nil {
		posts = map[string]string{}
	}
	return Artifacts{
		Prompt:  s.prompt,
		Image:   s.image.Clone(),
		Caption: s.caption,
		Posts:   posts,
		SEO:     maps.Clone(s.seo),
		Theme:   s.theme,
	}
}
