package store

import (
	"sync"
	"testing"

	"github.com/tbourn/go-content-studio/internal/domain"
)

func TestNew_Empty(t *testing.T) {
	s := New()
	a := s.Snapshot()
	if a.Prompt != "" || a.Image != nil || a.Caption != "" || a.SEO != nil {
		t.Fatalf("new store should be empty: %+v", a)
	}
	if a.Posts == nil || len(a.Posts) != 0 {
		t.Fatalf("posts should be an empty map, got %#v", a.Posts)
	}
	if a.Theme != domain.ThemeDark {
		t.Fatalf("default theme = %q", a.Theme)
	}
	if s.ImageID() != "" {
		t.Fatalf("ImageID should be empty without an image")
	}
}

func TestSetImage_CascadeClears(t *testing.T) {
	s := New()
	s.SetPrompt("a cat")
	s.SetImage(&domain.Image{ID: "x", Origin: domain.OriginGenerated, Data: []byte("X")})
	s.SetCaption("A cute cat", map[string]string{"X": "post"})
	s.SetSEO(map[string]string{"seo_filename": "a-cute-cat.jpg"})

	s.SetImage(&domain.Image{ID: "y", Origin: domain.OriginUploaded, Data: []byte("Y")})

	a := s.Snapshot()
	if a.Image == nil || a.Image.ID != "y" || a.Image.Origin != domain.OriginUploaded {
		t.Fatalf("image not replaced: %+v", a.Image)
	}
	if a.Caption != "" || len(a.Posts) != 0 || a.SEO != nil {
		t.Fatalf("derived artifacts not cleared: %+v", a)
	}
	if a.Prompt != "a cat" {
		t.Fatalf("prompt must survive image replacement, got %q", a.Prompt)
	}
}

func TestGetters_ReturnCopies(t *testing.T) {
	s := New()
	data := []byte("raw")
	s.SetImage(&domain.Image{ID: "i", Data: data})
	data[0] = 'X' // caller mutation after set
	if got := s.Image(); string(got.Data) != "raw" {
		t.Fatalf("store kept caller's slice: %q", got.Data)
	}

	posts := map[string]string{"LinkedIn": "hi"}
	s.SetCaption("c", posts)
	posts["LinkedIn"] = "changed"
	out := s.Posts()
	out["X"] = "added"
	if got := s.Posts(); len(got) != 1 || got["LinkedIn"] != "hi" {
		t.Fatalf("posts aliased: %#v", got)
	}

	s.SetSEO(map[string]string{"k": "v"})
	seo := s.SEO()
	seo["k"] = "mutated"
	if s.SEO()["k"] != "v" {
		t.Fatalf("seo aliased")
	}
}

func TestSetCaption_NilPostsBecomesEmpty(t *testing.T) {
	s := New()
	s.SetCaption("c", nil)
	if p := s.Posts(); p == nil || len(p) != 0 {
		t.Fatalf("expected empty posts map, got %#v", p)
	}
	if s.Caption() != "c" {
		t.Fatalf("caption not stored")
	}
}

func TestSetCaption_ClearsSEO(t *testing.T) {
	s := New()
	s.SetImage(&domain.Image{ID: "i"})
	s.SetCaption("first", nil)
	s.SetSEO(map[string]string{"seo_filename": "first.jpg"})

	s.SetCaption("second", map[string]string{"X": "p"})
	if s.SEO() != nil {
		t.Fatalf("seo should be cleared when the caption changes, got %#v", s.SEO())
	}
	if s.ImageID() != "i" {
		t.Fatalf("image must survive a caption change")
	}
}

func TestTheme_SetAndGet(t *testing.T) {
	s := New()
	s.SetTheme(domain.ThemeLight)
	if s.Theme() != domain.ThemeLight {
		t.Fatalf("theme not stored")
	}
}

// Readers must never observe a caption alongside an image it was not set for.
func TestSnapshot_NeverHalfCleared(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 2000; i++ {
			id := "img-a"
			if i%2 == 1 {
				id = "img-b"
			}
			s.SetImage(&domain.Image{ID: id})
			// Caption names its image so the reader can check pairing.
			s.SetCaption("caption for "+id, map[string]string{"X": id})
		}
		close(stop)
	}()

	for {
		select {
		case <-stop:
			wg.Wait()
			return
		default:
		}
		a := s.Snapshot()
		if a.Caption == "" {
			if len(a.Posts) != 0 {
				t.Fatalf("posts present without caption: %#v", a.Posts)
			}
			continue
		}
		if a.Image == nil || a.Caption != "caption for "+a.Image.ID || a.Posts["X"] != a.Image.ID {
			t.Fatalf("caption/posts observed with a different image: %+v", a)
		}
	}
}
