package scraper

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/caselaw-crawler/internal/crawler"
)

type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string][]crawler.Response
	calls     map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: make(map[string][]crawler.Response),
		calls:     make(map[string]int),
	}
}

// serve queues responses for url; the last one repeats.
func (f *fakeFetcher) serve(url string, resps ...crawler.Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range resps {
		if resps[i].URL == "" {
			resps[i].URL = url
		}
		if resps[i].StatusCode == 0 {
			resps[i].StatusCode = 200
		}
	}
	f.responses[url] = append(f.responses[url], resps...)
}

func (f *fakeFetcher) page(url, html string) {
	f.serve(url, crawler.Response{Text: html, Body: []byte(html), ContentType: "text/html"})
}

func (f *fakeFetcher) Get(_ context.Context, url string) (crawler.Response, error) {
	return f.next(url)
}

func (f *fakeFetcher) Download(_ context.Context, url string) (crawler.Response, error) {
	return f.next(url)
}

func (f *fakeFetcher) next(url string) (crawler.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.calls[url]
	f.calls[url]++
	resps := f.responses[url]
	if len(resps) == 0 {
		return crawler.Response{}, &crawler.FetchError{URL: url, Attempts: 1, StatusCode: 404, Err: crawler.ErrUnexpectedStatus}
	}
	if n >= len(resps) {
		n = len(resps) - 1
	}
	return resps[n], nil
}

func (f *fakeFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

type fakeAssets struct {
	mu     sync.Mutex
	stored map[string]crawler.AssetKind
	fail   map[crawler.AssetKind]error
}

func newFakeAssets() *fakeAssets {
	return &fakeAssets{stored: make(map[string]crawler.AssetKind), fail: make(map[crawler.AssetKind]error)}
}

func (a *fakeAssets) Store(_ context.Context, kind crawler.AssetKind, sourceURL string, _ []byte, _ string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.fail[kind]; err != nil {
		return "", err
	}
	a.stored[sourceURL] = kind
	return fmt.Sprintf("/assets/%s/%s", kind, sourceURL), nil
}

type fakeStore struct {
	mu     sync.Mutex
	nextID uint
	cases  map[string]*crawler.Case
	docs   []crawler.Document
	images []crawler.Image
	saves  int

	// racer is inserted by "another crawler" when CreateCase is first called.
	racer *crawler.Case
	// saveErrs are returned by successive SaveCase calls before succeeding.
	saveErrs []error
}

func newFakeStore() *fakeStore {
	return &fakeStore{cases: make(map[string]*crawler.Case)}
}

func (s *fakeStore) FindCaseByURL(_ context.Context, url string) (*crawler.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[url]
	if !ok {
		return nil, crawler.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (s *fakeStore) CreateCase(_ context.Context, c *crawler.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.racer != nil {
		s.nextID++
		winner := *s.racer
		winner.ID = s.nextID
		s.cases[winner.URL] = &winner
		s.racer = nil
	}
	if _, exists := s.cases[c.URL]; exists {
		return fmt.Errorf("create case: %w", crawler.ErrPersistenceConflict)
	}
	s.nextID++
	c.ID = s.nextID
	clone := *c
	s.cases[c.URL] = &clone
	return nil
}

func (s *fakeStore) SaveCase(_ context.Context, c *crawler.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.saveErrs) > 0 {
		err := s.saveErrs[0]
		s.saveErrs = s.saveErrs[1:]
		return err
	}
	s.saves++
	clone := *c
	s.cases[c.URL] = &clone
	return nil
}

func (s *fakeStore) AddDocument(_ context.Context, doc *crawler.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, *doc)
	return nil
}

func (s *fakeStore) AddImage(_ context.Context, img *crawler.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = append(s.images, *img)
	return nil
}

func (s *fakeStore) get(url string) *crawler.Case {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cases[url]
}

type fakePDF struct {
	text  string
	calls int
}

func (p *fakePDF) ExtractText(_ context.Context, _ []byte, maxPages int) (string, error) {
	p.calls++
	if maxPages <= 0 {
		return "", fmt.Errorf("bad page limit %d", maxPages)
	}
	return p.text, nil
}
