package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/caselaw-crawler/internal/akn"
	"github.com/JakeFAU/caselaw-crawler/internal/crawler"
	"github.com/JakeFAU/caselaw-crawler/internal/metrics"
)

var (
	errEmptyBody = errors.New("empty body")
	errNotXML    = errors.New("not an xml document")
)

// xmlSuffixes are appended to the case URL up to and including the document
// marker to guess where the XML rendition lives.
var xmlSuffixes = []string{"/main.xml", "/main", ".xml", "/document.xml"}

func xmlCandidates(caseURL, marker string) []string {
	base, _, found := strings.Cut(caseURL, marker)
	if !found {
		return nil
	}
	out := make([]string, 0, len(xmlSuffixes))
	for _, suffix := range xmlSuffixes {
		out = append(out, base+marker+suffix)
	}
	return out
}

// enrichFromXML keeps the longest text among the XML candidates and saves it
// right away when it beats the current content text.
func (s *Scraper) enrichFromXML(ctx context.Context, c *crawler.Case, report *crawler.Report) error {
	var best string
	for _, candidate := range xmlCandidates(c.URL, s.cfg.DocumentMarker) {
		text, err := s.xmlText(ctx, candidate)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.skip(report, crawler.StageEnrichment, candidate, err)
			continue
		}
		if runeLen(text) > runeLen(best) {
			best = text
		}
	}
	if best == "" || runeLen(best) <= runeLen(c.ContentText) {
		return nil
	}

	c.ContentText = best
	if err := s.store.SaveCase(ctx, c); err != nil {
		return fmt.Errorf("save xml text: %w", err)
	}
	metrics.ObserveEnrichment("xml")
	s.logger.Info("content text replaced from xml", zap.String("url", c.URL), zap.Int("length", runeLen(best)))
	return nil
}

func (s *Scraper) xmlText(ctx context.Context, target string) (string, error) {
	resp, err := s.fetcher.Download(ctx, target)
	if err != nil {
		return "", err
	}
	if len(resp.Body) == 0 {
		return "", errEmptyBody
	}
	if !strings.Contains(strings.ToLower(resp.ContentType), "xml") && !strings.HasSuffix(crawler.URLPath(target), ".xml") {
		return "", fmt.Errorf("%w: content type %q", errNotXML, resp.ContentType)
	}
	if _, err := s.assets.Store(ctx, crawler.AssetXML, target, resp.Body, resp.ContentType); err != nil {
		return "", fmt.Errorf("store xml: %w", err)
	}
	return akn.ExtractText(resp.Body)
}

// storeAssets downloads and records every linked PDF and image. Failures are
// skipped per asset. With deep set it returns the text of the first PDF that
// yields any.
func (s *Scraper) storeAssets(ctx context.Context, c *crawler.Case, parsed crawler.CaseParsed, deep bool, report *crawler.Report) string {
	var pdfText string
	for _, link := range parsed.PDFLinks {
		resp, abs, err := s.downloadAsset(ctx, parsed.URL, link, crawler.AssetPDF)
		if err != nil {
			s.skip(report, crawler.StageAsset, abs, err)
			continue
		}
		doc := &crawler.Document{CaseID: c.ID, FilePath: resp.path, URL: abs, ContentType: resp.ContentType}
		if err := s.store.AddDocument(ctx, doc); err != nil {
			s.skip(report, crawler.StageAsset, abs, err)
			continue
		}
		if deep && pdfText == "" && s.pdf != nil {
			text, err := s.pdf.ExtractText(ctx, resp.Body, s.cfg.PDFMaxPages)
			if err != nil {
				s.logger.Debug("pdf text extraction failed", zap.String("url", abs), zap.Error(err))
			}
			pdfText = text
		}
	}

	for _, link := range parsed.ImageLinks {
		resp, abs, err := s.downloadAsset(ctx, parsed.URL, link, crawler.AssetImage)
		if err != nil {
			s.skip(report, crawler.StageAsset, abs, err)
			continue
		}
		img := &crawler.Image{CaseID: c.ID, FilePath: resp.path, URL: abs, AltText: parsed.ImageAlt[link]}
		if err := s.store.AddImage(ctx, img); err != nil {
			s.skip(report, crawler.StageAsset, abs, err)
		}
	}
	return pdfText
}

type storedAsset struct {
	crawler.Response
	path string
}

func (s *Scraper) downloadAsset(ctx context.Context, pageURL, link string, kind crawler.AssetKind) (storedAsset, string, error) {
	abs, err := crawler.ResolveURL(pageURL, link)
	if err != nil {
		return storedAsset{}, link, err
	}
	resp, err := s.fetcher.Download(ctx, abs)
	if err != nil {
		return storedAsset{}, abs, err
	}
	path, err := s.assets.Store(ctx, kind, abs, resp.Body, resp.ContentType)
	if err != nil {
		return storedAsset{}, abs, fmt.Errorf("store %s: %w", kind, err)
	}
	return storedAsset{Response: resp, path: path}, abs, nil
}
