package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/caselaw-crawler/internal/crawler"
)

// Listing is what a listing page offers: candidate detail links, in first
// seen order and unresolved, plus the next page link if any.
type Listing struct {
	DetailLinks []string
	NextPage    string
}

var (
	detailTextKeywords = []string{"read more", "view", "case", "judgment", "ruling"}
	detailHrefKeywords = []string{"/case", "/judgment", "/ruling", "/download"}
	nextPageSelectors  = []string{"a[rel='next']", "a.page-next", "li.next a", "nav.pagination a"}
	skippedHrefPrefix  = []string{"#", "javascript:", "mailto:", "tel:"}
)

// ExtractListing collects detail links and the next page link from page.
// Links pointing back at baseURL itself, or at the next page, are not
// detail links.
func ExtractListing(baseURL, page string) (Listing, error) {
	doc, err := parse(page)
	if err != nil {
		return Listing{}, err
	}

	var listing Listing
	listing.NextPage = nextPage(doc)

	seen := make(map[string]struct{})
	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" || hasAnyPrefix(strings.ToLower(href), skippedHrefPrefix) {
			return
		}
		if href == listing.NextPage || pointsAt(baseURL, href) {
			return
		}
		text := strings.ToLower(selectionText(a, " "))
		if !containsAny(text, detailTextKeywords) && !containsAny(strings.ToLower(href), detailHrefKeywords) {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}
		listing.DetailLinks = append(listing.DetailLinks, href)
	})
	return listing, nil
}

func nextPage(doc *goquery.Document) string {
	for _, sel := range nextPageSelectors {
		if href, ok := doc.Find(sel).First().Attr("href"); ok && strings.TrimSpace(href) != "" {
			return strings.TrimSpace(href)
		}
	}
	var next string
	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if ok && strings.TrimSpace(href) != "" && strings.ToLower(selectionText(a, " ")) == "next" {
			next = strings.TrimSpace(href)
			return false
		}
		return true
	})
	return next
}

func pointsAt(baseURL, href string) bool {
	if baseURL == "" {
		return false
	}
	resolved, err := crawler.ResolveURL(baseURL, href)
	if err != nil {
		return false
	}
	base, err := crawler.ResolveURL(baseURL, "")
	if err != nil {
		return false
	}
	return resolved == base
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
