package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/caselaw-crawler/internal/crawler"
)

// field identifies one metadata attribute of a case.
type field string

const (
	fieldCaseNumber field = "case_number"
	fieldCourt      field = "court"
	fieldParties    field = "parties"
	fieldJudges     field = "judges"
	fieldDate       field = "date"
	fieldCitation   field = "citation"
	fieldCounsel    field = "counsel"
)

type labelSet struct {
	field    field
	keywords []string
}

var (
	titleSelectors = []string{"h1", "h2", ".title", ".case-title"}

	fieldSelectors = map[field][]string{
		fieldCaseNumber: {".case-number", "#case-number"},
		fieldCourt:      {".court"},
		fieldParties:    {".parties"},
		fieldJudges:     {".judges"},
		fieldDate:       {".date"},
		fieldCitation:   {".citation"},
	}

	// scanLabels is ordered; the first field claiming a value keeps it.
	scanLabels = []labelSet{
		{fieldCaseNumber, []string{"case number", "case no", "case no."}},
		{fieldCourt, []string{"court"}},
		{fieldParties, []string{"parties", "between"}},
		{fieldJudges, []string{"judge", "judges", "coram"}},
		{fieldDate, []string{"date", "delivered", "decision date"}},
		{fieldCitation, []string{"citation"}},
		{fieldCounsel, []string{"counsel", "advocates"}},
	}

	// fallbackLabels feed the last-resort structural search per field.
	fallbackLabels = map[field][]string{
		fieldCaseNumber: {"case number", "case no"},
		fieldCourt:      {"court"},
		fieldParties:    {"parties", "appellant", "respondent"},
		fieldJudges:     {"judge", "judges", "coram"},
		fieldDate:       {"date", "delivered", "decision date"},
		fieldCitation:   {"citation"},
	}

	contentSelectors = []string{
		"main", "article", ".content", "#content", ".judgment-text",
		".case-body", "[class*='akn']", ".document", ".entry-content",
	}
	chromeSelector = ".breadcrumbs, .breadcrumb, nav, .nav, .menu, .header, header, .footer, footer, aside, .sidebar"
	textSelector   = "p, li, pre, blockquote, h2, h3, h4"

	pdfExtensions   = []string{".pdf"}
	imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
)

// firstOf returns the first non-empty value produced by extractors. Later
// extractors are not evaluated once one succeeds.
func firstOf(extractors ...func() string) string {
	for _, extract := range extractors {
		if v := extract(); v != "" {
			return v
		}
	}
	return ""
}

// ExtractDetail pulls case metadata, body text and linked resources out of a
// detail page. Missing fields are left empty.
func ExtractDetail(pageURL, page string) (crawler.CaseParsed, error) {
	doc, err := parse(page)
	if err != nil {
		return crawler.CaseParsed{}, err
	}

	scanned := scanLabelValues(doc)
	valueOf := func(f field) string {
		return firstOf(
			func() string { return firstSelected(doc, fieldSelectors[f]) },
			func() string { return scanned[f] },
			func() string { return findLabelValue(doc, fallbackLabels[f]) },
		)
	}

	parsed := crawler.CaseParsed{
		URL:        pageURL,
		Title:      firstSelected(doc, titleSelectors),
		CaseNumber: valueOf(fieldCaseNumber),
		Court:      valueOf(fieldCourt),
		Parties:    valueOf(fieldParties),
		Judges:     valueOf(fieldJudges),
		Date:       valueOf(fieldDate),
		Citation:   valueOf(fieldCitation),
		Counsel:    scanned[fieldCounsel],
	}
	// Chrome is removed from the document itself, so links inside it are
	// not collected as resources either.
	parsed.ContentText = contentText(doc)
	parsed.PDFLinks, parsed.ImageLinks, parsed.ImageAlt = resources(doc)
	return parsed, nil
}

func firstSelected(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		if match := doc.Find(sel).First(); match.Length() > 0 {
			return selectionText(match, " ")
		}
	}
	return ""
}

// scanLabelValues walks dt/dd pairs, th/td pairs and "label: value"
// paragraphs, in that order, assigning each value to the first field whose
// keyword appears in its label.
func scanLabelValues(doc *goquery.Document) map[field]string {
	found := make(map[field]string)
	claim := func(label, value string) {
		if value == "" {
			return
		}
		for _, set := range scanLabels {
			if _, ok := found[set.field]; ok {
				continue
			}
			if containsAny(label, set.keywords) {
				found[set.field] = value
			}
		}
	}
	pairs := func(container, labelTag, valueTag string) {
		doc.Find(container).Find(labelTag).Each(func(_ int, s *goquery.Selection) {
			value := nextElement(s.Get(0), valueTag)
			if value == nil {
				return
			}
			claim(strings.ToLower(selectionText(s, " ")), nodeText(value, " "))
		})
	}
	pairs("dl", "dt", "dd")
	pairs("table", "th", "td")

	doc.Find("p, li").Each(func(_ int, s *goquery.Selection) {
		text := selectionText(s, " ")
		low := strings.ToLower(text)
		for _, set := range scanLabels {
			if _, ok := found[set.field]; ok {
				continue
			}
			for _, kw := range set.keywords {
				if strings.HasPrefix(low, kw+":") {
					_, value, _ := strings.Cut(text, ":")
					found[set.field] = strings.TrimSpace(value)
					break
				}
			}
		}
	})
	return found
}

// findLabelValue searches dl and table blocks mentioning any keyword for a
// dt or th label carrying it, and returns the value that follows.
func findLabelValue(doc *goquery.Document, keywords []string) string {
	var value string
	doc.Find("dl, table").EachWithBreak(func(_ int, block *goquery.Selection) bool {
		if !containsAny(strings.ToLower(selectionText(block, " ")), keywords) {
			return true
		}
		for _, pair := range [][2]string{{"dt", "dd"}, {"th", "td"}} {
			labels := block.Find(pair[0])
			for i := range labels.Nodes {
				label := labels.Eq(i)
				if !containsAny(strings.ToLower(selectionText(label, " ")), keywords) {
					continue
				}
				if next := nextElement(label.Get(0), pair[1]); next != nil {
					value = nodeText(next, " ")
					return false
				}
			}
		}
		return true
	})
	return value
}

func contentText(doc *goquery.Document) string {
	var container *goquery.Selection
	for _, sel := range contentSelectors {
		if match := doc.Find(sel).First(); match.Length() > 0 {
			container = match
			break
		}
	}
	if container == nil {
		return ""
	}
	container.Find(chromeSelector).Remove()

	blocks := container.Find(textSelector)
	if blocks.Length() == 0 {
		return selectionText(container, "\n")
	}
	parts := make([]string, 0, blocks.Length())
	blocks.Each(func(_ int, s *goquery.Selection) {
		if text := selectionText(s, " "); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n")
}

func resources(doc *goquery.Document) (pdfs, images []string, alt map[string]string) {
	seenPDF := make(map[string]struct{})
	seenImage := make(map[string]struct{})
	alt = make(map[string]string)
	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			return
		}
		path := crawler.URLPath(href)
		text := strings.ToLower(selectionText(a, " "))
		switch {
		case hasAnySuffix(path, pdfExtensions) || (strings.Contains(text, "pdf") && strings.Contains(text, "download")):
			if _, dup := seenPDF[href]; !dup {
				seenPDF[href] = struct{}{}
				pdfs = append(pdfs, href)
			}
		case hasAnySuffix(path, imageExtensions):
			if _, dup := seenImage[href]; dup {
				return
			}
			seenImage[href] = struct{}{}
			images = append(images, href)
			if text := imageAltText(a); text != "" {
				alt[href] = text
			}
		}
	})
	return pdfs, images, alt
}

func imageAltText(a *goquery.Selection) string {
	if title, ok := a.Attr("title"); ok && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title)
	}
	if img, ok := a.Find("img[alt]").First().Attr("alt"); ok {
		return strings.TrimSpace(img)
	}
	return ""
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}
