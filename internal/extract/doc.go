// Package extract turns fetched HTML into crawl decisions: whether a page
// is a listing, which links a listing offers, and the structured fields
// and body text of a case detail page.
//
// The heuristics target the Kenya Law judgment pages but fall back to
// generic patterns (definition lists, label tables, "Label: value"
// paragraphs) so unfamiliar layouts still yield partial records.
package extract
