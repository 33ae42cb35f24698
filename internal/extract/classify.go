package extract

// listingCardSelector matches the repeated result containers of a listing.
const listingCardSelector = ".result, .results, .list, .search-results, .card"

// minListingCards is how many result containers make a page a listing.
const minListingCards = 5

// IsListing reports whether page is a paginated listing rather than a
// single case. Pages that cannot be parsed are treated as detail pages.
func IsListing(page string) bool {
	doc, err := parse(page)
	if err != nil {
		return false
	}
	if doc.Find("a[rel='next']").Length() > 0 {
		return true
	}
	return doc.Find(listingCardSelector).Length() >= minListingCards
}
