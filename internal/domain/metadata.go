package domain

// LinkMetadata is what could be scraped from a product page. Every field is
// best effort.
type LinkMetadata struct {
	URL         string   `json:"url"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	SiteName    string   `json:"site_name,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Currency    string   `json:"currency,omitempty"`
}

// Empty reports whether nothing was extracted.
func (m *LinkMetadata) Empty() bool {
	return m.Title == "" && m.Description == "" && m.ImageURL == "" && m.Price == nil
}
