package models

// PageRecord is the structured form of one fetched HTML page. It lives only
// for the duration of processing a single URL and is never persisted.
type PageRecord struct {
	Title           string   `json:"title"`
	MetaDescription string   `json:"meta_description"`
	Headers         []string `json:"headers"`
	BodyText        string   `json:"body_text"`
	RawHTML         string   `json:"-"`
}
