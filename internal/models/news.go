package models

// Article is one raw news item as it arrives from the feed fetcher, sits in
// news.json and is stored in Elasticsearch. Timestamp is kept as the raw
// ISO-8601 string because an undated or malformed item must still be
// representable (it is simply ignored by the analyzer).
type Article struct {
	ID          string `json:"id,omitempty"`
	URL         string `json:"url,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Content     string `json:"content,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
	Source      string `json:"source,omitempty"`
}
