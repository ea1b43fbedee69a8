package models

import "time"

// NewsArticle represents a news article about a stock. URL is the de-dup
// key across providers; ID is stable (provider id, or a hash of the URL).
type NewsArticle struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"imageUrl"`
	PublishedAt time.Time `json:"publishedAt"`
	Summary     string    `json:"summary"`
}
