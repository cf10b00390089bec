package twitter

import "twitsent/pkg/models"

// SearchResponse is the body of a search endpoint response.
type SearchResponse struct {
	Data []Tweet `json:"data"`
	Meta Meta    `json:"meta"`
}

// Tweet is one matched post.
type Tweet struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Meta carries pagination information.
type Meta struct {
	ResultCount int    `json:"result_count"`
	NextToken   string `json:"next_token"`
	NewestID    string `json:"newest_id"`
	OldestID    string `json:"oldest_id"`
}

// ToPage converts the response to the transport-neutral page.
func (r *SearchResponse) ToPage() *models.Page {
	page := &models.Page{
		Items:      make([]models.Item, 0, len(r.Data)),
		NextCursor: r.Meta.NextToken,
	}
	for _, t := range r.Data {
		page.Items = append(page.Items, models.Item{ID: t.ID, Text: t.Text})
	}
	return page
}
