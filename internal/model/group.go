package model

// Group is a community that posts can be tagged with. Slug is unique and
// URL-safe; it is the public identifier used in /group/{slug}/.
type Group struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}
