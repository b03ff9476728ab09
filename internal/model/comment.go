package model

import "time"

// Comment is a reply attached to a post. PostID, AuthorID and CreatedAt are
// bound by the server and immutable.
type Comment struct {
	ID             string    `json:"id"`
	PostID         string    `json:"postId"`
	AuthorID       string    `json:"authorId"`
	AuthorUsername string    `json:"author"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (c *Comment) Preview() string {
	return preview(c.Text)
}
