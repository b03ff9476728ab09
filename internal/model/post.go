package model

import "time"

// PreviewLength is the number of characters shown by Preview.
const PreviewLength = 15

// Post is a single text entry on the blog.
//
// ID, AuthorID and CreatedAt are assigned by the server when the post is
// created and never change afterwards. Only Text, GroupID and ImageRef are
// mutable through the edit path.
//
// GroupID is empty when the post has no group, either because none was
// chosen or because the group was deleted (ON DELETE SET NULL).
//
// AuthorUsername and GroupSlug are read-only projections filled in by the
// store on reads so listings can link to /{username}/ and /group/{slug}/
// without extra lookups.
type Post struct {
	ID             string    `json:"id"`
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"createdAt"`
	AuthorID       string    `json:"authorId"`
	AuthorUsername string    `json:"author"`
	GroupID        string    `json:"groupId,omitempty"`
	GroupSlug      string    `json:"group,omitempty"`
	ImageRef       string    `json:"image,omitempty"`
}

// Preview returns the first PreviewLength characters of the text.
func (p *Post) Preview() string {
	return preview(p.Text)
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= PreviewLength {
		return text
	}
	return string(runes[:PreviewLength])
}
