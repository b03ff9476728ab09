package model

import "time"

// Follow is the directed edge "UserID follows AuthorID".
// The pair is unique and a user never follows themself.
type Follow struct {
	UserID    string    `json:"userId"`
	AuthorID  string    `json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`
}
