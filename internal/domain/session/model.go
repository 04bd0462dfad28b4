package session

import "time"

const (
	// MaxSessionsPerUser caps how many battle sessions one owner may keep.
	MaxSessionsPerUser = 20
	// MaxTitleLength is the longest session title, in characters.
	MaxTitleLength = 100
)

// BattleSession is an owned, titled container of memos. Its memos live in a
// child collection and are not embedded here.
type BattleSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateRequest describes a new battle session.
type CreateRequest struct {
	UserID string `json:"userId"`
	Title  string `json:"title"`
}

// Patch is a partial session update. Nil fields are left unchanged.
type Patch struct {
	Title *string `json:"title,omitempty"`
}
