package memo

import "time"

// Result is the outcome of a match.
type Result string

const (
	ResultWin  Result = "WIN"
	ResultLose Result = "LOSE"
)

const (
	// MaxMemoLength is the longest memo body, in characters.
	MaxMemoLength = 300
	// MaxMemosPerSession caps memos stored under one battle session.
	MaxMemosPerSession = 50
	// MaxTitleLength is the longest memo title, in characters.
	MaxTitleLength = 100
	// MinRating and MaxRating bound a present rating. Zero means unrated.
	MinRating = 1
	MaxRating = 5
)

// Memo is a single match record.
type Memo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Result    Result    `json:"result"`
	Rating    int       `json:"rating"`
	Memo      string    `json:"memo"`
	CreatedAt time.Time `json:"createdAt"`
}

// FormData holds the user-editable fields of a Memo.
type FormData struct {
	Title  string `json:"title"`
	Result Result `json:"result"`
	Rating int    `json:"rating"`
	Memo   string `json:"memo"`
}

// Apply overwrites the mutable fields of m with form.
func (m *Memo) Apply(form FormData) {
	m.Title = form.Title
	m.Result = form.Result
	m.Rating = form.Rating
	m.Memo = form.Memo
}
