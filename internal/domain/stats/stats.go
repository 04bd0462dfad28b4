// Package stats derives win/loss statistics from memos and renders them as
// Markdown.
package stats

import (
	"fmt"
	"strings"

	"github.com/ggmemo/ggmemo/internal/domain/memo"
)

// Stats summarizes a list of memos. WinRate and AverageRating are formatted
// with one decimal place.
type Stats struct {
	TotalGames         int    `json:"totalGames"`
	Wins               int    `json:"wins"`
	Losses             int    `json:"losses"`
	WinRate            string `json:"winRate"`
	AverageRating      string `json:"averageRating"`
	RatingDistribution [5]int `json:"ratingDistribution"`
}

// Calculate computes Stats for memos. Unrated memos count toward games but
// not toward the average rating or the distribution.
func Calculate(memos []memo.Memo) Stats {
	var s Stats
	s.TotalGames = len(memos)

	ratingSum, rated := 0, 0
	for _, m := range memos {
		switch m.Result {
		case memo.ResultWin:
			s.Wins++
		case memo.ResultLose:
			s.Losses++
		}
		if m.Rating >= memo.MinRating && m.Rating <= memo.MaxRating {
			s.RatingDistribution[m.Rating-1]++
			ratingSum += m.Rating
			rated++
		}
	}

	s.WinRate = percent(s.Wins, s.TotalGames)
	s.AverageRating = "0.0"
	if rated > 0 {
		s.AverageRating = fmt.Sprintf("%.1f", float64(ratingSum)/float64(rated))
	}
	return s
}

func percent(n, total int) string {
	if total == 0 {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", float64(n)/float64(total)*100)
}

// Markdown renders memos (newest first) and their stats as a shareable
// document. Games are numbered down from the total.
func Markdown(memos []memo.Memo, s Stats, title string, hideRating bool) string {
	var b strings.Builder

	if title != "" {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}
	b.WriteString("# Battle Statistics\n\n")
	fmt.Fprintf(&b, "Total Games: %d\n", s.TotalGames)
	fmt.Fprintf(&b, "- Wins: %d (%s%%)\n", s.Wins, percent(s.Wins, s.TotalGames))
	fmt.Fprintf(&b, "- Losses: %d (%s%%)\n", s.Losses, percent(s.Losses, s.TotalGames))
	fmt.Fprintf(&b, "- Win Rate: %s%%", s.WinRate)
	if !hideRating {
		fmt.Fprintf(&b, "\n- Average Rating: %s★", s.AverageRating)
	}
	b.WriteString("\n\n---\n\n# Battle History\n\n")

	blocks := make([]string, 0, len(memos))
	for i, m := range memos {
		var gb strings.Builder
		fmt.Fprintf(&gb, "### Game %d\n\n", s.TotalGames-i)
		fmt.Fprintf(&gb, "**Result:** %s\n\n", m.Result)
		if !hideRating && m.Rating > 0 {
			fmt.Fprintf(&gb, "**Rating:** %d\n\n", m.Rating)
		}
		fmt.Fprintf(&gb, "%s\n\n---\n", m.Memo)
		blocks = append(blocks, gb.String())
	}
	b.WriteString(strings.Join(blocks, "\n"))
	return b.String()
}
