package memo

import (
	"fmt"
	"unicode/utf8"

	"github.com/ggmemo/ggmemo/internal/apperr"
)

// ValidateLength rejects memo bodies longer than MaxMemoLength.
func ValidateLength(body string) error {
	if n := utf8.RuneCountInString(body); n > MaxMemoLength {
		return apperr.Memo(apperr.CodeInvalidInput,
			fmt.Sprintf("Memo cannot exceed %d characters", MaxMemoLength),
			apperr.WithContext("length", n),
		)
	}
	return nil
}

// ValidateForm checks every field of a memo submission.
func ValidateForm(form FormData) error {
	if err := ValidateLength(form.Memo); err != nil {
		return err
	}
	if utf8.RuneCountInString(form.Title) > MaxTitleLength {
		return apperr.Memo(apperr.CodeInvalidInput,
			fmt.Sprintf("Title must be %d characters or less", MaxTitleLength))
	}
	if form.Result != ResultWin && form.Result != ResultLose {
		return apperr.Memo(apperr.CodeInvalidInput, "Result must be WIN or LOSE",
			apperr.WithContext("result", string(form.Result)))
	}
	if form.Rating != 0 && (form.Rating < MinRating || form.Rating > MaxRating) {
		return apperr.Memo(apperr.CodeInvalidInput,
			fmt.Sprintf("Rating must be between %d and %d", MinRating, MaxRating),
			apperr.WithContext("rating", form.Rating))
	}
	return nil
}
