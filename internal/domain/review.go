package domain

// Review is the scheduling record of a card. A review is due once
// NextReview is strictly before the current time.
type Review struct {
	ID         string `json:"id"`
	CardID     string `json:"cardId"`
	LastReview *int64 `json:"lastReview"`
	NextReview int64  `json:"nextReview"`
}

// Score records one review attempt. Scores are append-only.
type Score struct {
	ID         string `json:"id"`
	CardID     string `json:"cardId"`
	Correct    bool   `json:"score"`
	Difficulty int    `json:"difficulty"`
	CreatedAt  int64  `json:"createdAt"`
	UpdatedAt  int64  `json:"updatedAt"`
}

// DueQuestion is a due review joined with its card and note for presentation.
type DueQuestion struct {
	ID         string  `json:"id"`
	CardID     string  `json:"cardId"`
	NoteName   string  `json:"noteName"`
	Question   string  `json:"question"`
	Options    Options `json:"options"`
	Answer     string  `json:"answer"`
	LastReview *int64  `json:"lastReview"`
}

// ReviewOverview is one row of the review listing.
type ReviewOverview struct {
	ID         string `json:"id"`
	NoteName   string `json:"noteName"`
	Question   string `json:"question"`
	LastReview *int64 `json:"lastReview"`
	NextReview int64  `json:"nextReview"`
}
