// Package report defines the caregiver-facing report payload served to
// the family application's home screen.
package report

// Status summarizes the senior user's day for caregivers.
type Status struct {
	Mood         string `json:"mood"`
	Condition    string `json:"condition"`
	LastActivity string `json:"last_activity"`
	Needs        string `json:"needs"`
}

// Stats carries engagement counters shown alongside the status card.
type Stats struct {
	Contact          int `json:"contact"`
	Visit            int `json:"visit"`
	QuestionAnswered int `json:"question_answered"`
}

// RankingEntry is one row of the family engagement ranking.
type RankingEntry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Report is the full payload returned by the report query.
type Report struct {
	Name       string         `json:"name"`
	ReportDate string         `json:"report_date,omitempty"`
	Status     Status         `json:"status"`
	Stats      Stats          `json:"stats"`
	Ranking    []RankingEntry `json:"ranking"`
}

// Default returns the payload served when no summary exists for a user.
func Default() Report {
	return Report{
		Name: "어르신",
		Status: Status{
			Mood:         "데이터 없음",
			Condition:    "정보 없음",
			LastActivity: "정보 없음",
			Needs:        "정보 없음",
		},
		Ranking: []RankingEntry{{Name: "데이터 없음", Score: 0}},
	}
}
