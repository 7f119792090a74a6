package models

// Submission 사용자의 플래그 제출 기록입니다. 생성 후에는 삭제만 가능합니다
type Submission struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ChallengeID uint       `gorm:"not null;index:idx_submission_challenge_user,priority:1" json:"challenge_id"`
	UserID      string     `gorm:"size:32;not null;index:idx_submission_challenge_user,priority:2" json:"user_id"`
	Flag        string     `gorm:"size:255;not null" json:"flag"`
	Timestamp   UnixMillis `gorm:"column:submitted_at;not null" json:"timestamp"`
	IsCorrect   bool       `gorm:"column:correct;not null" json:"correct"`
}

// TableName 테이블 이름을 지정합니다
func (Submission) TableName() string {
	return "submission"
}

// UserSubmissions 한 사용자의 제출 기록 요약
type UserSubmissions struct {
	UserID      string
	Submissions []Submission
	Solved      bool
}

// GroupByUser 제출 기록을 사용자별로 묶습니다. 사용자 순서는 첫 제출 순서를 따릅니다
func GroupByUser(submissions []Submission) []UserSubmissions {
	index := make(map[string]int)
	groups := make([]UserSubmissions, 0)
	for _, s := range submissions {
		i, ok := index[s.UserID]
		if !ok {
			i = len(groups)
			index[s.UserID] = i
			groups = append(groups, UserSubmissions{UserID: s.UserID})
		}
		groups[i].Submissions = append(groups[i].Submissions, s)
		if s.IsCorrect {
			groups[i].Solved = true
		}
	}
	return groups
}

// FirstSolves 정답 제출 중 사용자별 첫 번째만 남깁니다. 입력 순서를 유지합니다
func FirstSolves(submissions []Submission) []Submission {
	seen := make(map[string]bool)
	solves := make([]Submission, 0, len(submissions))
	for _, s := range submissions {
		if !s.IsCorrect || seen[s.UserID] {
			continue
		}
		seen[s.UserID] = true
		solves = append(solves, s)
	}
	return solves
}
