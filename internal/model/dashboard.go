package model

// UserDashboard holds the headline numbers for a user's dashboard.
type UserDashboard struct {
	AttemptCount   int              `json:"attempt_count"`
	TotalScore     int              `json:"total_score"`
	TotalQuestions int              `json:"total_questions"`
	BestAccuracy   float64          `json:"best_accuracy"`
	RecentAttempts []AttemptSummary `json:"recent_attempts"`
	WeakTopics     []TopicStat      `json:"weak_topics"`
}

// AdminDashboard holds platform-wide counts for the admin dashboard.
type AdminDashboard struct {
	UserCount     int `json:"user_count"`
	QuestionCount int `json:"question_count"`
	TopicCount    int `json:"topic_count"`
	MockTestCount int `json:"mock_test_count"`
	AttemptCount  int `json:"attempt_count"`
}
