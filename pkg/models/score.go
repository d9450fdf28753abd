package models

import "time"

const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// Sentiment is a classifier verdict for one answer.
type Sentiment struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// QAExchange pairs an interviewer question with the candidate's answer.
type QAExchange struct {
	Question       string  `json:"question"`
	Answer         string  `json:"answer"`
	Sentiment      string  `json:"sentiment"`
	SentimentConf  float64 `json:"sentiment_confidence"`
	SentimentScore int     `json:"sentiment_score"`
	Relevance      int     `json:"relevance"`
	Similarity     float64 `json:"raw_similarity"`
}

// SentimentTally counts exchanges per sentiment bucket.
type SentimentTally struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// CommunicationMetrics describes how the conversation flowed, independent of
// what was said.
type CommunicationMetrics struct {
	TurnCount              int     `json:"turn_count"`
	CandidateTalkSeconds   float64 `json:"candidate_talk_seconds"`
	InterviewerTalkSeconds float64 `json:"interviewer_talk_seconds"`
	CandidateTalkShare     float64 `json:"candidate_talk_share"`
	AvgAnswerWords         float64 `json:"avg_answer_words"`
	AvgResponseLatency     float64 `json:"avg_response_latency_seconds"`
	FillerWordRate         float64 `json:"filler_word_rate"`
}

// ScoreResult is computed once per transcript and never modified afterwards.
type ScoreResult struct {
	Tally      SentimentTally       `json:"summary"`
	Exchanges  []QAExchange         `json:"exchanges"`
	Rating     float64              `json:"final_rating"`
	Selected   bool                 `json:"selected"`
	Rejection  string               `json:"rejection_reason,omitempty"`
	Pros       []string             `json:"pros"`
	Cons       []string             `json:"cons"`
	Metrics    CommunicationMetrics `json:"communication_metrics"`
	Skipped    bool                 `json:"skipped"`
	SkipReason string               `json:"skip_reason,omitempty"`
}

// CandidateReport is the durable form of a ScoreResult.
type CandidateReport struct {
	SessionID     string               `json:"session_id"`
	CandidateID   string               `json:"candidate_id"`
	CreatedAt     time.Time            `json:"created_at"`
	Date          string               `json:"date"`
	Time          string               `json:"time"`
	ExchangeCount int                  `json:"exchange_count"`
	Exchanges     []ReportExchange     `json:"exchanges"`
	Metrics       CommunicationMetrics `json:"communication_metrics"`
	Summary       SentimentTally       `json:"summary"`
	Rating        float64              `json:"final_rating"`
	Selected      bool                 `json:"selected"`
	Verdict       string               `json:"verdict"`
	Pros          []string             `json:"pros"`
	Cons          []string             `json:"cons"`
}

// ReportExchange is the per-exchange projection stored in a CandidateReport.
type ReportExchange struct {
	Question   string  `json:"question"`
	Answer     string  `json:"answer"`
	Sentiment  string  `json:"sentiment"`
	Relevance  int     `json:"relevance"`
	Similarity float64 `json:"raw_similarity"`
}

// ReportSummary is the list projection served by the read API.
type ReportSummary struct {
	Filename    string         `json:"filename"`
	CandidateID string         `json:"candidate_id"`
	CreatedAt   time.Time      `json:"created_at"`
	Summary     SentimentTally `json:"summary"`
	Rating      float64        `json:"final_rating"`
	Selected    bool           `json:"selected"`
}
