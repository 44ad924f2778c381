package domain

import "time"

// Mode discriminates which result schema the completion is expected to follow.
type Mode string

const (
	// ModeResumeOnly is selected when no job description was supplied.
	ModeResumeOnly Mode = "resume_only"
	// ModeResumeJD is selected when a non-empty job description was supplied.
	ModeResumeJD Mode = "resume_jd"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session is the per-client server-side state: an optional authenticated
// identity plus the demo usage counter for unauthenticated analyses.
type Session struct {
	ID       string `json:"-"`
	UserID   string `json:"userId,omitempty"`
	Username string `json:"username,omitempty"`
	DemoUses int    `json:"demoUses"`
}

// Authenticated reports whether a login has been established on the session.
func (s Session) Authenticated() bool {
	return s.UserID != ""
}

// SectionFeedback carries per-section commentary from the model.
type SectionFeedback struct {
	Skills     string `json:"skills"`
	Projects   string `json:"projects"`
	Experience string `json:"experience"`
	Education  string `json:"education"`
}

// AnalysisResult is the structured assessment recovered from the model
// output. Keyword fields are only present in resume_jd mode; field names
// mirror the JSON schema the prompt demands from the model.
type AnalysisResult struct {
	Mode            Mode            `json:"mode"`
	ATSScore        float64         `json:"ats_score"`
	KeywordMatch    *float64        `json:"keyword_match,omitempty"`
	MatchedKeywords []string        `json:"matched_keywords,omitempty"`
	MissingKeywords []string        `json:"missing_keywords,omitempty"`
	Strengths       []string        `json:"strengths"`
	Weaknesses      []string        `json:"weaknesses"`
	Enhancements    []string        `json:"enhancements"`
	SectionFeedback SectionFeedback `json:"section_feedback"`
}

// DemoStatus reports remaining unauthenticated tries; RemainingTries is nil
// for authenticated sessions.
type DemoStatus struct {
	IsDemo         bool `json:"isDemo"`
	RemainingTries *int `json:"remainingTries"`
}
