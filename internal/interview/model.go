package interview

import (
	"math"
	"time"

	"careerpilot-backend/internal/skillmatch"
)

// QuestionCount is the fixed number of questions in a session.
const QuestionCount = 5

// Evaluation is the model's judgement of a single answer.
type Evaluation struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// Answer is a scored response to one question.
type Answer struct {
	QuestionIndex int       `json:"questionIndex"`
	Answer        string    `json:"answer"`
	Score         int       `json:"score"`
	Feedback      string    `json:"feedback"`
	AnsweredAt    time.Time `json:"answeredAt"`
}

// Session is one mock interview.
type Session struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	JobID          string     `json:"jobId,omitempty"`
	JobDescription string     `json:"jobDescription"`
	Questions      []string   `json:"questions"`
	Answers        []Answer   `json:"answers"`
	CreatedAt      time.Time  `json:"createdAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// Results summarizes a session's answers.
type Results struct {
	OverallScore int    `json:"overallScore"`
	Status       string `json:"status"`
	Answered     int    `json:"answered"`
	Total        int    `json:"total"`
	Completed    bool   `json:"completed"`
}

// Answered reports whether question i already has an answer.
func (s Session) Answered(i int) bool {
	for _, a := range s.Answers {
		if a.QuestionIndex == i {
			return true
		}
	}
	return false
}

// Results computes the overall score as the rounded average answer score times ten.
func (s Session) Results() Results {
	r := Results{Answered: len(s.Answers), Total: len(s.Questions), Completed: s.CompletedAt != nil}
	if len(s.Answers) > 0 {
		sum := 0
		for _, a := range s.Answers {
			sum += a.Score
		}
		avg := float64(sum) / float64(len(s.Answers))
		r.OverallScore = int(math.Round(avg * 10))
	}
	r.Status = skillmatch.StatusFor(r.OverallScore)
	return r
}

// View is the session as returned over HTTP.
type View struct {
	Session
	Results Results `json:"results"`
}

func viewOf(s Session) View {
	if s.Answers == nil {
		s.Answers = []Answer{}
	}
	return View{Session: s, Results: s.Results()}
}
