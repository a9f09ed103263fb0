package models

import "time"

type Account struct {
	ID          int64
	Email       string
	DisplayName string
	PassHash    []byte
	IsVerified  bool
	IsAdmin     bool
	CreatedAt   time.Time
}

const (
	PurposeSignup        = "signup"
	PurposePasswordReset = "password_reset"
)

// Challenge is a single verification context: a 6-digit code plus the metadata
// needed to enforce the attempt limit and TTL.
type Challenge struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Email     string    `json:"email"`
	AccountID int64     `json:"account_id"`
	Purpose   string    `json:"purpose"`
	IssuedAt  time.Time `json:"issued_at"`
	Attempts  int       `json:"attempts"`
}

func (c *Challenge) IsExpired(ttl time.Duration, now time.Time) bool {
	return now.Sub(c.IssuedAt) > ttl
}

func (c *Challenge) IsExhausted(maxAttempts int) bool {
	return c.Attempts >= maxAttempts
}

const (
	CourseStatusPending  = "pending"
	CourseStatusApproved = "approved"
	CourseStatusRejected = "rejected"
)

type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Platform    string    `json:"platform"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	Link        string    `json:"link"`
	Duration    string    `json:"duration"`
	Level       string    `json:"level"`
	Topics      []string  `json:"topics"`
	Rating      float64   `json:"rating"`
	Learners    int64     `json:"learners"`
	Status      string    `json:"status"`
	Feedback    string    `json:"feedback,omitempty"`
	CreatedBy   int64     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

type Message struct {
	Email   string `json:"to"`
	Code    string `json:"code"`
	Purpose string `json:"purpose"`
}
