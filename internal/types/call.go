package types

import "time"

// CallState is the lifecycle state of a call.
type CallState string

const (
	CallStateQueued     CallState = "queued"      // waiting in a department queue
	CallStateInProgress CallState = "in_progress" // assigned to an agent
	CallStateEscalated  CallState = "escalated"   // waiting in the supervisor queue
	CallStateCompleted  CallState = "completed"
	CallStateAbandoned  CallState = "abandoned"
)

// Terminal reports whether no further transitions are allowed.
func (s CallState) Terminal() bool {
	return s == CallStateCompleted || s == CallStateAbandoned
}

// Speaker identifies who produced a conversation turn.
type Speaker string

const (
	SpeakerCustomer Speaker = "customer"
	SpeakerAgent    Speaker = "agent"
	SpeakerSystem   Speaker = "system"
)

// Turn is a single utterance in a call's conversation.
// Score is the 1-5 quality/sentiment rating supplied by the
// conversation capability; 0 means unscored.
type Turn struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Score     int       `json:"score,omitempty"`
}

// Call is a customer contact being handled by the engine.
type Call struct {
	ID           string            `json:"callId"`
	CustomerID   string            `json:"customerId"`
	Department   Department        `json:"department"`
	Priority     Priority          `json:"priority"`
	State        CallState         `json:"state"`
	AgentID      string            `json:"agentId,omitempty"`
	Escalated    bool              `json:"escalated"`
	CreatedAt    time.Time         `json:"createdAt"`
	LastActivity time.Time         `json:"lastActivity"`
	EnqueueTime  time.Time         `json:"enqueueTime"`
	AssignTime   *time.Time        `json:"assignTime,omitempty"`
	EndedAt      *time.Time        `json:"endedAt,omitempty"`
	Outcome      string            `json:"outcome,omitempty"`
	Turns        []Turn            `json:"turns,omitempty"`
	Escalations  []EscalationEvent `json:"escalations,omitempty"`
}

// CustomerTurns counts the turns spoken by the customer.
func (c *Call) CustomerTurns() int {
	n := 0
	for _, t := range c.Turns {
		if t.Speaker == SpeakerCustomer {
			n++
		}
	}
	return n
}

// AverageScore returns the mean of all scored turns, or 0 when no
// turn has been scored yet.
func (c *Call) AverageScore() float64 {
	sum, n := 0, 0
	for _, t := range c.Turns {
		if t.Score > 0 {
			sum += t.Score
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

// FinalScore returns the score of the last scored turn, or 0.
func (c *Call) FinalScore() int {
	for i := len(c.Turns) - 1; i >= 0; i-- {
		if c.Turns[i].Score > 0 {
			return c.Turns[i].Score
		}
	}
	return 0
}

// Duration is the call's age, or its total lifetime once ended.
func (c *Call) Duration() time.Duration {
	if c.EndedAt != nil {
		return c.EndedAt.Sub(c.CreatedAt)
	}
	return time.Since(c.CreatedAt)
}

// HandleTime is the time spent with an agent, used for rolling
// average handle time per department. Zero for never-assigned calls.
func (c *Call) HandleTime() time.Duration {
	if c.AssignTime == nil {
		return 0
	}
	if c.EndedAt != nil {
		return c.EndedAt.Sub(*c.AssignTime)
	}
	return time.Since(*c.AssignTime)
}
