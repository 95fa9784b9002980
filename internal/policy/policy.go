package policy

import "github.com/dialtone/callcenter/backend/internal/types"

// Verdict is the outcome of evaluating a conversation turn.
type Verdict int

const (
	Continue Verdict = iota
	Escalate
	Complete
)

// Decision carries the verdict and, for escalations, the reason.
type Decision struct {
	Verdict Verdict
	Reason  types.EscalationReason
}

// Config holds the tunable thresholds.
type Config struct {
	QualityThreshold int // scores strictly below this escalate
	MaxTurns         int // customer turns strictly above this escalate
}

// Policy decides, after each conversation turn, whether a call keeps
// going, escalates to a supervisor, or completes. Pure decision
// function, no mutable state.
type Policy struct {
	cfg Config
}

// New creates a Policy with the given thresholds.
func New(cfg Config) Policy {
	return Policy{cfg: cfg}
}

// Turn is the policy's view of the latest exchange.
type Turn struct {
	Score      int  // 1-5 quality/sentiment score, 0 if unscored
	Resolved   bool // conversation capability signalled resolution
	WantsHuman bool // customer explicitly asked for a human/supervisor
}

// Decide evaluates the rules in fixed order; first match wins.
func (p Policy) Decide(customerTurns int, turn Turn) Decision {
	if turn.Score > 0 && turn.Score < p.cfg.QualityThreshold {
		return Decision{Verdict: Escalate, Reason: types.ReasonLowQualityScore}
	}
	if customerTurns > p.cfg.MaxTurns && !turn.Resolved {
		return Decision{Verdict: Escalate, Reason: types.ReasonTurnLimitExceeded}
	}
	if turn.WantsHuman {
		return Decision{Verdict: Escalate, Reason: types.ReasonExplicitRequest}
	}
	if turn.Resolved {
		return Decision{Verdict: Complete}
	}
	return Decision{Verdict: Continue}
}
