package types

// CallRecord represents a closed call for DynamoDB persistence.
type CallRecord struct {
	DateKey         string     `json:"dateKey" dynamodbav:"DateKey"` // YYYY-MM-DD (partition key)
	CallID          string     `json:"callId" dynamodbav:"CallID"`   // sort key
	CustomerID      string     `json:"customerId" dynamodbav:"CustomerID"`
	Department      Department `json:"department" dynamodbav:"Department"`
	Priority        string     `json:"priority" dynamodbav:"Priority"`
	AgentID         string     `json:"agentId" dynamodbav:"AgentID"`
	Outcome         string     `json:"outcome" dynamodbav:"Outcome"`
	Escalated       bool       `json:"escalated" dynamodbav:"Escalated"`
	Abandoned       bool       `json:"abandoned" dynamodbav:"Abandoned"`
	CreatedAt       string     `json:"createdAt" dynamodbav:"CreatedAt"` // RFC3339
	EndedAt         string     `json:"endedAt" dynamodbav:"EndedAt"`    // RFC3339
	DurationSeconds float64    `json:"durationSeconds" dynamodbav:"DurationSeconds"`
	HandleSeconds   float64    `json:"handleSeconds" dynamodbav:"HandleSeconds"`
	TurnCount       int        `json:"turnCount" dynamodbav:"TurnCount"`
	AvgQualityScore float64    `json:"avgQualityScore" dynamodbav:"AvgQualityScore"`
	FinalScore      int        `json:"finalScore" dynamodbav:"FinalScore"`
}

// EscalationRecord persists one escalation event.
type EscalationRecord struct {
	CallID       string `json:"callId" dynamodbav:"CallID"`   // partition key
	EventID      string `json:"eventId" dynamodbav:"EventID"` // sort key
	Reason       string `json:"reason" dynamodbav:"Reason"`
	SupervisorID string `json:"supervisorId" dynamodbav:"SupervisorID"`
	Timestamp    string `json:"timestamp" dynamodbav:"Timestamp"` // RFC3339
}

// MetricSnapshotRecord persists one agent's aggregated metrics for a
// time bucket.
type MetricSnapshotRecord struct {
	AgentID         string  `json:"agentId" dynamodbav:"AgentID"` // partition key
	Bucket          string  `json:"bucket" dynamodbav:"Bucket"`   // sort key, RFC3339 bucket start
	CallsHandled    int     `json:"callsHandled" dynamodbav:"CallsHandled"`
	Escalations     int     `json:"escalations" dynamodbav:"Escalations"`
	AvgQualityScore float64 `json:"avgQualityScore" dynamodbav:"AvgQualityScore"`
	EscalationRate  float64 `json:"escalationRate" dynamodbav:"EscalationRate"`
	AvgSatisfaction float64 `json:"avgSatisfaction" dynamodbav:"AvgSatisfaction"`
}
