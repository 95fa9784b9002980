package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/dialtone/callcenter/backend/internal/types"
)

// Aggregator rolls closed calls into time-bucketed per-agent totals.
// Reads are pure sums over the accumulated buckets; raw call history
// is never replayed at read time.
type Aggregator struct {
	mu sync.RWMutex

	granularity time.Duration
	buckets     map[bucketKey]*agentTotals

	// Rolling handle-time per department, feeding wait estimates.
	handleSum   map[types.Department]time.Duration
	handleCount map[types.Department]int

	recordedTotal int64
	startTime     time.Time
}

type bucketKey struct {
	agentID string
	bucket  time.Time
}

type agentTotals struct {
	callsHandled      int
	completed         int
	abandoned         int
	escalations       int
	qualitySum        float64
	qualityCount      int
	satisfactionSum   float64
	satisfactionCount int
	handleSeconds     float64
}

// New creates an Aggregator with the configured bucket granularity
// ("hour", "day" or "week").
func New(bucket string) *Aggregator {
	granularity := time.Hour
	switch bucket {
	case "day":
		granularity = 24 * time.Hour
	case "week":
		granularity = 7 * 24 * time.Hour
	}

	return &Aggregator{
		granularity: granularity,
		buckets:     make(map[bucketKey]*agentTotals),
		handleSum:   make(map[types.Department]time.Duration),
		handleCount: make(map[types.Department]int),
		startTime:   time.Now(),
	}
}

// Record folds one closed call into the totals. Abandoned calls count
// against quality (a floor-score satisfaction sample) but not against
// the escalation rate.
func (a *Aggregator) Record(call *types.Call) {
	if !call.State.Terminal() {
		return
	}

	ended := time.Now()
	if call.EndedAt != nil {
		ended = *call.EndedAt
	}

	agentID := call.AgentID
	if agentID == "" {
		// Calls abandoned while still queued have no agent; keep them
		// visible in the global totals under a reserved key.
		agentID = "unassigned"
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	key := bucketKey{agentID: agentID, bucket: ended.Truncate(a.granularity)}
	totals, ok := a.buckets[key]
	if !ok {
		totals = &agentTotals{}
		a.buckets[key] = totals
	}

	totals.callsHandled++
	a.recordedTotal++

	if avg := call.AverageScore(); avg > 0 {
		totals.qualitySum += avg
		totals.qualityCount++
	}

	switch call.State {
	case types.CallStateAbandoned:
		totals.abandoned++
		totals.satisfactionSum += 1 // an abandoned customer is an unhappy one
		totals.satisfactionCount++
	case types.CallStateCompleted:
		totals.completed++
		if final := call.FinalScore(); final > 0 {
			totals.satisfactionSum += float64(final)
			totals.satisfactionCount++
		}
		if call.Escalated {
			totals.escalations++
		}
	}

	if handle := call.HandleTime(); handle > 0 {
		totals.handleSeconds += handle.Seconds()
		a.handleSum[call.Department] += handle
		a.handleCount[call.Department]++
	}
}

// AvgHandleTime returns the rolling average handle time for a
// department, false while no call has closed there yet.
func (a *Aggregator) AvgHandleTime(dept types.Department) (time.Duration, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	count := a.handleCount[dept]
	if count == 0 {
		return 0, false
	}
	return a.handleSum[dept] / time.Duration(count), true
}

// Summary aggregates buckets in [from, to) into per-agent metrics and
// global averages.
func (a *Aggregator) Summary(window string, from, to time.Time) types.PerformanceSummary {
	a.mu.RLock()
	defer a.mu.RUnlock()

	merged := make(map[string]*agentTotals)
	for key, totals := range a.buckets {
		bucketEnd := key.bucket.Add(a.granularity)
		if bucketEnd.Before(from) || !key.bucket.Before(to) {
			continue
		}
		m, ok := merged[key.agentID]
		if !ok {
			m = &agentTotals{}
			merged[key.agentID] = m
		}
		m.add(totals)
	}

	summary := types.PerformanceSummary{
		Window: window,
		From:   from,
		To:     to,
		Agents: make(map[string]types.AgentMetrics, len(merged)),
	}

	global := &agentTotals{}
	for agentID, totals := range merged {
		summary.Agents[agentID] = totals.metrics(agentID)
		global.add(totals)
	}

	globalMetrics := global.metrics("")
	summary.TotalCalls = global.callsHandled
	summary.AvgQualityScore = globalMetrics.AvgQualityScore
	summary.EscalationRate = globalMetrics.EscalationRate
	summary.AvgSatisfaction = globalMetrics.AvgSatisfaction
	return summary
}

// AgentSummary returns one agent's metrics over [from, to).
func (a *Aggregator) AgentSummary(agentID, window string, from, to time.Time) (types.AgentMetrics, bool) {
	summary := a.Summary(window, from, to)
	metrics, ok := summary.Agents[agentID]
	return metrics, ok
}

// SnapshotRecords exports the current totals as per-agent bucket
// records for persistence.
func (a *Aggregator) SnapshotRecords() []types.MetricSnapshotRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()

	records := make([]types.MetricSnapshotRecord, 0, len(a.buckets))
	for key, totals := range a.buckets {
		m := totals.metrics(key.agentID)
		records = append(records, types.MetricSnapshotRecord{
			AgentID:         key.agentID,
			Bucket:          key.bucket.Format(time.RFC3339),
			CallsHandled:    m.CallsHandled,
			Escalations:     m.Escalations,
			AvgQualityScore: m.AvgQualityScore,
			EscalationRate:  m.EscalationRate,
			AvgSatisfaction: m.AvgSatisfaction,
		})
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].AgentID != records[j].AgentID {
			return records[i].AgentID < records[j].AgentID
		}
		return records[i].Bucket < records[j].Bucket
	})
	return records
}

// RecordedTotal returns the number of closed calls folded in so far.
func (a *Aggregator) RecordedTotal() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.recordedTotal
}

// Uptime returns the time since the aggregator was created.
func (a *Aggregator) Uptime() time.Duration {
	return time.Since(a.startTime)
}

func (t *agentTotals) add(other *agentTotals) {
	t.callsHandled += other.callsHandled
	t.completed += other.completed
	t.abandoned += other.abandoned
	t.escalations += other.escalations
	t.qualitySum += other.qualitySum
	t.qualityCount += other.qualityCount
	t.satisfactionSum += other.satisfactionSum
	t.satisfactionCount += other.satisfactionCount
	t.handleSeconds += other.handleSeconds
}

func (t *agentTotals) metrics(agentID string) types.AgentMetrics {
	m := types.AgentMetrics{
		AgentID:      agentID,
		CallsHandled: t.callsHandled,
		Completed:    t.completed,
		Abandoned:    t.abandoned,
		Escalations:  t.escalations,
	}
	if t.qualityCount > 0 {
		m.AvgQualityScore = t.qualitySum / float64(t.qualityCount)
	}
	if t.satisfactionCount > 0 {
		m.AvgSatisfaction = t.satisfactionSum / float64(t.satisfactionCount)
	}
	// Abandoned calls are excluded from the escalation-rate denominator.
	if t.completed > 0 {
		m.EscalationRate = float64(t.escalations) / float64(t.completed) * 100.0
	}
	if t.callsHandled > 0 {
		m.AvgHandleSeconds = t.handleSeconds / float64(t.callsHandled)
	}
	return m
}
