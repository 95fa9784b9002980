package storage

import "github.com/dialtone/callcenter/backend/internal/types"

// Store defines the storage interface
type Store interface {
	SaveCallRecord(record types.CallRecord) error
	SaveEscalationEvent(record types.EscalationRecord) error
	SaveMetricSnapshot(record types.MetricSnapshotRecord) error
	GetCallRecords(dateKey string) ([]types.CallRecord, error)
	GetEscalations(callID string) ([]types.EscalationRecord, error)
	GetAgentMetricSnapshots(agentID string) ([]types.MetricSnapshotRecord, error)
	TruncateAll() error
}

// NoopStore is a no-op implementation when DynamoDB is disabled
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (s *NoopStore) SaveCallRecord(_ types.CallRecord) error               { return nil }
func (s *NoopStore) SaveEscalationEvent(_ types.EscalationRecord) error    { return nil }
func (s *NoopStore) SaveMetricSnapshot(_ types.MetricSnapshotRecord) error { return nil }
func (s *NoopStore) GetCallRecords(_ string) ([]types.CallRecord, error)   { return nil, nil }
func (s *NoopStore) GetEscalations(_ string) ([]types.EscalationRecord, error) {
	return nil, nil
}
func (s *NoopStore) GetAgentMetricSnapshots(_ string) ([]types.MetricSnapshotRecord, error) {
	return nil, nil
}
func (s *NoopStore) TruncateAll() error { return nil }
