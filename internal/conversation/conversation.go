// Package conversation defines the external conversation capability
// consumed by the call router. The engine never depends on a specific
// model provider; reply generation happens behind this interface.
package conversation

import (
	"context"

	"github.com/dialtone/callcenter/backend/internal/types"
)

// Reply is the capability's answer to a customer turn.
type Reply struct {
	Text         string `json:"replyText"`
	QualityScore int    `json:"qualityScore"` // 1-5
	Resolved     bool   `json:"resolved"`
	WantsHuman   bool   `json:"wantsHuman"`
}

// Capability generates a reply and a quality/sentiment score for the
// transcript so far. Implementations must honor the context deadline.
type Capability interface {
	GenerateReply(ctx context.Context, dept types.Department, transcript []types.Turn) (Reply, error)
}
