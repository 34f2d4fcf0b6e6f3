package telemetry

import (
	"encoding/json"
	"time"

	"github.com/frankss230/AFE-plus-2/pkg/types"
)

type AlertFired struct {
	Stream    string     `json:"stream"`
	Pair      types.Pair `json:"pair"`
	Status    int        `json:"status"`
	Value     float64    `json:"value,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

func (e *AlertFired) ContentType() string {
	return "application/json"
}
func (e *AlertFired) TopicName() string {
	return "telemetry.alertFired"
}
func (e *AlertFired) Body() []byte {
	b, _ := json.Marshal(e)
	return b
}
