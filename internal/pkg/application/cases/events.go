package cases

import (
	"encoding/json"
	"time"

	"github.com/frankss230/AFE-plus-2/pkg/types"
)

type CaseCreated struct {
	Case      types.Case `json:"case"`
	Timestamp time.Time  `json:"timestamp"`
}

func (e *CaseCreated) ContentType() string {
	return "application/json"
}
func (e *CaseCreated) TopicName() string {
	return "cases.caseCreated"
}
func (e *CaseCreated) Body() []byte {
	b, _ := json.Marshal(e)
	return b
}

type CaseAccepted struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actorId"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *CaseAccepted) ContentType() string {
	return "application/json"
}
func (e *CaseAccepted) TopicName() string {
	return "cases.caseAccepted"
}
func (e *CaseAccepted) Body() []byte {
	b, _ := json.Marshal(e)
	return b
}

type CaseClosed struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actorId"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *CaseClosed) ContentType() string {
	return "application/json"
}
func (e *CaseClosed) TopicName() string {
	return "cases.caseClosed"
}
func (e *CaseClosed) Body() []byte {
	b, _ := json.Marshal(e)
	return b
}
