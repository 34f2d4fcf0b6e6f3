package types

import "fmt"

type ActionKind string

const (
	ActionKindAccept ActionKind = "accept"
	ActionKindClose  ActionKind = "close"
)

// Action is the postback descriptor that the notification channel sends
// back when somebody presses a button on a delivered alert. Unknown kinds
// are rejected at the boundary.
type Action struct {
	Kind        ActionKind `json:"action"`
	CaseID      string     `json:"caseId"`
	CaretakerID string     `json:"caretakerId"`
	DependentID string     `json:"dependentId"`
	ActorChatID string     `json:"actorChatId"`
}

func (a Action) Validate() error {
	switch a.Kind {
	case ActionKindAccept, ActionKindClose:
	default:
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}

	if a.CaseID == "" {
		return fmt.Errorf("action is missing caseId")
	}
	if a.ActorChatID == "" {
		return fmt.Errorf("action is missing actorChatId")
	}

	return nil
}
