// Package session holds short-lived per-user conversation state and
// conversation memory.
package session

import (
	"encoding/json"
	"fmt"
	"time"
)

// State names a step of a multi-turn flow.
type State int

// Conversation states. Idle means no flow is open.
const (
	Idle State = iota
	WaitingBudgetCategory
	WaitingBudgetAmount
	WaitingRecurringName
	WaitingRecurringAmount
	WaitingRecurringFrequency
	WaitingTimezoneInput
	WaitingAIQuery
	WaitingReceiptUpload
)

var stateNames = map[State]string{
	Idle:                      "idle",
	WaitingBudgetCategory:     "waiting_budget_category",
	WaitingBudgetAmount:       "waiting_budget_amount",
	WaitingRecurringName:      "waiting_recurring_name",
	WaitingRecurringAmount:    "waiting_recurring_amount",
	WaitingRecurringFrequency: "waiting_recurring_frequency",
	WaitingTimezoneInput:      "waiting_timezone_input",
	WaitingAIQuery:            "waiting_ai_query",
	WaitingReceiptUpload:      "waiting_receipt_upload",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ParseState is the inverse of State.String.
func ParseState(name string) (State, bool) {
	for s, n := range stateNames {
		if n == name {
			return s, true
		}
	}
	return Idle, false
}

// Payload is the data carried by a non-idle state. Every payload type
// belongs to exactly one state.
type Payload interface {
	State() State
}

// BudgetCategory waits for the category of a budget to set or delete.
type BudgetCategory struct {
	Delete bool `json:"delete"`
}

// BudgetAmount waits for the monthly limit of Category.
type BudgetAmount struct {
	Category string `json:"category"`
}

// RecurringName waits for the name of a new recurring expense.
type RecurringName struct{}

// RecurringAmount waits for the amount of recurring expense Name.
type RecurringAmount struct {
	Name string `json:"name"`
}

// RecurringFrequency waits for how often recurring expense Name repeats.
type RecurringFrequency struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

// Timezone input modes.
const (
	TimezoneModeTime   = "time"
	TimezoneModeCity   = "city"
	TimezoneModeOffset = "offset"
)

// TimezoneInput waits for a local time, city or UTC offset.
type TimezoneInput struct {
	Mode string `json:"mode"`
}

// AIQuery waits for a question for the assistant.
type AIQuery struct{}

// ReceiptUpload waits for a receipt photo.
type ReceiptUpload struct{}

func (BudgetCategory) State() State     { return WaitingBudgetCategory }
func (BudgetAmount) State() State       { return WaitingBudgetAmount }
func (RecurringName) State() State      { return WaitingRecurringName }
func (RecurringAmount) State() State    { return WaitingRecurringAmount }
func (RecurringFrequency) State() State { return WaitingRecurringFrequency }
func (TimezoneInput) State() State      { return WaitingTimezoneInput }
func (AIQuery) State() State            { return WaitingAIQuery }
func (ReceiptUpload) State() State      { return WaitingReceiptUpload }

// Conversation is the live flow of one user. ExpiresAt is CreatedAt plus
// the store TTL, where CreatedAt is the time of the last write.
type Conversation struct {
	CreatedAt time.Time
	ExpiresAt time.Time
	Payload   Payload
	UserID    string
}

// State returns the state of the conversation's payload.
func (c Conversation) State() State {
	if c.Payload == nil {
		return Idle
	}
	return c.Payload.State()
}

func decodePayload(state State, raw json.RawMessage) (Payload, error) {
	switch state {
	case WaitingBudgetCategory:
		var v BudgetCategory
		err := json.Unmarshal(raw, &v)
		return v, err
	case WaitingBudgetAmount:
		var v BudgetAmount
		err := json.Unmarshal(raw, &v)
		return v, err
	case WaitingRecurringName:
		return RecurringName{}, nil
	case WaitingRecurringAmount:
		var v RecurringAmount
		err := json.Unmarshal(raw, &v)
		return v, err
	case WaitingRecurringFrequency:
		var v RecurringFrequency
		err := json.Unmarshal(raw, &v)
		return v, err
	case WaitingTimezoneInput:
		var v TimezoneInput
		err := json.Unmarshal(raw, &v)
		return v, err
	case WaitingAIQuery:
		return AIQuery{}, nil
	case WaitingReceiptUpload:
		return ReceiptUpload{}, nil
	default:
		return nil, fmt.Errorf("no payload for state %s", state)
	}
}
