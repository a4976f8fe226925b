package amqp

import (
	"encoding/json"
	"time"
)

// WithdrawalNotifyMessage carries the id of a recorded cardless withdrawal.
// The notify worker fetches the full row from the database, so the message
// stays small and re-deliverable.
type WithdrawalNotifyMessage struct {
	WithdrawalID int64     `json:"withdrawal_id"`
	Timestamp    time.Time `json:"timestamp"`
}

func NewWithdrawalNotifyMessage(withdrawalID int64) *WithdrawalNotifyMessage {
	return &WithdrawalNotifyMessage{
		WithdrawalID: withdrawalID,
		Timestamp:    time.Now(),
	}
}

func (m *WithdrawalNotifyMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func WithdrawalNotifyMessageFromJSON(data []byte) (*WithdrawalNotifyMessage, error) {
	var msg WithdrawalNotifyMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
