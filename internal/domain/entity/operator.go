package entity

// OperatorState состояние диалога оператора с ботом.
type OperatorState string

const (
	OperatorIdle          OperatorState = "idle"           // ждёт команд
	OperatorAwaitingPhoto OperatorState = "awaiting_photo" // ждёт фото держателя
	OperatorProcessing    OperatorState = "processing"     // фото сканируется
)

// Operator оператор станции, работающий через Telegram.
type Operator struct {
	ID         int64 // Telegram User ID
	ChatID     int64 // Telegram Chat ID
	State      OperatorState
	Subscribed bool // получает уведомления о готовых держателях
}

// NewOperator создаёт оператора без подписки.
func NewOperator(userID, chatID int64) *Operator {
	return &Operator{
		ID:     userID,
		ChatID: chatID,
		State:  OperatorIdle,
	}
}

func (o *Operator) SetState(state OperatorState) {
	o.State = state
}

func (o *Operator) Subscribe()   { o.Subscribed = true }
func (o *Operator) Unsubscribe() { o.Subscribed = false }
