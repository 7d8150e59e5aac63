package storage

import (
	"context"
	"sort"
	"sync"

	"puck-scanner/internal/domain/entity"
	"puck-scanner/internal/domain/port"
)

// MemoryOperatorRepository in-memory хранилище операторов.
// Наружу отдаются только копии, изменения попадают в хранилище через Save.
type MemoryOperatorRepository struct {
	mu        sync.RWMutex
	operators map[int64]entity.Operator
}

// NewMemoryOperatorRepository создаёт новое in-memory хранилище
func NewMemoryOperatorRepository() *MemoryOperatorRepository {
	return &MemoryOperatorRepository{
		operators: make(map[int64]entity.Operator),
	}
}

// Get возвращает оператора по ID, создаёт нового если не найден
func (r *MemoryOperatorRepository) Get(ctx context.Context, userID, chatID int64) (*entity.Operator, error) {
	r.mu.RLock()
	op, exists := r.operators[userID]
	r.mu.RUnlock()

	if exists {
		return &op, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Пока ждали блокировку, оператора мог создать другой обработчик
	if op, exists := r.operators[userID]; exists {
		return &op, nil
	}
	op = *entity.NewOperator(userID, chatID)
	r.operators[userID] = op

	return &op, nil
}

// Save сохраняет состояние оператора
func (r *MemoryOperatorRepository) Save(ctx context.Context, op *entity.Operator) error {
	r.mu.Lock()
	r.operators[op.ID] = *op
	r.mu.Unlock()

	return nil
}

// Subscribers возвращает подписанных операторов в порядке ID
func (r *MemoryOperatorRepository) Subscribers(ctx context.Context) ([]*entity.Operator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entity.Operator
	for _, op := range r.operators {
		if op.Subscribed {
			out = append(out, &op)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

// Проверка реализации интерфейса
var _ port.OperatorRepository = (*MemoryOperatorRepository)(nil)
