package app

import (
	"context"

	"puck-scanner/internal/domain/entity"
	"puck-scanner/internal/domain/port"
)

// OperatorService управляет состоянием операторов и подписками.
type OperatorService struct {
	repo port.OperatorRepository
}

func NewOperatorService(repo port.OperatorRepository) *OperatorService {
	return &OperatorService{repo: repo}
}

func (s *OperatorService) Get(ctx context.Context, userID, chatID int64) (*entity.Operator, error) {
	return s.repo.Get(ctx, userID, chatID)
}

func (s *OperatorService) SetState(ctx context.Context, userID, chatID int64, state entity.OperatorState) (*entity.Operator, error) {
	op, err := s.repo.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	op.SetState(state)
	if err := s.repo.Save(ctx, op); err != nil {
		return nil, err
	}

	return op, nil
}

// Subscribe включает уведомления о готовых держателях.
func (s *OperatorService) Subscribe(ctx context.Context, userID, chatID int64) (*entity.Operator, error) {
	return s.update(ctx, userID, chatID, (*entity.Operator).Subscribe)
}

func (s *OperatorService) Unsubscribe(ctx context.Context, userID, chatID int64) (*entity.Operator, error) {
	return s.update(ctx, userID, chatID, (*entity.Operator).Unsubscribe)
}

func (s *OperatorService) AwaitPhoto(ctx context.Context, userID, chatID int64) (*entity.Operator, error) {
	return s.SetState(ctx, userID, chatID, entity.OperatorAwaitingPhoto)
}

func (s *OperatorService) Cancel(ctx context.Context, userID, chatID int64) (*entity.Operator, error) {
	return s.SetState(ctx, userID, chatID, entity.OperatorIdle)
}

// Subscribers чаты подписанных операторов.
func (s *OperatorService) Subscribers(ctx context.Context) ([]int64, error) {
	ops, err := s.repo.Subscribers(ctx)
	if err != nil {
		return nil, err
	}
	chats := make([]int64, 0, len(ops))
	for _, op := range ops {
		chats = append(chats, op.ChatID)
	}
	return chats, nil
}

func (s *OperatorService) update(ctx context.Context, userID, chatID int64, fn func(*entity.Operator)) (*entity.Operator, error) {
	op, err := s.repo.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	fn(op)
	if err := s.repo.Save(ctx, op); err != nil {
		return nil, err
	}
	return op, nil
}
