package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"puck-scanner/internal/domain/entity"
	"puck-scanner/internal/domain/port"
)

// JSONLinesSink пишет каждый отчёт отдельной строкой JSON.
type JSONLinesSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONLinesSink(w io.Writer) *JSONLinesSink {
	return &JSONLinesSink{enc: json.NewEncoder(w)}
}

func (s *JSONLinesSink) PublishPlate(ctx context.Context, report entity.PlateReport) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(report); err != nil {
		return fmt.Errorf("write plate report: %w", err)
	}
	return nil
}

var _ port.PlateSink = (*JSONLinesSink)(nil)
