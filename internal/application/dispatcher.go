package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"puck-scanner/internal/domain/entity"
	"puck-scanner/internal/domain/port"
)

// ResultDispatcher разбирает очереди конвейера: запоминает последний держатель,
// публикует каждый заполненный держатель один раз и пересылает предупреждения операторам.
type ResultDispatcher struct {
	sinks     []port.PlateSink
	notifier  port.Notifier
	log       *slog.Logger
	mu        sync.RWMutex
	last      *entity.PlateReport
	published map[uuid.UUID]struct{}
}

// NewResultDispatcher создаёт диспетчер. notifier может быть nil.
func NewResultDispatcher(notifier port.Notifier, log *slog.Logger, sinks ...port.PlateSink) *ResultDispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &ResultDispatcher{
		sinks:     sinks,
		notifier:  notifier,
		log:       log,
		published: make(map[uuid.UUID]struct{}),
	}
}

// Run читает очереди до отмены ctx или их закрытия.
func (d *ResultDispatcher) Run(ctx context.Context, results <-chan entity.ScanResult, messages <-chan entity.Message) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case r, ok := <-results:
			if !ok {
				return nil
			}
			d.HandleResult(ctx, r)
		case m, ok := <-messages:
			if !ok {
				return nil
			}
			d.HandleMessage(ctx, m)
		}
	}
}

// HandleResult обрабатывает результат сканирования.
func (d *ResultDispatcher) HandleResult(ctx context.Context, r entity.ScanResult) {
	if r.Plate == nil {
		return
	}
	report := r.Plate.Report(r.Camera, r.Timestamp)
	d.mu.Lock()
	d.last = &report
	_, done := d.published[r.Plate.ID()]
	publish := report.Complete && !done
	if publish {
		d.published[r.Plate.ID()] = struct{}{}
	}
	d.mu.Unlock()

	if !publish {
		return
	}
	d.log.Info("dispatcher: plate complete", "plate_id", report.PlateID, "camera", report.Camera, "valid", report.ValidCount)
	for _, sink := range d.sinks {
		if err := sink.PublishPlate(ctx, report); err != nil {
			d.log.Error("dispatcher: failed to publish plate", "plate_id", report.PlateID, "error", err)
		}
	}
	d.notify(ctx, FormatReport(report))
}

// HandleMessage логирует сообщение конвейера, предупреждения и ошибки пересылает операторам.
func (d *ResultDispatcher) HandleMessage(ctx context.Context, m entity.Message) {
	switch m.Level {
	case entity.LevelError:
		d.log.Error("dispatcher: pipeline message", "camera", m.Camera, "text", m.Text)
	case entity.LevelWarning:
		d.log.Warn("dispatcher: pipeline message", "camera", m.Camera, "text", m.Text)
	default:
		d.log.Info("dispatcher: pipeline message", "camera", m.Camera, "text", m.Text)
		return
	}
	d.notify(ctx, fmt.Sprintf("[%s] %s", m.Camera, m.Text))
}

// LastReport отчёт по последнему держателю.
func (d *ResultDispatcher) LastReport() (entity.PlateReport, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.last == nil {
		return entity.PlateReport{}, false
	}
	return *d.last, true
}

// SetNotifier подключает получателя уведомлений после создания диспетчера.
func (d *ResultDispatcher) SetNotifier(n port.Notifier) {
	d.mu.Lock()
	d.notifier = n
	d.mu.Unlock()
}

func (d *ResultDispatcher) notify(ctx context.Context, text string) {
	d.mu.RLock()
	n := d.notifier
	d.mu.RUnlock()
	if n == nil {
		return
	}
	if err := n.Notify(ctx, text); err != nil {
		d.log.Warn("dispatcher: notification failed", "error", err)
	}
}

// FormatReport текстовое представление отчёта для оператора.
func FormatReport(r entity.PlateReport) string {
	var b strings.Builder
	status := "в процессе"
	if r.Complete {
		status = "готов"
	}
	fmt.Fprintf(&b, "Держатель %s (%s, камера %s): %s, прочитано %d\n", shortID(r.PlateID), r.Kind, r.Camera, status, r.ValidCount)

	slots := append([]entity.SlotReport(nil), r.Slots...)
	sort.Slice(slots, func(i, j int) bool { return slots[i].Number < slots[j].Number })
	for _, s := range slots {
		if s.Data != "" {
			fmt.Fprintf(&b, "%2d: %s\n", s.Number, s.Data)
		} else {
			fmt.Fprintf(&b, "%2d: %s\n", s.Number, s.State)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
