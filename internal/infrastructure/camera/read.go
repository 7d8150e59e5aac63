package camera

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"
)

type readResult struct {
	img image.Image
	err error
}

// pendingRead не даёт запустить второе чтение устройства, пока первое не вернулось.
// Чтение, не дождавшееся получателя, забирает следующий вызов. Используется из одной горутины.
type pendingRead struct {
	pending chan readResult
	wg      sync.WaitGroup
}

func (r *pendingRead) do(ctx context.Context, timeout time.Duration, read func() readResult) (readResult, error) {
	if r.pending == nil {
		done := make(chan readResult, 1)
		r.pending = done
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			done <- read()
		}()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return readResult{}, ctx.Err()
	case <-timer.C:
		return readResult{}, fmt.Errorf("read timeout after %s", timeout)
	case res := <-r.pending:
		r.pending = nil
		return res, nil
	}
}

// wait дожидается незавершённого чтения.
func (r *pendingRead) wait() {
	r.wg.Wait()
}
