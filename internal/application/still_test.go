package app

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"log/slog"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/require"

	"puck-scanner/internal/domain/entity"
)

type fakeRenderer struct {
	overlay entity.Overlay
	err     error
}

func (r *fakeRenderer) Highlight(_ image.Image, overlay entity.Overlay) ([]byte, error) {
	r.overlay = overlay
	if r.err != nil {
		return nil, r.err
	}
	return []byte("jpeg"), nil
}

func encodePNG(t *testing.T, f entity.Frame) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, f.Image))
	return buf.Bytes()
}

func TestStillScanService_ScanImage(t *testing.T) {
	renderer := &fakeRenderer{}
	svc := NewStillScanService(testScannerConfig(), fullPuckCodec(), renderer)

	out, err := svc.ScanImage(context.Background(), encodePNG(t, grayFrame(200)))
	require.NoError(t, err)
	require.NotNil(t, out.Report)
	require.True(t, out.Report.Complete)
	require.Equal(t, 16, out.Report.ValidCount)
	require.Equal(t, []byte("jpeg"), out.Highlighted)
	require.Len(t, renderer.overlay.Slots, 16)
	require.Equal(t, "16/16", renderer.overlay.Text)
}

func TestStillScanService_NoBarcodes(t *testing.T) {
	svc := NewStillScanService(testScannerConfig(), newFakeCodec(), nil)

	out, err := svc.ScanImage(context.Background(), encodePNG(t, grayFrame(200)))
	require.ErrorIs(t, err, entity.ErrNoBarcodesDetected)
	require.Nil(t, out.Report)
	require.Nil(t, out.Highlighted)
}

func TestStillScanService_BadInput(t *testing.T) {
	codec := newFakeCodec()
	readablePuck(codec, slotPoints(0, r2.Point{}), 1, 2, 3)
	svc := NewStillScanService(testScannerConfig(), codec, nil)

	_, err := svc.ScanImage(context.Background(), nil)
	require.Error(t, err)

	_, err = svc.ScanImage(context.Background(), []byte("not an image"))
	require.Error(t, err)
}

func TestStillScanService_RendererErrorIsLogged(t *testing.T) {
	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, nil))
	renderer := &fakeRenderer{err: errors.New("renderer unavailable")}
	svc := NewStillScanService(testScannerConfig(), fullPuckCodec(), renderer, WithLogger(log))

	out, err := svc.ScanImage(context.Background(), encodePNG(t, grayFrame(200)))
	require.NoError(t, err)
	require.NotNil(t, out.Report)
	require.Nil(t, out.Highlighted)
	require.Contains(t, logs.String(), "failed to highlight plate")
	require.Contains(t, logs.String(), "renderer unavailable")
}
