package telegram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	app "puck-scanner/internal/application"
	"puck-scanner/internal/domain/entity"
	"puck-scanner/internal/infrastructure/storage"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
	err  error
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, c)
	return tgbotapi.Message{}, s.err
}

func (s *fakeSender) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func (s *fakeSender) photos() []tgbotapi.PhotoConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []tgbotapi.PhotoConfig
	for _, c := range s.sent {
		if p, ok := c.(tgbotapi.PhotoConfig); ok {
			out = append(out, p)
		}
	}
	return out
}

type fakePipeline struct {
	cmds []entity.Command
	err  error
}

func (p *fakePipeline) Send(_ context.Context, cmd entity.Command) error {
	p.cmds = append(p.cmds, cmd)
	return p.err
}

type fakeStill struct {
	out *app.StillOutput
	err error
	got []byte
}

func (s *fakeStill) ScanImage(_ context.Context, data []byte) (*app.StillOutput, error) {
	s.got = data
	return s.out, s.err
}

type fakeLast struct {
	report *entity.PlateReport
}

func (l fakeLast) LastReport() (entity.PlateReport, bool) {
	if l.report == nil {
		return entity.PlateReport{}, false
	}
	return *l.report, true
}

type fixture struct {
	bot       *Bot
	out       *fakeSender
	pipeline  *fakePipeline
	still     *fakeStill
	operators *app.OperatorService
}

func newFixture(last *entity.PlateReport) *fixture {
	f := &fixture{
		out:       &fakeSender{},
		pipeline:  &fakePipeline{},
		still:     &fakeStill{},
		operators: app.NewOperatorService(storage.NewMemoryOperatorRepository()),
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.bot = newBot(f.out, f.operators, f.pipeline, f.still, fakeLast{report: last}, log)
	f.bot.download = func(fileID string) ([]byte, error) {
		return []byte("photo:" + fileID), nil
	}
	return f
}

func command(userID, chatID int64, text string) *tgbotapi.Message {
	end := len(text)
	for i, r := range text {
		if r == ' ' {
			end = i
			break
		}
	}
	return &tgbotapi.Message{
		Text:     text,
		From:     &tgbotapi.User{ID: userID},
		Chat:     &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: end}},
	}
}

func photo(userID, chatID int64) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: chatID},
		Photo: []tgbotapi.PhotoSize{
			{FileID: "small", Width: 90},
			{FileID: "big", Width: 1280},
		},
	}
}

func TestBot_StartSubscribes(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	f.bot.handleMessage(ctx, command(1, 10, "/start"))

	chats, err := f.operators.Subscribers(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{10}, chats)
	require.Equal(t, []string{msgStart}, f.out.texts())

	f.bot.handleMessage(ctx, command(1, 10, "/unsubscribe"))
	chats, err = f.operators.Subscribers(ctx)
	require.NoError(t, err)
	require.Empty(t, chats)
}

func TestBot_CameraCommands(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	f.bot.handleMessage(ctx, command(1, 10, "/top"))
	f.bot.handleMessage(ctx, command(1, 10, "/side"))
	f.bot.handleMessage(ctx, command(1, 10, "/stop"))

	require.Equal(t, []entity.Command{
		entity.StartCommand(entity.CameraTop),
		entity.StartCommand(entity.CameraSide),
		entity.StopCommand(),
	}, f.pipeline.cmds)
	texts := f.out.texts()
	require.Len(t, texts, 3)
	require.Contains(t, texts[0], "top")
	require.Equal(t, msgStopped, texts[2])
}

func TestBot_CommandFailureReported(t *testing.T) {
	f := newFixture(nil)
	f.pipeline.err = context.Canceled

	f.bot.handleMessage(context.Background(), command(1, 10, "/top"))
	require.Equal(t, []string{msgCommandError}, f.out.texts())
}

func TestBot_Last(t *testing.T) {
	f := newFixture(nil)
	f.bot.handleMessage(context.Background(), command(1, 10, "/last"))
	require.Equal(t, []string{msgNoLastPlate}, f.out.texts())

	report := &entity.PlateReport{
		PlateID:    "0123456789",
		Camera:     entity.CameraTop,
		ValidCount: 1,
		Slots:      []entity.SlotReport{{Number: 1, State: "valid", Data: "P01"}},
	}
	f = newFixture(report)
	f.bot.handleMessage(context.Background(), command(1, 10, "/last"))
	require.Equal(t, []string{app.FormatReport(*report)}, f.out.texts())
}

func TestBot_UnknownCommandAndText(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	f.bot.handleMessage(ctx, command(1, 10, "/nope"))
	f.bot.handleMessage(ctx, &tgbotapi.Message{
		Text: "привет",
		From: &tgbotapi.User{ID: 1},
		Chat: &tgbotapi.Chat{ID: 10},
	})
	require.Equal(t, []string{msgUnknownCommand, msgSendPhoto}, f.out.texts())
}

func TestBot_PhotoSendsHighlight(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	report := &entity.PlateReport{PlateID: "abc", Camera: entity.CameraTop, Complete: true}
	f.still.out = &app.StillOutput{Report: report, Highlighted: []byte("jpeg")}

	f.bot.handleMessage(ctx, command(1, 10, "/scan"))
	op, err := f.operators.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.OperatorAwaitingPhoto, op.State)

	f.bot.handleMessage(ctx, photo(1, 10))

	require.Equal(t, []byte("photo:big"), f.still.got)
	photos := f.out.photos()
	require.Len(t, photos, 1)
	require.Equal(t, app.FormatReport(*report), photos[0].Caption)
	require.Equal(t, int64(10), photos[0].ChatID)

	op, err = f.operators.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.OperatorIdle, op.State)
}

func TestBot_PhotoWithoutPlate(t *testing.T) {
	f := newFixture(nil)
	f.still.out = &app.StillOutput{}
	f.still.err = entity.ErrNoBarcodesDetected

	f.bot.handleMessage(context.Background(), photo(1, 10))
	require.Equal(t, []string{msgProcessing, msgNoPlate}, f.out.texts())
	require.Empty(t, f.out.photos())
}

func TestBot_PhotoDownloadError(t *testing.T) {
	f := newFixture(nil)
	f.bot.download = func(string) ([]byte, error) { return nil, errors.New("boom") }

	f.bot.handleMessage(context.Background(), photo(1, 10))
	require.Equal(t, []string{msgProcessing, msgProcessingError}, f.out.texts())
	require.Nil(t, f.still.got)
}

func TestBot_NotifySubscribers(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	_, err := f.operators.Subscribe(ctx, 1, 10)
	require.NoError(t, err)
	_, err = f.operators.Subscribe(ctx, 2, 20)
	require.NoError(t, err)
	_, err = f.operators.Get(ctx, 3, 30)
	require.NoError(t, err)

	require.NoError(t, f.bot.Notify(ctx, "готово"))
	require.Equal(t, []string{"готово", "готово"}, f.out.texts())

	f.out.err = errors.New("blocked")
	require.Error(t, f.bot.Notify(ctx, "снова"))
}
