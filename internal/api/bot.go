package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	app "puck-scanner/internal/application"
	"puck-scanner/internal/domain/entity"
	"puck-scanner/internal/domain/port"
)

const (
	msgStart = `👋 Привет! Я бот станции сканирования держателей.

🔔 Вы подписаны на уведомления о готовых держателях.

📋 Команды:
/top — сканировать верхней камерой
/side — сканировать боковой камерой
/stop — остановить сканирование
/last — последний держатель
/scan — распознать держатель по фото
/help — справка`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Поставьте держатель под камеру и выберите камеру: /top или /side
2️⃣ Когда все слоты прочитаны, придёт уведомление со списком штрихкодов
3️⃣ Можно прислать фото держателя: бот распознает его и вернёт подсветку слотов

💡 Рекомендации:
• Держатель должен целиком помещаться в кадр
• Избегайте бликов на штрихкодах

📋 Команды:
/top, /side, /stop — управление сканированием
/last — последний держатель
/unsubscribe — отключить уведомления
/cancel — отменить операцию`

	msgAwaitingPhoto   = "📸 Отправьте фото держателя."
	msgCancelled       = "❌ Операция отменена."
	msgUnsubscribed    = "🔕 Уведомления отключены. /start, чтобы включить снова."
	msgSendPhoto       = "📸 Отправьте фото держателя или используйте /help."
	msgUnknownCommand  = "❓ Неизвестная команда. Используйте /help для справки."
	msgProcessing      = "⏳ Обрабатываю изображение..."
	msgNoPlate         = "🔍 Держатель на фото не найден."
	msgNoLastPlate     = "Пока не было ни одного держателя."
	msgStopped         = "⏹ Сканирование остановлено."
	msgProcessingError = "⚠️ Не удалось обработать изображение. Попробуйте сделать другое фото."
	msgCommandError    = "⚠️ Не удалось передать команду сканеру."
)

// sender часть BotAPI, которой пользуется бот.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// PipelineControl управление конвейером кадров.
type PipelineControl interface {
	Send(ctx context.Context, cmd entity.Command) error
}

// StillScanner распознавание держателя по фото.
type StillScanner interface {
	ScanImage(ctx context.Context, data []byte) (*app.StillOutput, error)
}

// LastReporter последний отчёт конвейера.
type LastReporter interface {
	LastReport() (entity.PlateReport, bool)
}

// Bot представляет Telegram-бота оператора
type Bot struct {
	api       *tgbotapi.BotAPI
	out       sender
	download  func(fileID string) ([]byte, error)
	operators *app.OperatorService
	pipeline  PipelineControl
	still     StillScanner
	last      LastReporter
	log       *slog.Logger
}

// NewBot создаёт нового бота
func NewBot(token string, operators *app.OperatorService, pipeline PipelineControl, still StillScanner, last LastReporter, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	log.Info("telegram: authorized", "account", api.Self.UserName)

	b := newBot(api, operators, pipeline, still, last, log)
	b.api = api
	b.download = b.downloadFile
	return b, nil
}

func newBot(out sender, operators *app.OperatorService, pipeline PipelineControl, still StillScanner, last LastReporter, log *slog.Logger) *Bot {
	return &Bot{
		out:       out,
		operators: operators,
		pipeline:  pipeline,
		still:     still,
		last:      last,
		log:       log,
	}
}

// Run запускает основной цикл обработки сообщений до отмены ctx
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// Notify рассылает текст подписанным операторам
func (b *Bot) Notify(ctx context.Context, text string) error {
	chats, err := b.operators.Subscribers(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, chatID := range chats {
		if _, err := b.out.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	return errors.Join(errs...)
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	op, err := b.operators.Get(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		b.log.Error("telegram: failed to get operator", "user_id", msg.From.ID, "error", err)
		return
	}

	// Обработка команд
	if msg.IsCommand() {
		b.handleCommand(ctx, msg, op)
		return
	}

	// Обработка фото
	if len(msg.Photo) > 0 {
		b.handlePhoto(ctx, msg)
		return
	}

	b.sendMessage(msg.Chat.ID, msgSendPhoto)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, op *entity.Operator) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		if _, err := b.operators.Subscribe(ctx, op.ID, chatID); err != nil {
			b.log.Error("telegram: failed to subscribe", "user_id", op.ID, "error", err)
		}
		b.sendMessage(chatID, msgStart)

	case "help":
		b.sendMessage(chatID, msgHelp)

	case "top":
		b.startCamera(ctx, chatID, entity.CameraTop)

	case "side":
		b.startCamera(ctx, chatID, entity.CameraSide)

	case "stop":
		if err := b.pipeline.Send(ctx, entity.StopCommand()); err != nil {
			b.log.Error("telegram: failed to stop pipeline", "error", err)
			b.sendMessage(chatID, msgCommandError)
			return
		}
		b.sendMessage(chatID, msgStopped)

	case "last":
		report, ok := b.last.LastReport()
		if !ok {
			b.sendMessage(chatID, msgNoLastPlate)
			return
		}
		b.sendMessage(chatID, app.FormatReport(report))

	case "scan":
		if _, err := b.operators.AwaitPhoto(ctx, op.ID, chatID); err != nil {
			b.log.Error("telegram: failed to save operator", "user_id", op.ID, "error", err)
		}
		b.sendMessage(chatID, msgAwaitingPhoto)

	case "unsubscribe":
		if _, err := b.operators.Unsubscribe(ctx, op.ID, chatID); err != nil {
			b.log.Error("telegram: failed to unsubscribe", "user_id", op.ID, "error", err)
		}
		b.sendMessage(chatID, msgUnsubscribed)

	case "cancel":
		if _, err := b.operators.Cancel(ctx, op.ID, chatID); err != nil {
			b.log.Error("telegram: failed to save operator", "user_id", op.ID, "error", err)
		}
		b.sendMessage(chatID, msgCancelled)

	default:
		b.sendMessage(chatID, msgUnknownCommand)
	}
}

func (b *Bot) startCamera(ctx context.Context, chatID int64, pos entity.CameraPosition) {
	if err := b.pipeline.Send(ctx, entity.StartCommand(pos)); err != nil {
		b.log.Error("telegram: failed to start pipeline", "camera", pos, "error", err)
		b.sendMessage(chatID, msgCommandError)
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("▶️ Сканирование камерой %s запущено.", pos))
}

// handlePhoto распознаёт держатель на фото и отвечает подсветкой
func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	userID, chatID := msg.From.ID, msg.Chat.ID
	if _, err := b.operators.SetState(ctx, userID, chatID, entity.OperatorProcessing); err != nil {
		b.log.Error("telegram: failed to save operator", "user_id", userID, "error", err)
	}
	defer func() {
		if _, err := b.operators.Cancel(ctx, userID, chatID); err != nil {
			b.log.Error("telegram: failed to save operator", "user_id", userID, "error", err)
		}
	}()

	b.sendMessage(chatID, msgProcessing)

	// Получаем файл с максимальным разрешением
	photo := msg.Photo[len(msg.Photo)-1]

	imageData, err := b.download(photo.FileID)
	if err != nil {
		b.log.Error("telegram: failed to download photo", "error", err)
		b.sendMessage(chatID, msgProcessingError)
		return
	}

	scanCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	out, err := b.still.ScanImage(scanCtx, imageData)
	switch {
	case errors.Is(err, entity.ErrNoBarcodesDetected):
		b.sendMessage(chatID, msgNoPlate)
		return
	case err != nil || out == nil || out.Report == nil:
		b.log.Warn("telegram: still scan failed", "bytes", len(imageData), "error", err)
		b.sendMessage(chatID, msgProcessingError)
		return
	}

	text := app.FormatReport(*out.Report)
	if len(out.Highlighted) == 0 {
		b.sendMessage(chatID, text)
		return
	}
	b.sendPhoto(chatID, out.Highlighted, text)
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	fileURL := file.Link(b.api.Token)

	resp, err := http.Get(fileURL)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.out.Send(msg); err != nil {
		b.log.Error("telegram: failed to send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) sendPhoto(chatID int64, jpeg []byte, caption string) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "plate.jpg", Bytes: jpeg})
	photo.Caption = caption
	if _, err := b.out.Send(photo); err != nil {
		b.log.Error("telegram: failed to send photo", "chat_id", chatID, "error", err)
	}
}

var _ port.Notifier = (*Bot)(nil)
