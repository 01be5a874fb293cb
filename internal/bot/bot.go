// Package bot is the Telegram front end: it lists repertoires, drills lines
// move by move and collects the 0-5 ratings of finished lines.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/reptrainer/internal/lines"
	"github.com/example/reptrainer/internal/logger"
	"github.com/example/reptrainer/internal/scheduler"
	"github.com/example/reptrainer/internal/training"
	"github.com/example/reptrainer/pkg/models"
)

// Callback data prefixes
const (
	callbackMainMenu    = "main_menu"
	callbackRepertoires = "repertoires"
	callbackDue         = "due"
	callbackTrain       = "train:" // train:<repertoire id>[:due]
	callbackRate        = "rate:"  // rate:<quality>
	callbackHint        = "hint"
	callbackStop        = "stop"
	callbackMoreLines   = "more_lines"
	callbackDelete      = "delete:" // delete:<repertoire id>
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// Trainer is the application service the bot drives
type Trainer interface {
	Repertoires(ctx context.Context) ([]models.Repertoire, error)
	FindRepertoire(ctx context.Context, ref string) (*models.Repertoire, error)
	Chapters(ctx context.Context, repertoireID string) ([]models.Chapter, error)
	FindChapter(ctx context.Context, repertoireID, ref string) (*models.Chapter, error)
	DeleteRepertoire(ctx context.Context, id string) error
	StartTraining(ctx context.Context, cfg models.TrainingConfig) (*training.Session, error)
	SaveRating(ctx context.Context, res training.RateResult) error
	FinishSession(ctx context.Context, sess *training.Session) (*models.SessionResult, error)
	StartDrill(ctx context.Context, cfg models.TrainingConfig) (*training.Drill, error)
	FinishDrill(ctx context.Context, d *training.Drill) (*models.SessionResult, error)
	IsMastered(stats *models.LineStats) bool
	LineStatuses(ctx context.Context, lineIDs []string) (map[string]models.LineStats, error)
	Summary(ctx context.Context, repertoireID string) (*models.StatsSummary, error)
	DueCounts(ctx context.Context) (map[string]int, error)
	DueLines(ctx context.Context, repertoireID string, limit int) ([]models.LineStats, error)
	BrowseLines(ctx context.Context, rep *models.Repertoire, chapterRef string, batchSize int) (*lines.Generator, *models.Chapter, error)
}

// sender is the part of the Telegram API the bot uses
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// chatSession is the training state of one chat. Exactly one of session
// and drill is set. Both are only touched while holding Bot.mu.
type chatSession struct {
	repertoireID string
	session      *training.Session
	drill        *training.Drill
	// wrong answers on the current prompt
	wrongTries int
}

// browseState is the /lines pager of one chat
type browseState struct {
	generator *lines.Generator
	chapter   string
	shown     int // loaded lines already sent
}

// Bot represents the Telegram bot application
type Bot struct {
	api     sender
	token   string
	trainer Trainer
	config  *BotConfig
	log     *logger.Logger

	mu       sync.Mutex
	sessions map[int64]*chatSession
	browsing map[int64]*browseState
}

// New creates a new bot instance. The Telegram connection is made by Start.
func New(token string, trainer Trainer, config *BotConfig, log *logger.Logger) (*Bot, error) {
	if token == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN is not set")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Bot{
		token:    token,
		trainer:  trainer,
		config:   config,
		log:      log.With("component", "bot"),
		sessions: make(map[int64]*chatSession),
		browsing: make(map[int64]*browseState),
	}, nil
}

// Start connects to Telegram and handles updates until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	botAPI, err := tgbotapi.NewBotAPI(b.token)
	if err != nil {
		return fmt.Errorf("unable to create bot: %w", err)
	}
	b.api = botAPI
	b.log.Info("authorized", "account", botAPI.Self.UserName)

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := botAPI.GetUpdatesChan(updateConfig)

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			botAPI.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.handleUpdate(ctx, update)
			}()
		}
	}
}

// Stop records the sessions still open as abandoned
func (b *Bot) Stop(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for chatID, cs := range b.sessions {
		if _, err := b.finish(ctx, cs); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
		delete(b.sessions, chatID)
	}
	b.log.Info("bot stopped")
	return errors.Join(errs...)
}

// SendReminders implements the scheduler.Notifier interface
func (b *Bot) SendReminders(chatID int64, reminders []scheduler.Reminder) error {
	if b.api == nil {
		return errors.New("bot is not started")
	}
	if chatID == 0 {
		chatID = b.config.OwnerChatID
	}

	var text strings.Builder
	var buttons [][]MenuButton
	text.WriteString("⏰ Lines to review:\n")
	for _, r := range reminders {
		fmt.Fprintf(&text, "• %s: %d %s\n", r.Name, r.Due, plural(r.Due, "line", "lines"))
		buttons = append(buttons, []MenuButton{{
			Text:         "🎯 " + r.Name,
			CallbackData: callbackTrain + r.RepertoireID + ":due",
		}})
	}

	msg := tgbotapi.NewMessage(chatID, text.String())
	msg.ReplyMarkup = createKeyboard(buttons)
	if err := b.sendMessage(msg); err != nil {
		return err
	}
	b.log.Debug("reminder sent", "chat", chatID, "repertoires", len(reminders))
	return nil
}

func (b *Bot) sendMessage(msg tgbotapi.Chattable) error {
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	return b.sendMessage(tgbotapi.NewMessage(chatID, text))
}

// isOwner checks whether the chat may use the bot
func (b *Bot) isOwner(chatID int64) bool {
	return b.config.OwnerChatID == 0 || b.config.OwnerChatID == chatID
}

// handleUpdate handles incoming updates from Telegram
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	var err error
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		message := update.Message
		if !b.isOwner(message.Chat.ID) {
			b.log.Warn("message from unknown chat ignored", "chat", message.Chat.ID)
			return
		}
		if message.IsCommand() {
			err = b.HandleCommand(ctx, message)
		} else {
			err = b.handleMoveText(ctx, message.Chat.ID, message.Text)
		}
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		callback := update.CallbackQuery
		if !b.isOwner(callback.Message.Chat.ID) {
			return
		}
		err = b.handleCallbackQuery(ctx, callback)
	}
	if err != nil {
		b.log.Error("failed to handle update", "update", update.UpdateID, "error", err)
	}
}

// handleCallbackQuery handles callback queries from buttons
func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	chatID := callback.Message.Chat.ID
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); err != nil {
		b.log.Warn("failed to answer callback", "error", err)
	}

	switch data := callback.Data; {
	case data == callbackMainMenu:
		return b.showMainMenu(chatID)
	case data == callbackRepertoires:
		return b.handleRepertoires(ctx, chatID)
	case data == callbackDue:
		return b.handleDue(ctx, chatID)
	case data == callbackHint:
		return b.handleHint(chatID)
	case data == callbackStop:
		return b.handleStop(ctx, chatID)
	case data == callbackMoreLines:
		return b.showMoreLines(ctx, chatID)
	case strings.HasPrefix(data, callbackDelete):
		return b.deleteRepertoire(ctx, chatID, strings.TrimPrefix(data, callbackDelete))
	case strings.HasPrefix(data, callbackTrain):
		parts := strings.Split(strings.TrimPrefix(data, callbackTrain), ":")
		cfg := models.TrainingConfig{
			RepertoireID: parts[0],
			Mode:         b.config.DefaultMode,
			DueOnly:      len(parts) > 1 && parts[1] == "due",
		}
		return b.startTraining(ctx, chatID, cfg)
	case strings.HasPrefix(data, callbackRate):
		quality, err := strconv.Atoi(strings.TrimPrefix(data, callbackRate))
		if err != nil {
			return fmt.Errorf("invalid rating %q: %w", data, err)
		}
		return b.handleRate(ctx, chatID, quality)
	}
	return nil
}

// showMainMenu shows the main menu
func (b *Bot) showMainMenu(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, "Main Menu - choose an option:")
	msg.ReplyMarkup = createKeyboard(b.MainMenuButtons())
	return b.sendMessage(msg)
}

// MainMenuButtons returns the buttons for the main menu
func (b *Bot) MainMenuButtons() [][]MenuButton {
	return [][]MenuButton{
		{
			{Text: "📚 Repertoires", CallbackData: callbackRepertoires},
			{Text: "⏰ Due lines", CallbackData: callbackDue},
		},
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
