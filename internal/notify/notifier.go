package notify

import (
	"fmt"
	"log"

	"chronovault/internal/events"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
}

// Telegram pushes alerts to a single chat. Passive: no commands, no
// polling loop.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{
		bot:    b,
		chatID: chatID,
	}, nil
}

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	_, _ = t.bot.Send(tgbot.NewMessage(t.chatID, msg))
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

// Stdout logs instead of sending. Used when no telegram token is set.
type Stdout struct{}

func NewStdout() *Stdout                           { return &Stdout{} }
func (s *Stdout) Send(msg string)                  { log.Println(msg) }
func (s *Stdout) Sendf(format string, args ...any) { log.Printf(format, args...) }

// DemotionAlerter is an event sink that tells the owner their
// autonomous strategy ran out of funds and stopped retrying.
type DemotionAlerter struct {
	n Notifier
}

func NewDemotionAlerter(n Notifier) *DemotionAlerter {
	return &DemotionAlerter{n: n}
}

func (a *DemotionAlerter) Emit(e events.Event) {
	d, ok := e.(events.AutonomousDemoted)
	if !ok {
		return
	}
	a.n.Sendf("Strategy %s (owner %s) demoted to manual: vault balance %d below required %d", d.ID, d.Owner, d.Balance, d.Required)
}
