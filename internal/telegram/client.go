// Package telegram sends a short run summary via the Telegram Bot API.
// Messages use MarkdownV2 and delivery is retried with linear backoff.
package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/qualifyodds/internal/models"
)

// sender is the subset of the bot API the client uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications
type Client struct {
	bot            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newClient(bot, chatID, maxRetries, retryDelayBase)
}

func newClient(bot sender, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// SendReport sends the run summary for a report
func (c *Client) SendReport(r *models.Report) error {
	msg := tgbotapi.NewMessage(c.chatID, FormatReport(r))
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// FormatReport renders the summary: overall odds and their movement, newly
// met or failed districts and any anomalies in the history.
func FormatReport(r *models.Report) string {
	var b strings.Builder

	b.WriteString("🗳 *Qualification Forecast*\n")
	fmt.Fprintf(&b, "📅 %s \\(%s mode\\)\n\n",
		escapeMarkdownV2(r.Meta.Today.Format("2006-01-02")), escapeMarkdownV2(string(r.Meta.Mode)))

	arrow := "➡️"
	switch {
	case r.Overall.OverallProbDelta > 0:
		arrow = "📈"
	case r.Overall.OverallProbDelta < 0:
		arrow = "📉"
	}
	fmt.Fprintf(&b, "%s P\\(qualify\\): *%s* \\(%s\\)\n",
		arrow, escapeMarkdownV2(formatPct(r.Overall.PQualify)), escapeMarkdownV2(formatSignedPct(r.Overall.OverallProbDelta)))
	fmt.Fprintf(&b, "📊 Expected districts: %s of %d needed\n",
		escapeMarkdownV2(fmt.Sprintf("%.1f", r.Overall.ExpectedDistricts)), r.Meta.DistrictsRequired)
	fmt.Fprintf(&b, "✍️ Verified: %s / %s \\(%s\\)\n",
		escapeMarkdownV2(strconv.Itoa(r.Statewide.CurrentTotal)), escapeMarkdownV2(strconv.Itoa(r.Statewide.Target)),
		escapeMarkdownV2(formatPct(r.Statewide.Probability)))

	if s := r.Snapshot; len(s.NewlyMet) > 0 || len(s.NewlyFailed) > 0 {
		b.WriteString("\n")
		if len(s.NewlyMet) > 0 {
			fmt.Fprintf(&b, "✅ Newly met: %s\n", formatDistricts(s.NewlyMet))
		}
		if len(s.NewlyFailed) > 0 {
			fmt.Fprintf(&b, "❌ Fell below: %s\n", formatDistricts(s.NewlyFailed))
		}
	}

	if anomalies := r.Snapshot.Anomalies; len(anomalies) > 0 {
		b.WriteString("\n⚠️ *Anomalies*\n")
		for i, a := range anomalies {
			if i == 3 {
				fmt.Fprintf(&b, "   \\+%d more\n", len(anomalies)-i)
				break
			}
			fmt.Fprintf(&b, "   D%d: %s → %s \\(%s\\) on %s\n",
				a.District,
				escapeMarkdownV2(strconv.Itoa(a.PrevCount)), escapeMarkdownV2(strconv.Itoa(a.CurCount)),
				escapeMarkdownV2(formatSignedPct(-a.DropPct)), escapeMarkdownV2(a.Date.Format("2006-01-02")))
		}
	}

	return b.String()
}

func formatDistricts(ds []int) string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = "D" + strconv.Itoa(d)
	}
	return escapeMarkdownV2(strings.Join(parts, ", "))
}

func formatPct(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}

func formatSignedPct(p float64) string {
	return fmt.Sprintf("%+.1f%%", p*100)
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
