package telegram

import (
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/qualifyodds/internal/models"
)

type fakeBot struct {
	failures int
	calls    int
	last     tgbotapi.MessageConfig
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.calls++
	f.last = c.(tgbotapi.MessageConfig)
	if f.calls <= f.failures {
		return tgbotapi.Message{}, errors.New("Too Many Requests")
	}
	return tgbotapi.Message{MessageID: f.calls}, nil
}

func testReport() *models.Report {
	return &models.Report{
		Meta: models.Meta{
			Today:             time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC),
			Mode:              models.ModeSurvival,
			DistrictsRequired: 26,
		},
		Overall: models.Overall{PQualify: 0.8734, ExpectedDistricts: 26.4, OverallProbDelta: -0.021},
		Snapshot: models.SnapshotSection{
			NewlyMet:    []int{3, 17},
			NewlyFailed: []int{9},
			Anomalies: []models.AnomalyRecord{
				{Date: time.Date(2026, 2, 18, 0, 0, 0, 0, time.UTC), District: 9, PrevCount: 5000, CurCount: 4800, DropPct: 0.04},
			},
		},
		Statewide: models.StatewideBlock{CurrentTotal: 141000, Target: 140748, Probability: 1},
	}
}

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"87.3%", "87\\.3%"},
		{"(D1)", "\\(D1\\)"},
		{"-2.1%", "\\-2\\.1%"},
		{"a_b*c", "a\\_b\\*c"},
		{`back\slash`, `back\\slash`},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		result := escapeMarkdownV2(tt.input)
		if result != tt.expected {
			t.Errorf("escapeMarkdownV2(%q) = %q, expected %q", tt.input, result, tt.expected)
		}
	}
}

func TestFormatReport(t *testing.T) {
	msg := FormatReport(testReport())

	for _, want := range []string{
		"2026\\-02\\-20 \\(survival mode\\)",
		"📉 P\\(qualify\\): *87\\.3%* \\(\\-2\\.1%\\)",
		"Expected districts: 26\\.4 of 26 needed",
		"Newly met: D3, D17",
		"Fell below: D9",
		"D9: 5000 → 4800 \\(\\-4\\.0%\\) on 2026\\-02\\-18",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatReportQuietRun(t *testing.T) {
	r := testReport()
	r.Snapshot = models.SnapshotSection{}
	r.Overall.OverallProbDelta = 0

	msg := FormatReport(r)
	if strings.Contains(msg, "Newly met") || strings.Contains(msg, "Anomalies") {
		t.Errorf("quiet run should omit change sections:\n%s", msg)
	}
	if !strings.Contains(msg, "➡️") {
		t.Errorf("unchanged odds should use the flat arrow:\n%s", msg)
	}
}

func TestSendReportRetries(t *testing.T) {
	bot := &fakeBot{failures: 2}
	c, err := newClient(bot, "12345", 3, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}

	if err := c.SendReport(testReport()); err != nil {
		t.Fatalf("SendReport failed: %v", err)
	}
	if bot.calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", bot.calls)
	}
	if bot.last.ChatID != 12345 || bot.last.ParseMode != tgbotapi.ModeMarkdownV2 {
		t.Errorf("Unexpected message config: chat=%d mode=%s", bot.last.ChatID, bot.last.ParseMode)
	}
}

func TestSendReportGivesUp(t *testing.T) {
	bot := &fakeBot{failures: 10}
	c, err := newClient(bot, "12345", 2, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SendReport(testReport()); err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	if bot.calls != 2 {
		t.Errorf("Expected 2 attempts, got %d", bot.calls)
	}
}

func TestNewClientRejectsBadChatID(t *testing.T) {
	if _, err := newClient(&fakeBot{}, "not-a-number", 3, time.Second); err == nil {
		t.Error("Expected error for invalid chat ID")
	}
}
