package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"NewsPipeline/internal/domain"
	"NewsPipeline/internal/ports"
)

const (
	defaultBaseURL = "https://api.telegram.org"
	// Telegram rejects messages longer than 4096 characters.
	maxMessageRunes = 4096
	maxErrorRunes   = 500
)

var errMisconfigured = errors.New("telegram notifier misconfigured")

// Notifier posts dead-letter alerts to a Telegram chat via the bot API.
type Notifier struct {
	baseURL  string
	botToken string
	chatID   string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier. An empty baseURL targets the public API.
func NewNotifier(baseURL, botToken, chatID string) *Notifier {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Notifier{
		baseURL:  strings.TrimRight(baseURL, "/"),
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// NotifyDeadLetter tells the operator chat that an article stopped retrying.
func (n *Notifier) NotifyDeadLetter(ctx context.Context, alert domain.DeadLetter) error {
	return n.send(ctx, FormatDeadLetter(alert))
}

// FormatDeadLetter renders the alert as plain text: headline, article line, then the last error.
func FormatDeadLetter(alert domain.DeadLetter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Article %d dead-lettered after %d attempts\n", alert.ArticleID, alert.RetryCount)
	title := strings.TrimSpace(alert.Title)
	if title == "" {
		title = "(untitled)"
	}
	if alert.Source != "" {
		fmt.Fprintf(&b, "%s (%s)\n", title, alert.Source)
	} else {
		fmt.Fprintf(&b, "%s\n", title)
	}
	if alert.URL != "" {
		fmt.Fprintf(&b, "%s\n", alert.URL)
	}
	if alert.LastError != "" {
		fmt.Fprintf(&b, "Last error: %s", clip(alert.LastError, maxErrorRunes))
	}
	return clip(strings.TrimRight(b.String(), "\n"), maxMessageRunes)
}

func (n *Notifier) send(ctx context.Context, text string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return errMisconfigured
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send dead-letter alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}
	return nil
}

func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

// Nop discards alerts. It is used when Telegram is not configured.
type Nop struct{}

var _ ports.Notifier = Nop{}

// NotifyDeadLetter does nothing.
func (Nop) NotifyDeadLetter(context.Context, domain.DeadLetter) error { return nil }
