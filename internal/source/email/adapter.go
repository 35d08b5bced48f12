// Package email turns property inquiries received by mail into pushed
// notifications.
package email

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	gosync "sync"
	"time"

	"github.com/nhle/notifybell/internal/model"
)

// SourceName identifies the inquiry mailbox in statuses and logs.
const SourceName = "inbox"

// InquiryType is the notification type assigned to mailed inquiries.
const InquiryType = "inquiry"

// lookback bounds how far back each poll searches.
const lookback = 7 * 24 * time.Hour

// fetchLimit caps the number of messages fetched per poll.
const fetchLimit = 50

// CursorStore persists the UID high-water mark between runs.
type CursorStore interface {
	LoadCursor(ctx context.Context, source string) (uint32, error)
	SaveCursor(ctx context.Context, source string, cursor uint32) error
}

// Adapter implements source.PushSource for an IMAP mailbox.
type Adapter struct {
	imapClient *IMAPClient
	username   string
	cursorKey  string
	now        func() time.Time

	mu           gosync.Mutex
	cursors      CursorStore
	cursorLoaded bool
	lastUID      uint32
	savedUID     uint32
}

// NewAdapter creates a new inquiry mailbox adapter.
func NewAdapter(
	host, port, username, password, mailbox string,
	useTLS bool,
) *Adapter {
	return &Adapter{
		imapClient: NewIMAPClient(
			host, port, username, password, mailbox, useTLS,
		),
		username:  username,
		cursorKey: fmt.Sprintf("%s:%s@%s/%s", SourceName, username, host, mailbox),
		now:       time.Now,
	}
}

// WithCursorStore makes the adapter resume from the last delivered UID
// of a previous run instead of re-delivering the lookback window.
func (a *Adapter) WithCursorStore(cs CursorStore) *Adapter {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cursors = cs
	return a
}

// Name implements source.PushSource.
func (a *Adapter) Name() string { return SourceName }

// ValidateConnection verifies IMAP credentials by connecting,
// authenticating, and selecting the mailbox.
func (a *Adapter) ValidateConnection(
	ctx context.Context,
) (string, error) {
	count, err := a.imapClient.ValidateMailbox(ctx)
	if err != nil {
		return "", fmt.Errorf("validating inbox connection: %w", err)
	}
	return fmt.Sprintf("%s (%d messages)", a.username, count), nil
}

// Poll fetches recent messages and maps the undelivered ones to
// notifications.
func (a *Adapter) Poll(ctx context.Context) ([]model.Notification, error) {
	messages, err := a.imapClient.FetchRecent(
		ctx, a.now().Add(-lookback), fetchLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("polling inbox: %w", err)
	}

	return a.deliver(ctx, messages)
}

// deliver resumes from the stored cursor, maps the fresh messages and
// stores the advanced cursor. A failed save is retried on the next poll.
func (a *Adapter) deliver(ctx context.Context, messages []ParsedMessage) ([]model.Notification, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cursors != nil && !a.cursorLoaded {
		uid, err := a.cursors.LoadCursor(ctx, a.cursorKey)
		if err != nil {
			return nil, fmt.Errorf("loading inbox cursor: %w", err)
		}
		a.lastUID = max(a.lastUID, uid)
		a.savedUID = uid
		a.cursorLoaded = true
	}

	out := a.freshLocked(messages)

	if a.cursors != nil && a.lastUID != a.savedUID {
		if err := a.cursors.SaveCursor(ctx, a.cursorKey, a.lastUID); err == nil {
			a.savedUID = a.lastUID
		}
	}
	return out, nil
}

// freshLocked maps the messages above the UID high-water mark and
// advances it, so removed notifications are not delivered again.
func (a *Adapter) freshLocked(messages []ParsedMessage) []model.Notification {
	out := make([]model.Notification, 0, len(messages))
	highest := a.lastUID
	for _, msg := range messages {
		if msg.Envelope.UID <= a.lastUID {
			continue
		}
		out = append(out, ToNotification(msg))
		highest = max(highest, msg.Envelope.UID)
	}
	a.lastUID = highest
	return out
}

// ToNotification maps a mailed inquiry to a notification. The id is a
// client id derived from the UID, so read state for it never reaches
// the backend.
func ToNotification(msg ParsedMessage) model.Notification {
	env := msg.Envelope

	name := strings.TrimSpace(env.FromName)
	if name == "" {
		name = env.FromAddr
	}

	title := strings.TrimSpace(env.Subject)
	if title == "" {
		title = "New inquiry"
	}

	message := collapseWhitespace(msg.Text())

	n := model.Notification{
		ID:    model.ParseID(fmt.Sprintf("mail-%d", env.UID)),
		Type:  InquiryType,
		Title: title,
		Body:  message,
		Data: map[string]any{
			"name":    name,
			"email":   env.FromAddr,
			"message": message,
		},
		Read: env.Seen(),
	}
	if !env.Date.IsZero() {
		created := env.Date.UTC().Format(time.RFC3339)
		n.CreatedAt = created
		n.Data["created_at"] = created
	}
	return n
}

var whitespacePattern = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// htmlTagPattern matches HTML tags for stripping.
var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// stripHTML removes HTML tags from a string and decodes common
// entities, providing a basic plain-text rendering.
func stripHTML(html string) string {
	if html == "" {
		return ""
	}

	result := html
	for _, tag := range []string{
		"<br>", "<br/>", "<br />", "</p>", "</div>", "</li>",
	} {
		result = strings.ReplaceAll(result, tag, "\n")
	}

	result = htmlTagPattern.ReplaceAllString(result, "")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	result = replacer.Replace(result)

	return strings.TrimSpace(result)
}
