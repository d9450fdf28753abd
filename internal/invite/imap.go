package invite

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// Message is a raw mailbox message identified by its UID.
type Message struct {
	UID uint32
	Raw []byte
}

// IMAPMailbox reads unseen messages from an IMAP folder over TLS.
// Each call opens its own connection; the agent polls once a minute.
type IMAPMailbox struct {
	addr     string
	username string
	password string
	mailbox  string
	timeout  time.Duration
}

// NewIMAPMailbox creates a mailbox client for the given server and folder.
func NewIMAPMailbox(addr, username, password, mailbox string) *IMAPMailbox {
	if mailbox == "" {
		mailbox = "INBOX"
	}
	return &IMAPMailbox{
		addr:     addr,
		username: username,
		password: password,
		mailbox:  mailbox,
		timeout:  30 * time.Second,
	}
}

// Unseen returns every message without the \Seen flag. Bodies are fetched
// with BODY.PEEK so the flags are left untouched.
func (m *IMAPMailbox) Unseen(ctx context.Context) ([]Message, error) {
	c, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.logout(c)

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("search unseen: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	ch := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, ch)
	}()

	var out []Message
	for msg := range ch {
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			slog.Warn("failed to read message body", "uid", msg.Uid, "error", err)
			continue
		}
		out = append(out, Message{UID: msg.Uid, Raw: raw})
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch unseen: %w", err)
	}
	return out, nil
}

// MarkSeen sets the \Seen flag on the given messages.
func (m *IMAPMailbox) MarkSeen(ctx context.Context, uids []uint32) error {
	if len(uids) == 0 {
		return nil
	}
	c, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.logout(c)

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := c.UidStore(seqset, item, []interface{}{imap.SeenFlag}, nil); err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	return nil
}

func (m *IMAPMailbox) connect(ctx context.Context) (*client.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := client.DialTLS(m.addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", m.addr, err)
	}
	c.Timeout = m.timeout

	if err := c.Login(m.username, m.password); err != nil {
		m.logout(c)
		return nil, fmt.Errorf("login: %w", err)
	}
	if _, err := c.Select(m.mailbox, false); err != nil {
		m.logout(c)
		return nil, fmt.Errorf("select %s: %w", m.mailbox, err)
	}
	return c, nil
}

func (m *IMAPMailbox) logout(c *client.Client) {
	if err := c.Logout(); err != nil {
		slog.Debug("imap logout failed", "error", err)
	}
}
