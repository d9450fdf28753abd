package invite

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/kiranshivaraju/interviewbot/pkg/models"
)

// ErrNoInvite is returned when a message does not carry a meeting invite.
var ErrNoInvite = errors.New("no meeting invite in message")

// DefaultLinkPattern matches Google Meet links.
const DefaultLinkPattern = `https://meet\.google\.com/[a-zA-Z0-9\-]+`

const maxPartSize = 10 << 20

// propConference is the property Google Calendar uses to carry the Meet link.
const propConference = "X-GOOGLE-CONFERENCE"

var subjectKeywords = []string{"interview", "meeting"}

// Scanner extracts meeting invites from raw RFC 822 messages.
type Scanner struct {
	pattern *regexp.Regexp
}

// NewScanner creates a Scanner matching links against pattern.
// An empty pattern selects DefaultLinkPattern.
func NewScanner(pattern string) (*Scanner, error) {
	if pattern == "" {
		pattern = DefaultLinkPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile link pattern: %w", err)
	}
	return &Scanner{pattern: re}, nil
}

type parts struct {
	calendars [][]byte
	plain     [][]byte
	html      [][]byte
}

// Scan parses a raw message and returns the invite it carries, or ErrNoInvite.
// Calendar attachments win over body text; a link found only in the body has a
// nil start time.
func (s *Scanner) Scan(raw io.Reader) (*models.MeetingInvite, error) {
	ent, err := message.Read(raw)
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return nil, fmt.Errorf("read message: %w", err)
	}

	h := mail.Header{Header: ent.Header}
	subject, _ := h.Subject()
	if !subjectMatches(subject) {
		return nil, ErrNoInvite
	}
	messageID, _ := h.MessageID()

	p, err := collectParts(ent)
	if err != nil {
		return nil, err
	}

	for _, cal := range p.calendars {
		link, start, err := s.fromCalendar(cal)
		if err != nil {
			slog.Warn("skipping undecodable calendar part", "message_id", messageID, "error", err)
			continue
		}
		if link == "" {
			continue
		}
		return &models.MeetingInvite{MessageID: messageID, Subject: subject, Link: link, StartAt: start}, nil
	}

	for _, body := range append(p.plain, p.html...) {
		if link := s.pattern.Find(body); link != nil {
			return &models.MeetingInvite{MessageID: messageID, Subject: subject, Link: string(link)}, nil
		}
	}

	return nil, ErrNoInvite
}

func subjectMatches(subject string) bool {
	lower := strings.ToLower(subject)
	for _, kw := range subjectKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func collectParts(ent *message.Entity) (*parts, error) {
	p := &parts{}
	err := ent.Walk(func(_ []int, part *message.Entity, err error) error {
		if err != nil {
			if message.IsUnknownCharset(err) || message.IsUnknownEncoding(err) {
				return nil
			}
			return err
		}
		mediaType, _, _ := part.Header.ContentType()
		if strings.HasPrefix(mediaType, "multipart/") {
			return nil
		}

		var dst *[][]byte
		switch mediaType {
		case "text/calendar", "application/ics":
			dst = &p.calendars
		case "text/plain", "":
			dst = &p.plain
		case "text/html":
			dst = &p.html
		default:
			return nil
		}

		body, err := io.ReadAll(io.LimitReader(part.Body, maxPartSize))
		if err != nil {
			return fmt.Errorf("read %s part: %w", mediaType, err)
		}
		*dst = append(*dst, body)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk message: %w", err)
	}
	return p, nil
}

// fromCalendar returns the link and start time of the first event in an
// iCalendar document. The link is empty when the event carries none.
func (s *Scanner) fromCalendar(data []byte) (string, *time.Time, error) {
	cal, err := ical.NewDecoder(bytes.NewReader(data)).Decode()
	if err != nil {
		return "", nil, fmt.Errorf("decode calendar: %w", err)
	}

	events := cal.Events()
	if len(events) == 0 {
		return "", nil, nil
	}
	ev := &events[0]

	var start *time.Time
	if t, err := ev.DateTimeStart(time.Local); err == nil && !t.IsZero() {
		start = &t
	}

	for _, name := range []string{ical.PropDescription, ical.PropLocation, propConference} {
		if link := s.pattern.FindString(propValue(ev.Props, name)); link != "" {
			return link, start, nil
		}
	}
	return "", start, nil
}

// propValue returns the unescaped text of a property, or its raw value when
// the property is not typed as text.
func propValue(props ical.Props, name string) string {
	prop := props.Get(name)
	if prop == nil {
		return ""
	}
	if text, err := prop.Text(); err == nil {
		return text
	}
	return prop.Value
}
