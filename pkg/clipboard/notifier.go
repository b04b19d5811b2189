// Package clipboard copies text to the system clipboard and tracks the
// transient confirmation state that follows a successful copy: the copy
// button's confirmation glyph and the floating "copied" banners.
package clipboard

import (
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/shawkym/jarvisui/pkg/log"
)

const (
	// DefaultBannerTTL is how long a confirmation banner stays up.
	DefaultBannerTTL = 2000 * time.Millisecond
	// DefaultButtonRevert is how long a button shows the confirmation glyph.
	DefaultButtonRevert = 1500 * time.Millisecond

	ConfirmGlyph = "✓"
	BannerText   = "Copied to clipboard!"
)

// Writer writes text to a clipboard.
type Writer interface {
	WriteAll(text string) error
}

// SystemWriter writes to the operating system clipboard.
type SystemWriter struct{}

func (SystemWriter) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}

// Button is the part of a copy control the notifier needs. Kind is a
// metrics label such as "message" or "code".
type Button struct {
	ID   string
	Kind string
}

// Banner is one floating confirmation.
type Banner struct {
	ID        string
	Text      string
	CreatedAt time.Time
}

// CopiedMsg reports the outcome of a clipboard write.
type CopiedMsg struct {
	Button Button
	Text   string
	Err    error
}

// RevertMsg restores a button once its confirmation delay has passed.
type RevertMsg struct {
	ButtonID   string
	Generation uint64
}

// BannerExpiredMsg removes one banner.
type BannerExpiredMsg struct {
	BannerID string
}

// Notifier owns the confirmation state of every copy button. It is used
// from the bubbletea update loop only.
type Notifier struct {
	writer       Writer
	bannerTTL    time.Duration
	buttonRevert time.Duration
	scheduler    *Scheduler
	buttons      map[string]struct{} // ids showing the confirmation glyph
	banners      []Banner
	now          func() time.Time

	// after schedules msg to be delivered after d.
	after func(d time.Duration, msg tea.Msg) tea.Cmd
}

// NewNotifier creates a notifier. Non-positive delays fall back to the defaults.
func NewNotifier(w Writer, bannerTTL, buttonRevert time.Duration) *Notifier {
	if w == nil {
		w = SystemWriter{}
	}
	n := &Notifier{
		writer:    w,
		scheduler: NewScheduler(),
		buttons:   make(map[string]struct{}),
		now:       time.Now,
		after: func(d time.Duration, msg tea.Msg) tea.Cmd {
			return tea.Tick(d, func(time.Time) tea.Msg { return msg })
		},
	}
	n.SetDelays(bannerTTL, buttonRevert)
	return n
}

// SetDelays changes the delays used for copies that start afterwards.
func (n *Notifier) SetDelays(bannerTTL, buttonRevert time.Duration) {
	if bannerTTL <= 0 {
		bannerTTL = DefaultBannerTTL
	}
	if buttonRevert <= 0 {
		buttonRevert = DefaultButtonRevert
	}
	n.bannerTTL, n.buttonRevert = bannerTTL, buttonRevert
}

// NotifyCopy starts an asynchronous clipboard write of text. The
// confirmation is shown only if the write succeeds.
func (n *Notifier) NotifyCopy(b Button, text string) tea.Cmd {
	w := n.writer
	return func() tea.Msg {
		return CopiedMsg{Button: b, Text: text, Err: w.WriteAll(text)}
	}
}

// Update applies notifier messages and returns any timers to schedule.
// Messages of other types are ignored.
func (n *Notifier) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case CopiedMsg:
		return n.copied(msg)
	case RevertMsg:
		if n.scheduler.Done(msg.ButtonID, msg.Generation) {
			delete(n.buttons, msg.ButtonID)
		}
	case BannerExpiredMsg:
		n.removeBanner(msg.BannerID)
	}
	return nil
}

func (n *Notifier) copied(msg CopiedMsg) tea.Cmd {
	if msg.Err != nil {
		log.WithError(msg.Err).WithField("button", msg.Button.ID).Debug("clipboard write failed")
		return nil
	}

	// The label a button reverts to is whatever the renderer passes to
	// Label, so a copy while confirming only moves the reversion deadline.
	n.buttons[msg.Button.ID] = struct{}{}
	gen := n.scheduler.Next(msg.Button.ID)

	banner := Banner{ID: uuid.NewString(), Text: BannerText, CreatedAt: n.now()}
	n.banners = append(n.banners, banner)

	return tea.Batch(
		n.after(n.buttonRevert, RevertMsg{ButtonID: msg.Button.ID, Generation: gen}),
		n.after(n.bannerTTL, BannerExpiredMsg{BannerID: banner.ID}),
	)
}

func (n *Notifier) removeBanner(id string) {
	for i, b := range n.banners {
		if b.ID == id {
			n.banners = append(n.banners[:i], n.banners[i+1:]...)
			return
		}
	}
}

// Label returns what button id shows right now: the confirmation glyph
// while confirming, otherwise base.
func (n *Notifier) Label(id, base string) string {
	if _, ok := n.buttons[id]; ok {
		return ConfirmGlyph
	}
	return base
}

// Copied reports whether button id carries the "copied" state.
func (n *Notifier) Copied(id string) bool {
	_, ok := n.buttons[id]
	return ok
}

// Banners returns the visible banners, oldest first.
func (n *Notifier) Banners() []Banner {
	out := make([]Banner, len(n.banners))
	copy(out, n.banners)
	return out
}
