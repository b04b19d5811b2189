package clipboard

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type mockWriter struct {
	written []string
	err     error
}

func (m *mockWriter) WriteAll(text string) error {
	if m.err != nil {
		return m.err
	}
	m.written = append(m.written, text)
	return nil
}

type scheduled struct {
	delay time.Duration
	msg   tea.Msg
}

// newTestNotifier records timers instead of starting them.
func newTestNotifier(w Writer) (*Notifier, *[]scheduled) {
	n := NewNotifier(w, 0, 0)
	var timers []scheduled
	n.after = func(d time.Duration, msg tea.Msg) tea.Cmd {
		timers = append(timers, scheduled{delay: d, msg: msg})
		return nil
	}
	return n, &timers
}

func copyNow(t *testing.T, n *Notifier, b Button, text string) {
	t.Helper()
	cmd := n.NotifyCopy(b, text)
	if cmd == nil {
		t.Fatal("Expected NotifyCopy to return a command")
	}
	n.Update(cmd())
}

func TestNotifyCopySuccess(t *testing.T) {
	w := &mockWriter{}
	n, timers := newTestNotifier(w)
	b := Button{ID: "msg-1", Kind: "message"}

	copyNow(t, n, b, "hello")

	if len(w.written) != 1 || w.written[0] != "hello" {
		t.Errorf("Expected clipboard to receive 'hello', got %v", w.written)
	}
	if got := n.Label(b.ID, "Copy"); got != ConfirmGlyph {
		t.Errorf("Expected confirmation glyph, got %q", got)
	}
	if !n.Copied(b.ID) {
		t.Error("Expected button to carry the copied state")
	}
	if len(n.Banners()) != 1 {
		t.Fatalf("Expected one banner, got %d", len(n.Banners()))
	}

	if len(*timers) != 2 {
		t.Fatalf("Expected two timers, got %d", len(*timers))
	}
	var revert, expire *scheduled
	for i := range *timers {
		switch (*timers)[i].msg.(type) {
		case RevertMsg:
			revert = &(*timers)[i]
		case BannerExpiredMsg:
			expire = &(*timers)[i]
		}
	}
	if revert == nil || revert.delay != 1500*time.Millisecond {
		t.Errorf("Expected button reversion after 1500ms, got %+v", revert)
	}
	if expire == nil || expire.delay != 2000*time.Millisecond {
		t.Errorf("Expected banner removal after 2000ms, got %+v", expire)
	}
}

func TestTimersAreIndependent(t *testing.T) {
	n, timers := newTestNotifier(&mockWriter{})
	b := Button{ID: "msg-1", Kind: "message"}
	copyNow(t, n, b, "hello")

	// Fire in real-time order: reversion at 1500ms, banner at 2000ms.
	for _, s := range *timers {
		if _, ok := s.msg.(RevertMsg); ok {
			n.Update(s.msg)
		}
	}
	if n.Copied(b.ID) || n.Label(b.ID, "Copy") != "Copy" {
		t.Errorf("Expected button to revert to 'Copy', got %q", n.Label(b.ID, "Copy"))
	}
	if len(n.Banners()) != 1 {
		t.Error("Expected banner to still be visible after the button reverted")
	}

	for _, s := range *timers {
		if _, ok := s.msg.(BannerExpiredMsg); ok {
			n.Update(s.msg)
		}
	}
	if len(n.Banners()) != 0 {
		t.Errorf("Expected banner to be removed, got %d", len(n.Banners()))
	}
}

func TestClipboardFailureIsSilent(t *testing.T) {
	n, timers := newTestNotifier(&mockWriter{err: errors.New("no clipboard utility")})
	b := Button{ID: "msg-1", Kind: "message"}

	copyNow(t, n, b, "hello")

	if n.Copied(b.ID) {
		t.Error("Expected no confirmation after a failed write")
	}
	if len(n.Banners()) != 0 {
		t.Error("Expected no banner after a failed write")
	}
	if len(*timers) != 0 {
		t.Errorf("Expected no timers after a failed write, got %d", len(*timers))
	}
}

func TestSecondCopyRestartsReversion(t *testing.T) {
	n, timers := newTestNotifier(&mockWriter{})
	b := Button{ID: "code-1", Kind: "code"}

	copyNow(t, n, b, "x")
	firstRevert := (*timers)[0].msg
	// The second click lands while the button still shows the glyph.
	copyNow(t, n, b, "x")
	secondRevert := (*timers)[2].msg

	n.Update(firstRevert)
	if !n.Copied(b.ID) {
		t.Error("Expected stale reversion to be ignored")
	}

	n.Update(secondRevert)
	if n.Copied(b.ID) {
		t.Error("Expected latest reversion to restore the button")
	}
	if got := n.Label(b.ID, "Copy code"); got != "Copy code" {
		t.Errorf("Expected original label, got %q", got)
	}
	if len(n.Banners()) != 2 {
		t.Errorf("Expected two independent banners, got %d", len(n.Banners()))
	}
}

func TestCopyAfterRevertConfirmsAgain(t *testing.T) {
	n, timers := newTestNotifier(&mockWriter{})
	b := Button{ID: "b", Kind: "message"}

	copyNow(t, n, b, "one")
	n.Update((*timers)[0].msg)
	if n.Copied(b.ID) {
		t.Fatal("Expected first reversion to restore the button")
	}

	copyNow(t, n, b, "two")
	if got := n.Label(b.ID, "Copy"); got != ConfirmGlyph {
		t.Errorf("Expected confirmation glyph on the second copy, got %q", got)
	}
	n.Update((*timers)[2].msg)
	if got := n.Label(b.ID, "Copy"); got != "Copy" {
		t.Errorf("Expected label 'Copy' after the second reversion, got %q", got)
	}
}

func TestBannersFromDifferentButtonsDoNotCancel(t *testing.T) {
	n, timers := newTestNotifier(&mockWriter{})
	copyNow(t, n, Button{ID: "a", Kind: "message"}, "a")
	copyNow(t, n, Button{ID: "b", Kind: "message"}, "b")

	banners := n.Banners()
	if len(banners) != 2 {
		t.Fatalf("Expected two banners, got %d", len(banners))
	}

	for _, s := range *timers {
		if exp, ok := s.msg.(BannerExpiredMsg); ok && exp.BannerID == banners[0].ID {
			n.Update(s.msg)
		}
	}
	remaining := n.Banners()
	if len(remaining) != 1 || remaining[0].ID != banners[1].ID {
		t.Errorf("Expected only the second banner to remain, got %+v", remaining)
	}
}

func TestSetDelaysDefaults(t *testing.T) {
	n := NewNotifier(&mockWriter{}, -1, 0)
	if n.bannerTTL != DefaultBannerTTL || n.buttonRevert != DefaultButtonRevert {
		t.Errorf("Expected default delays, got %v / %v", n.bannerTTL, n.buttonRevert)
	}
}

func TestScheduler(t *testing.T) {
	s := NewScheduler()
	g1 := s.Next("k")
	g2 := s.Next("k")
	other := s.Next("other")

	if s.Done("k", g1) {
		t.Error("Expected stale generation not to complete")
	}
	if !s.Current("other", other) {
		t.Error("Expected other key to be unaffected")
	}
	if !s.Done("k", g2) {
		t.Error("Expected current generation to complete")
	}
	if s.Done("k", g2) {
		t.Error("Expected completed generation not to complete twice")
	}
	if s.Current("k", g2) {
		t.Error("Expected completed key to have no current generation")
	}
}
