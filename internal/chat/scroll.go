package chat

import (
	"time"
)

// DefaultScrollDebounce is the delay before a streamed update scrolls.
const DefaultScrollDebounce = 100 * time.Millisecond

// FollowState tells whether the view tracks the newest content.
type FollowState int

const (
	Following FollowState = iota
	Manual
)

func (s FollowState) String() string {
	if s == Manual {
		return "manual"
	}
	return "following"
}

// ScrollTarget is where the view should move.
type ScrollTarget int

const (
	ScrollNone ScrollTarget = iota
	// ScrollToBottom follows the growing tail.
	ScrollToBottom
	// ScrollToLatest shows the newest message.
	ScrollToLatest
	// ScrollToIndicator shows the pinned waiting or error row.
	ScrollToIndicator
)

// ScrollRequest asks the view to scroll. A non-zero Token means the scroll
// is debounced: the view waits Delay and then passes the token to Fire.
type ScrollRequest struct {
	Target ScrollTarget
	Token  uint64
	Delay  time.Duration
}

// Debounced reports whether the request must go through Fire.
func (r ScrollRequest) Debounced() bool {
	return r.Token != 0
}

// Debouncer coalesces scheduled actions: each Schedule invalidates the
// previous token, so only the latest one fires.
type Debouncer struct {
	delay   time.Duration
	gen     uint64
	pending bool
}

// NewDebouncer returns a Debouncer with the given delay.
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultScrollDebounce
	}
	return &Debouncer{delay: delay}
}

// Delay returns the debounce window.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Schedule cancels any pending action and returns the token of a new one.
func (d *Debouncer) Schedule() uint64 {
	d.gen++
	d.pending = true
	return d.gen
}

// Cancel drops the pending action.
func (d *Debouncer) Cancel() {
	d.pending = false
}

// Fire reports whether token belongs to the pending action and consumes it.
func (d *Debouncer) Fire(token uint64) bool {
	if !d.pending || token != d.gen {
		return false
	}
	d.pending = false
	return true
}

// ScrollFollow decides when the message list scrolls on its own.
type ScrollFollow struct {
	state    FollowState
	debounce *Debouncer
	count    int
}

// NewScrollFollow returns a controller in the Following state.
func NewScrollFollow(delay time.Duration) *ScrollFollow {
	return &ScrollFollow{debounce: NewDebouncer(delay)}
}

// State returns the current follow state.
func (s *ScrollFollow) State() FollowState {
	return s.state
}

// UserScrolledUp records a scroll gesture away from the tail.
func (s *ScrollFollow) UserScrolledUp() {
	s.state = Manual
	s.debounce.Cancel()
}

// ResetForSend resumes following when a new send starts.
func (s *ScrollFollow) ResetForSend() {
	s.state = Following
}

// OnBodyMutation is called when the trailing message grows. While
// following an active stream it schedules a debounced scroll.
func (s *ScrollFollow) OnBodyMutation(streaming bool) ScrollRequest {
	if s.state != Following || !streaming {
		return ScrollRequest{}
	}
	return ScrollRequest{
		Target: ScrollToBottom,
		Token:  s.debounce.Schedule(),
		Delay:  s.debounce.Delay(),
	}
}

// Fire resolves a debounced request. Superseded tokens and tokens that
// arrive after the user scrolled away do nothing.
func (s *ScrollFollow) Fire(token uint64) ScrollRequest {
	if !s.debounce.Fire(token) || s.state != Following {
		return ScrollRequest{}
	}
	return ScrollRequest{Target: ScrollToBottom}
}

// OnCountChanged is called with the message count after every mutation. A
// new message is always brought into view, or the pinned indicator when
// one is shown. The follow state is not consulted.
func (s *ScrollFollow) OnCountChanged(count int, indicatorPinned bool) ScrollRequest {
	grew := count > s.count
	s.count = count
	if !grew {
		return ScrollRequest{}
	}
	if indicatorPinned {
		return ScrollRequest{Target: ScrollToIndicator}
	}
	return ScrollRequest{Target: ScrollToLatest}
}

// Reset starts tracking a freshly opened chat with count messages.
func (s *ScrollFollow) Reset(count int) {
	s.state = Following
	s.count = count
	s.debounce.Cancel()
}
