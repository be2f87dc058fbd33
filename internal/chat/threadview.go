package chat

// ViewPhase is the loading phase of a thread view.
type ViewPhase string

const (
	Loading ViewPhase = "loading"
	Loaded  ViewPhase = "loaded"
)

// ThreadView is the display state of one message thread.
// The reply form can only be toggled once the thread has loaded.
type ThreadView struct {
	Phase         ViewPhase `json:"phase"`
	Thread        *Thread   `json:"thread,omitempty"`
	ReplyFormOpen bool      `json:"replyFormOpen"`
}

// NewThreadView starts in the Loading phase.
func NewThreadView() ThreadView {
	return ThreadView{Phase: Loading}
}

// Load moves the view to Loaded with the reply form closed.
func (v ThreadView) Load(t *Thread) ThreadView {
	return ThreadView{Phase: Loaded, Thread: t}
}

// ToggleReplyForm opens or closes the reply form. It does nothing while loading.
func (v ThreadView) ToggleReplyForm() ThreadView {
	if v.Phase != Loaded {
		return v
	}
	v.ReplyFormOpen = !v.ReplyFormOpen
	return v
}

// ReplySent closes the reply form after a successful reply.
func (v ThreadView) ReplySent() ThreadView {
	v.ReplyFormOpen = false
	return v
}
