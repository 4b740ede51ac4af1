package services

import (
	"sync"
	"sync/atomic"

	"propdesk/internal/domain/attachment"

	"github.com/samber/lo"
)

// AttachmentView is the caller's projection of a project's attachment list.
// It is rebuilt from storage by Refresh and otherwise changes only after an
// operation succeeded.
type AttachmentView struct {
	mu        sync.RWMutex
	projectID string
	items     []attachment.Attachment
	inFlight  atomic.Bool
}

func NewAttachmentView(projectID string, items []attachment.Attachment) *AttachmentView {
	v := &AttachmentView{projectID: projectID}
	v.replace(items)
	return v
}

func (v *AttachmentView) ProjectID() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.projectID
}

func (v *AttachmentView) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.items)
}

// Items returns a copy of the current list.
func (v *AttachmentView) Items() []attachment.Attachment {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]attachment.Attachment, len(v.items))
	copy(out, v.items)
	return out
}

func (v *AttachmentView) Find(id string) (attachment.Attachment, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return lo.Find(v.items, func(a attachment.Attachment) bool { return a.ID == id })
}

func (v *AttachmentView) setProject(id string) {
	v.mu.Lock()
	v.projectID = id
	v.mu.Unlock()
}

func (v *AttachmentView) replace(items []attachment.Attachment) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.items = make([]attachment.Attachment, len(items))
	copy(v.items, items)
}

func (v *AttachmentView) merge(items []attachment.Attachment) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, a := range items {
		if !lo.ContainsBy(v.items, func(e attachment.Attachment) bool { return e.ID == a.ID }) {
			v.items = append(v.items, a)
		}
	}
}

func (v *AttachmentView) remove(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.items = lo.Reject(v.items, func(a attachment.Attachment, _ int) bool { return a.ID == id })
}

// begin marks an operation in flight; false means one is already running.
func (v *AttachmentView) begin() bool {
	return v.inFlight.CompareAndSwap(false, true)
}

func (v *AttachmentView) end() {
	v.inFlight.Store(false)
}
