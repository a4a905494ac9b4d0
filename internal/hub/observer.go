package hub

import "sync"

// Observer is the cancellation handle for one subscription.
// It does not keep the Hub alive beyond what the subscription itself needs.
type Observer struct {
	once   sync.Once
	cancel func()
}

// Remove deregisters the subscription. Calling it again, or on a nil
// Observer, is a no-op. Once Remove returns, no Post that starts afterwards
// invokes the callback.
func (o *Observer) Remove() {
	if o == nil || o.cancel == nil {
		return
	}
	o.once.Do(o.cancel)
}
