package ops

import (
	"sync"

	"github.com/sdejongh/filenorris/pkg/models"
)

// conflictResolver is the bounded request/response bridge between a
// running operation and its issuer. Capacity is exactly one outstanding
// request: the executor never raises a second conflict before the first
// is answered, so there is no ambiguity about which response answers
// which conflict.
type conflictResolver struct {
	requests  chan models.ConflictRequest
	responses chan models.ConflictResponse

	mu     sync.Mutex
	sticky models.ConflictChoice
}

func newConflictResolver() *conflictResolver {
	return &conflictResolver{
		requests:  make(chan models.ConflictRequest, 1),
		responses: make(chan models.ConflictResponse, 1),
	}
}

// Requests is the issuer-facing delivery channel for conflict requests
func (r *conflictResolver) Requests() <-chan models.ConflictRequest {
	return r.requests
}

// Respond supplies the decision for the outstanding request
func (r *conflictResolver) Respond(resp models.ConflictResponse) {
	r.responses <- resp
}

// ask raises a conflict and blocks until the issuer answers or the
// operation is cancelled. A sticky apply-to-all answer is cached and
// every later conflict within the operation resolves to it without
// contacting the issuer again.
func (r *conflictResolver) ask(ctrl *Controller, req models.ConflictRequest) (models.ConflictChoice, error) {
	r.mu.Lock()
	cached := r.sticky
	r.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	select {
	case r.requests <- req:
	case <-ctrl.Done():
		return "", ErrCancelled
	}

	select {
	case resp := <-r.responses:
		if resp.Sticky() {
			r.mu.Lock()
			r.sticky = resp.Choice
			r.mu.Unlock()
		}
		return resp.Choice, nil
	case <-ctrl.Done():
		return "", ErrCancelled
	}
}
