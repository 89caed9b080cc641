package orchestrator

// RequestContext accumulates provider results for one request under
// namespaced keys ("location.resolved", "alerts.active", ...). The merge is
// append-only: a key is written once and later steps only read. The whole
// context is discarded at request end; nothing here outlives the request
// except what the orchestrator explicitly copies into session state for
// display continuity.
type RequestContext struct {
	values map[string]any
}

func newRequestContext() *RequestContext {
	return &RequestContext{values: make(map[string]any)}
}

// Put stores a value under key. The first write wins; re-puts of the same
// key are ignored to keep the merge append-only.
func (rc *RequestContext) Put(key string, v any) {
	if _, exists := rc.values[key]; exists {
		return
	}
	rc.values[key] = v
}

// Get returns the value stored under key.
func (rc *RequestContext) Get(key string) (any, bool) {
	v, ok := rc.values[key]
	return v, ok
}
