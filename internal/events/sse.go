package events

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Stream handles GET /api/events as a server-sent event stream of session
// status changes. When filterOwner is non-empty only that owner's events
// are forwarded.
func (b *Broker) Stream(w http.ResponseWriter, r *http.Request, filterOwner string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, open := <-ch:
			if !open {
				return
			}
			if filterOwner != "" && evt.OwnerID != filterOwner {
				continue
			}
			payload, err := json.Marshal(evt)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
