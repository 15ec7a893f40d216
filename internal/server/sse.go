package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jpalmerr/mishpulse/internal/notify"
)

// sseWriteTimeout is the maximum time allowed for a single stream write.
// Must be <= shutdownTimeout so shutdown is not held up by a stuck client.
const sseWriteTimeout = 5 * time.Second

// handleStream streams a project's statuses via Server-Sent Events: first
// the stored history, then every newly accepted status.
//
// Writes carry deadlines so a slow or disconnected client cannot block the
// handler past cancellation.
func (s *Server) handleStream(c *gin.Context) {
	if s.streamer == nil {
		writeError(c, http.StatusNotImplemented, ErrCodeStreamUnsupported, "Streaming is disabled", nil)
		return
	}

	project, err := s.registry.Project(c.Param("token"))
	if err != nil {
		s.writeRegistryError(c, err)
		return
	}

	w := c.Writer
	rc := http.NewResponseController(w)
	deadlinesSupported := true

	writeAndFlush := func(event notify.Event) error {
		data, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	// subscribe before reading history so nothing accepted in between is lost
	ch := s.streamer.Subscribe(project.ID)
	defer s.streamer.Unsubscribe(project.ID, ch)

	history, err := s.registry.ListStatuses(c.Param("token"))
	if err != nil {
		s.writeRegistryError(c, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	streamsActive.Inc()
	defer streamsActive.Dec()

	// statuses stored after the history snapshot are all later than its
	// last entry, so this cutoff separates replayed events from new ones
	var cutoff time.Time
	for _, st := range history {
		if err := writeAndFlush(notify.NewEvent(project, st)); err != nil {
			return
		}
		cutoff = st.Timestamp
	}
	if len(history) == 0 {
		// send headers so the client sees the stream open
		if err := rc.Flush(); err != nil {
			return
		}
	}

	ctx := c.Request.Context()
	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			// already sent as part of the history; live events may arrive
			// out of timestamp order and are never compared to each other
			if !event.Timestamp.After(cutoff) {
				continue
			}
			if err := writeAndFlush(event); err != nil {
				return
			}

		case <-ctx.Done():
			// fires on client disconnect and on server shutdown
			return
		}
	}
}
