package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/pai-study/internal/apperr"
	"github.com/p-n-ai/pai-study/internal/drill"
)

const drillWriteTimeout = 5 * time.Second

// handleDrill validates the drill settings from the query string, upgrades
// to a WebSocket and streams the frames as JSON messages. Settings errors
// are answered before the upgrade with the usual error envelope.
func (s *server) handleDrill(w http.ResponseWriter, r *http.Request) {
	params, err := drillParams(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := drill.New(drill.Kind(r.PathValue("kind")), params)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Drills outlive the server's request timeouts.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("drill upgrade failed", "error", err)
		return
	}
	defer conn.CloseNow()

	// The client never sends; CloseRead cancels ctx when it disconnects.
	ctx := conn.CloseRead(r.Context())

	student := studentID(r)
	slog.Info("drill started", "student_id", student, "kind", d.Kind())
	err = s.svc.Drills.Run(ctx, d, func(ctx context.Context, f drill.Frame) error {
		wctx, cancel := context.WithTimeout(ctx, drillWriteTimeout)
		defer cancel()
		return wsjson.Write(wctx, conn, f)
	})
	switch {
	case err == nil:
		conn.Close(websocket.StatusNormalClosure, "drill finished")
	case errors.Is(err, context.Canceled):
		slog.Info("drill stopped by client", "student_id", student, "kind", d.Kind())
	default:
		slog.Warn("drill stream failed", "student_id", student, "kind", d.Kind(), "error", err)
		conn.Close(websocket.StatusInternalError, "drill failed")
	}
}

// drillParams reads every drill setting; unused ones are ignored by the
// drill kind. Durations are given in milliseconds, the Schulte duration in
// seconds.
func drillParams(q url.Values) (drill.Params, error) {
	p := drill.Params{Text: q.Get("text")}

	for _, v := range q["item"] {
		if v = strings.TrimSpace(v); v != "" {
			p.Items = append(p.Items, v)
		}
	}
	if v := q.Get("items"); v != "" {
		for _, it := range strings.Split(v, ",") {
			if it = strings.TrimSpace(it); it != "" {
				p.Items = append(p.Items, it)
			}
		}
	}

	var err error
	if p.WPM, err = intParam(q, "wpm"); err != nil {
		return p, err
	}
	if p.ChunkSize, err = intParam(q, "chunk"); err != nil {
		return p, err
	}
	if p.Size, err = intParam(q, "size"); err != nil {
		return p, err
	}
	flash, err := intParam(q, "flashMs")
	if err != nil {
		return p, err
	}
	p.Flash = time.Duration(flash) * time.Millisecond
	blank, err := intParam(q, "blankMs")
	if err != nil {
		return p, err
	}
	p.Blank = time.Duration(blank) * time.Millisecond
	secs, err := intParam(q, "durationSeconds")
	if err != nil {
		return p, err
	}
	p.Duration = time.Duration(secs) * time.Second

	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return p, apperr.Validation("httpapi.drillParams", "seed", apperr.ConstraintInvalidValue, "must be a non-negative integer")
		}
		p.Seed = seed
	}
	return p, nil
}

func intParam(q url.Values, name string) (int, error) {
	v := q.Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperr.Validation("httpapi.drillParams", name, apperr.ConstraintInvalidValue, "must be a non-negative integer")
	}
	return n, nil
}
