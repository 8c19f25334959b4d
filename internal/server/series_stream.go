package server

import (
	"context"
	"errors"
	"iter"
	"net/http"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/govsim/internal/domain"
	"github.com/aristath/govsim/internal/modules/allocation"
	"github.com/aristath/govsim/internal/modules/shock"
	"github.com/aristath/govsim/internal/render"
	"github.com/aristath/govsim/internal/session"
)

// Series names understood by the stream.
const (
	SeriesDegradationPath  = "degradation_path"
	SeriesSensitivitySweep = "sensitivity_sweep"
)

// SeriesRequest asks for one series. Shock fields drive degradation_path; Params, Units and
// ShockType drive sensitivity_sweep.
type SeriesRequest struct {
	Series          string                 `json:"series"`
	Capital         float64                `json:"capital"`
	GovernanceScore *float64               `json:"governance_score,omitempty"`
	ShockType       shock.Type             `json:"shock_type,omitempty"`
	Params          allocation.Params      `json:"params"`
	Units           []allocation.UnitInput `json:"units,omitempty"`
}

// SeriesFrame is one websocket message. A series ends with a Done frame, or with a single
// frame carrying Error when it could not be computed.
type SeriesFrame struct {
	Series string        `json:"series"`
	Seq    int           `json:"seq"`
	X      float64       `json:"x"`
	Y      float64       `json:"y"`
	Done   bool          `json:"done,omitempty"`
	Error  *domain.Error `json:"error,omitempty"`
}

// SeriesStreamHandler streams lazy series to chart clients over a websocket. A connection may
// request any number of series, one after the other.
type SeriesStreamHandler struct {
	model     *shock.Model
	allocator *allocation.Allocator
	sessions  *session.Store
	origins   []string
	log       zerolog.Logger
}

// NewSeriesStreamHandler creates a new series stream handler
func NewSeriesStreamHandler(model *shock.Model, allocator *allocation.Allocator, sessions *session.Store, origins []string, log zerolog.Logger) *SeriesStreamHandler {
	return &SeriesStreamHandler{
		model:     model,
		allocator: allocator,
		sessions:  sessions,
		origins:   origins,
		log:       log.With().Str("component", "series_stream").Logger(),
	}
}

// ServeHTTP handles GET /ws/series
// Browsers cannot set headers on a websocket handshake, so the session may also be named by
// the session query parameter.
func (h *SeriesStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket handshake failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	sessionID := r.Header.Get(session.Header)
	if sessionID == "" {
		sessionID = r.URL.Query().Get("session")
	}

	ctx := r.Context()
	for {
		var req SeriesRequest
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				conn.Close(websocket.StatusNormalClosure, "")
			default:
				h.log.Debug().Err(err).Msg("Series stream ended")
			}
			return
		}

		if err := h.stream(ctx, conn, h.sessions.Get(sessionID), req); err != nil {
			h.log.Debug().Err(err).Str("series", req.Series).Msg("Failed to write series")
			return
		}
	}
}

func (h *SeriesStreamHandler) stream(ctx context.Context, conn *websocket.Conn, sess *session.Session, req SeriesRequest) error {
	seq, err := h.series(sess, req)
	if err != nil {
		var derr *domain.Error
		if !errors.As(err, &derr) {
			h.log.Error().Err(err).Msg("Series failed")
			derr = &domain.Error{Kind: render.KindInternal, Detail: "series failed"}
		}
		return wsjson.Write(ctx, conn, SeriesFrame{Series: req.Series, Error: derr})
	}

	n := 0
	for x, y := range seq {
		if err := wsjson.Write(ctx, conn, SeriesFrame{Series: req.Series, Seq: n, X: x, Y: y}); err != nil {
			return err
		}
		n++
	}
	return wsjson.Write(ctx, conn, SeriesFrame{Series: req.Series, Seq: n, Done: true})
}

func (h *SeriesStreamHandler) series(sess *session.Session, req SeriesRequest) (iter.Seq2[float64, float64], error) {
	switch req.Series {
	case SeriesDegradationPath:
		score, err := sess.ResolveScore(req.GovernanceScore)
		if err != nil {
			return nil, err
		}
		outcome, err := h.model.Simulate(req.Capital, score, req.ShockType)
		if err != nil {
			return nil, err
		}
		if err := h.model.CheckPathLength(outcome.DurationDays); err != nil {
			return nil, err
		}
		path := h.model.DegradationPath(outcome.Capital, outcome.DurationDays)
		return func(yield func(float64, float64) bool) {
			for day, capital := range path {
				if !yield(float64(day), capital) {
					return
				}
			}
		}, nil

	case SeriesSensitivitySweep:
		params, err := allocation.ResolveShock(req.Params, req.ShockType, h.model.Impacts())
		if err != nil {
			return nil, err
		}
		plan, err := h.allocator.Allocate(params, req.Units)
		if err != nil {
			return nil, err
		}
		return h.allocator.SensitivitySweep(plan), nil

	default:
		return nil, domain.NewValidationError("series", "unknown series %q, expected %s or %s",
			req.Series, SeriesDegradationPath, SeriesSensitivitySweep)
	}
}
