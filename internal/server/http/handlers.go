package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/scholarstream/literature-review-service/internal/pipeline"
)

var validate = validator.New()

// reviewRequest is the body of POST /literature_review.
type reviewRequest struct {
	Query string `json:"query" validate:"required,min=1,max=2000"`
}

// handleLiteratureReview starts a review job and streams its events as
// SSE until the job emits Done or the client disconnects.
func (s *Server) handleLiteratureReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "query is required and must be at most 2000 characters")
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger := s.logger.With().Str("request_id", correlationIDFrom(r)).Logger()
	logger.Info().Int("query_len", len(req.Query)).Msg("review stream opened")

	events := s.runner.Run(r.Context(), req.Query)
	for ev := range events {
		var werr error
		switch ev.Type {
		case pipeline.EventHeartbeat:
			werr = sse.writeHeartbeat(ev.Content)
		case pipeline.EventDone:
			werr = sse.writeDone()
		default:
			// Progress, Result and Error all stream as content.
			werr = sse.writeContent(ev.Content)
		}
		if werr != nil {
			// Client went away; the job notices via r.Context().
			logger.Debug().Err(werr).Msg("review stream write failed")
			return
		}
	}
	logger.Info().Msg("review stream closed")
}
