package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/conorfennell/knolcards/internal/generate"
	"github.com/conorfennell/knolcards/internal/ingest"
	"github.com/conorfennell/knolcards/internal/review"
	"github.com/gin-gonic/gin"
)

// notesRequest carries a batch as a JSON encoded string. A plain JSON list
// is accepted as well.
type notesRequest struct {
	Notes json.RawMessage `json:"notes"`
}

func (r notesRequest) payload() string {
	var encoded string
	if err := json.Unmarshal(r.Notes, &encoded); err == nil {
		return encoded
	}
	return string(r.Notes)
}

func fail(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

// decodeNotes reads and validates the batch of a notes request, writing a
// 400 response when it is malformed.
func (s *Server) decodeNotes(c *gin.Context) ([]ingest.Item, bool) {
	var req notesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err)
		return nil, false
	}
	if len(req.Notes) == 0 {
		fail(c, http.StatusBadRequest, errors.New("notes is required"))
		return nil, false
	}
	items, err := s.notes.DecodeBatch(req.payload())
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return nil, false
	}
	return items, true
}

// handleCheckNotes reports which notes of a batch are already stored.
func (s *Server) handleCheckNotes() gin.HandlerFunc {
	return func(c *gin.Context) {
		items, ok := s.decodeNotes(c)
		if !ok {
			return
		}
		results, err := s.notes.CheckBatch(c.Request.Context(), items)
		if err != nil {
			s.logger.Error("Error checking notes", "error", err)
			fail(c, http.StatusInternalServerError, err)
			return
		}
		c.JSON(http.StatusOK, results)
	}
}

// handleUploadNotes stores a batch of notes.
func (s *Server) handleUploadNotes() gin.HandlerFunc {
	return func(c *gin.Context) {
		items, ok := s.decodeNotes(c)
		if !ok {
			return
		}
		refs, err := s.notes.SubmitBatch(c.Request.Context(), items)
		if err != nil {
			var inputErr *ingest.InputError
			if errors.As(err, &inputErr) {
				fail(c, http.StatusBadRequest, err)
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   err.Error(),
				"data":    refs,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": refs})
	}
}

// handleGenerateCards generates cards for a list of note references.
func (s *Server) handleGenerateCards() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}
		ids, err := generate.DecodeNoteRefs(body)
		if err != nil {
			if errors.Is(err, generate.ErrNoNoteIDs) {
				c.JSON(http.StatusOK, gin.H{"success": false, "message": err.Error()})
				return
			}
			fail(c, http.StatusBadRequest, err)
			return
		}

		result, err := s.generator.Generate(c.Request.Context(), ids)
		switch {
		case errors.Is(err, generate.ErrNoNotesFound), errors.Is(err, generate.ErrNoNoteIDs):
			c.JSON(http.StatusOK, gin.H{"success": false, "message": err.Error()})
		case err != nil:
			resp := gin.H{"success": false, "error": err.Error()}
			if result != nil {
				resp["data"] = result.Cards
			}
			c.JSON(http.StatusInternalServerError, resp)
		default:
			c.JSON(http.StatusOK, gin.H{
				"success":  true,
				"data":     result.Cards,
				"failures": result.Failures,
			})
		}
	}
}

// handleDueReviews lists the questions due at the server's current time.
func (s *Server) handleDueReviews() gin.HandlerFunc {
	return func(c *gin.Context) {
		now := s.now()
		due, err := s.reviews.ListDue(c.Request.Context(), now)
		if err != nil {
			s.logger.Error("Error getting due reviews", "error", err)
			fail(c, http.StatusInternalServerError, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"now": now.Unix(), "questions": due})
	}
}

// handleOverview lists every review.
func (s *Server) handleOverview() gin.HandlerFunc {
	return func(c *gin.Context) {
		reviews, err := s.reviews.Overview(c.Request.Context())
		if err != nil {
			s.logger.Error("Error listing reviews", "error", err)
			fail(c, http.StatusInternalServerError, err)
			return
		}
		c.JSON(http.StatusOK, reviews)
	}
}

// handleRecordScore stores the outcome of a review.
func (s *Server) handleRecordScore() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req review.ScoreRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err)
			return
		}

		err := s.reviews.RecordScore(c.Request.Context(), req)
		var (
			inputErr *review.InputError
			scoreErr *review.ScoreError
		)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{"success": true})
		case errors.As(err, &inputErr):
			fail(c, http.StatusBadRequest, err)
		case errors.Is(err, review.ErrReviewNotFound):
			fail(c, http.StatusNotFound, err)
		case errors.As(err, &scoreErr):
			c.JSON(http.StatusInternalServerError, gin.H{
				"success":       false,
				"error":         err.Error(),
				"reviewUpdated": scoreErr.ReviewUpdated,
			})
		default:
			fail(c, http.StatusInternalServerError, err)
		}
	}
}

// handleCardScores returns the score history of a card.
func (s *Server) handleCardScores() gin.HandlerFunc {
	return func(c *gin.Context) {
		scores, err := s.reviews.History(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.logger.Error("Error getting scores", "card_id", c.Param("id"), "error", err)
			fail(c, http.StatusInternalServerError, err)
			return
		}
		c.JSON(http.StatusOK, scores)
	}
}

// handleHealth pings the store.
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.health.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
