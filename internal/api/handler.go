package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"easywine/internal/pairing"
)

// Messages returned to clients.
const (
	msgBadRequest       = "Requisição inválida."
	msgTooLarge         = "Imagem muito grande."
	msgMethodNotAllowed = "Método não permitido."
	msgInvalidUpstream  = "O Sommelier retornou uma resposta inválida."
	msgPairingFailed    = "Erro ao harmonizar."
)

// Recommender defines the interface for producing a pairing.
type Recommender interface {
	Recommend(ctx context.Context, req pairing.Request) ([]byte, error)
}

// ErrorResponse is the body of every non-200 response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler handles HTTP requests.
type Handler struct {
	Recommender Recommender
}

// NewHandler creates a new Handler.
func NewHandler(recommender Recommender) *Handler {
	return &Handler{Recommender: recommender}
}

// Harmonize handles pairing requests and relays the model's JSON verbatim.
func (h *Handler) Harmonize(c *gin.Context) {
	var req pairing.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.WithField("limit", tooLarge.Limit).Warn("pairing request too large")
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: msgTooLarge})
			return
		}
		log.WithError(err).Warn("invalid pairing request body")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgBadRequest})
		return
	}

	body, err := h.Recommender.Recommend(c.Request.Context(), req)
	if err != nil {
		status, msg := statusFor(err)
		log.WithError(err).WithFields(log.Fields{
			"status":   status,
			"category": req.Category,
		}).Error("pairing failed")
		c.JSON(status, ErrorResponse{Error: msg})
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, pairing.ErrInvalidImage), errors.Is(err, pairing.ErrNothingToPair):
		return http.StatusBadRequest, msgBadRequest
	case errors.Is(err, pairing.ErrInvalidCompletion):
		return http.StatusBadGateway, msgInvalidUpstream
	default:
		return http.StatusInternalServerError, msgPairingFailed
	}
}

// Categories returns the fixed quick filter list.
func (h *Handler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, pairing.Categories)
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// MethodNotAllowed answers requests with an unsupported method.
func (h *Handler) MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, ErrorResponse{Error: msgMethodNotAllowed})
}
