package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/domain/corpus"
	logpkg "github.com/kailas-cloud/ragchat/internal/logger"
	healthuc "github.com/kailas-cloud/ragchat/internal/usecase/health"
	raguc "github.com/kailas-cloud/ragchat/internal/usecase/rag"
)

// DefaultK is the number of contexts retrieved when a request omits k.
const DefaultK = 2

// maxBodyBytes bounds the /ask request body.
const maxBodyBytes = 1 << 20

// Messages returned in the answer field when errors are reported uniformly.
const (
	msgNotLoaded       = "Error: Documents not loaded. Check your .env file and ensure OPENAI_API_KEY is set."
	msgInvalidQuestion = "Please provide a valid question."
	msgProcessingError = "Error processing question: "
)

// Error codes for strict mode and malformed requests.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeNotLoaded        = "documents_not_loaded"
	codeEmbeddingError   = "embedding_provider_error"
	codeGenerationError  = "generation_error"
	codeInternalError    = "internal_error"
)

// Answerer runs the question answering pipeline.
type Answerer interface {
	Answer(ctx context.Context, question string, k int) (raguc.Answer, error)
}

// HealthReporter reports corpus and provider health.
type HealthReporter interface {
	Check(ctx context.Context) healthuc.Report
	Stats(ctx context.Context) (corpus.Stats, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Options tunes the HTTP contract.
type Options struct {
	// DefaultK applies when a request omits k. Zero means DefaultK.
	DefaultK int
	// StrictErrors maps pipeline failures to 4xx/5xx statuses instead of a 200 with a message answer.
	StrictErrors bool
}

// Server serves the question answering API.
type Server struct {
	rag           Answerer
	health        HealthReporter
	defaultK      int
	strict        bool
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(rag Answerer, health HealthReporter, opts Options, logger *zap.Logger) *Server {
	if opts.DefaultK <= 0 {
		opts.DefaultK = DefaultK
	}
	s := &Server{
		rag:      rag,
		health:   health,
		defaultK: opts.DefaultK,
		strict:   opts.StrictErrors,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrCorpusNotLoaded, http.StatusServiceUnavailable, codeNotLoaded),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingError),
		sentinelHandler(domain.ErrGenerationFailed, http.StatusBadGateway, codeGenerationError),
	}
	return s
}

// Home handles GET /.
func (s *Server) Home(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, homeResponse{
		Status:  "✓ RAG Chatbot API is running",
		Health:  "/health",
		Message: `POST /ask with {"question": "...", "k": 2} to query the documents`,
	})
}

// Ask handles POST /ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	k := s.defaultK
	if req.K != nil {
		k = *req.K
	}

	ans, err := s.answer(r.Context(), &req, k)
	if err != nil {
		s.handleAskError(w, r, req.Question, k, err)
		return
	}

	writeJSON(w, http.StatusOK, askResponse{
		Question:   ans.Question,
		K:          ans.K,
		Answer:     ans.Text,
		Contexts:   ans.Contexts,
		Confidence: ans.Confidence,
	})
}

func (s *Server) answer(ctx context.Context, req *askRequest, k int) (raguc.Answer, error) {
	if err := validateRequest(req); err != nil {
		return raguc.Answer{}, err
	}
	return s.rag.Answer(ctx, req.Question, k) //nolint:wrapcheck // domain errors pass through to the boundary
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	status := http.StatusOK
	if s.strict && report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, healthResponse{
		Status:          string(report.Status),
		DocumentsLoaded: report.DocumentsLoaded,
		EmbeddingsReady: report.EmbeddingsReady,
		Message:         report.Message,
		Checks:          checks,
	})
}

// Stats handles GET /stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.health.Stats(r.Context())
	if err != nil {
		logpkg.FromContext(r.Context()).Error("stats failed", zap.Error(err))
		if s.strict {
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			return
		}
		st = corpus.Stats{}
	}

	writeJSON(w, http.StatusOK, statsResponse{
		TotalDocuments:     st.Documents,
		EmbeddingDimension: st.Dimension,
		TotalEmbeddings:    st.Embeddings,
	})
}

// handleAskError reports a pipeline failure either uniformly (200 with a message answer)
// or, in strict mode, through the error handler chain.
func (s *Server) handleAskError(w http.ResponseWriter, r *http.Request, question string, k int, err error) {
	logpkg.FromContext(r.Context()).Warn("ask failed", zap.Error(err))

	if s.strict {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, askResponse{
		Question:   question,
		K:          k,
		Answer:     uniformMessage(err),
		Contexts:   []string{},
		Confidence: 0,
	})
}

// uniformMessage renders the answer text for a failed question.
func uniformMessage(err error) string {
	var ve *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrCorpusNotLoaded):
		return msgNotLoaded
	case errors.As(err, &ve) && ve.Field == "question":
		return msgInvalidQuestion
	default:
		return msgProcessingError + err.Error()
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

// safeDomainMessage returns a client-safe message without exposing provider internals.
func safeDomainMessage(err error) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	sentinels := []error{
		domain.ErrCorpusNotLoaded,
		domain.ErrEmbeddingProviderError,
		domain.ErrGenerationFailed,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
