package chi

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// validate checks request bodies against their struct tags. Field names come from json tags.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type askRequest struct {
	Question string `json:"question" validate:"max=8192"`
	K        *int   `json:"k,omitempty" validate:"omitempty,lte=100"`
}

type askResponse struct {
	Question   string   `json:"question"`
	K          int      `json:"k"`
	Answer     string   `json:"answer"`
	Contexts   []string `json:"contexts"`
	Confidence float64  `json:"confidence"`
}

type healthResponse struct {
	Status          string            `json:"status"`
	DocumentsLoaded int               `json:"documents_loaded"`
	EmbeddingsReady bool              `json:"embeddings_ready"`
	Message         string            `json:"message"`
	Checks          map[string]string `json:"checks"`
}

type statsResponse struct {
	TotalDocuments     int `json:"total_documents"`
	EmbeddingDimension int `json:"embedding_dimension"`
	TotalEmbeddings    int `json:"total_embeddings"`
}

type homeResponse struct {
	Status  string `json:"status"`
	Health  string `json:"health"`
	Message string `json:"message"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// validateRequest converts the first tag violation into a domain.ValidationError.
func validateRequest(req *askRequest) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate request: %w", err)
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "max":
		return domain.NewValidationError(fe.Field(), "must be at most "+fe.Param()+" characters")
	case "lte":
		return domain.NewValidationError(fe.Field(), "must be at most "+fe.Param())
	default:
		return domain.NewValidationError(fe.Field(), "failed on '"+fe.Tag()+"'")
	}
}
