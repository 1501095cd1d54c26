package swagger

import (
	_ "embed"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	httpSwagger "github.com/swaggo/http-swagger"
)

//go:embed openapi.yml
var document []byte

// SpecPath is where the document is served, outside the API prefix.
const SpecPath = "/openapi.yml"

type Handler struct {
	doc *openapi3.T
	raw []byte
}

// NewHandler parses and validates the embedded OpenAPI document.
func NewHandler() (*Handler, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(document)
	if err != nil {
		return nil, fmt.Errorf("parse openapi document: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	return &Handler{doc: doc, raw: document}, nil
}

// Document is the parsed OpenAPI document.
func (h *Handler) Document() *openapi3.T {
	return h.doc
}

func (h *Handler) ServeSpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.raw)
}

// UI serves Swagger UI pointed at SpecPath.
func (h *Handler) UI() http.Handler {
	return httpSwagger.Handler(
		httpSwagger.URL(SpecPath),
	)
}
