package handlers

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openAPIDocument []byte

// OpenAPIHandler serves the API description as YAML and JSON
type OpenAPIHandler struct {
	yamlDoc []byte
	jsonDoc []byte
}

// NewOpenAPIHandler parses the embedded document once so both formats are served from memory
func NewOpenAPIHandler() (*OpenAPIHandler, error) {
	return newOpenAPIHandler(openAPIDocument)
}

func newOpenAPIHandler(doc []byte) (*OpenAPIHandler, error) {
	var parsed map[string]any
	if err := yaml.Unmarshal(doc, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}
	if _, ok := parsed["openapi"]; !ok {
		return nil, fmt.Errorf("failed to parse OpenAPI document: missing openapi version")
	}

	jsonDoc, err := json.Marshal(parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to convert OpenAPI document to JSON: %w", err)
	}

	return &OpenAPIHandler{yamlDoc: doc, jsonDoc: jsonDoc}, nil
}

// RegisterRoutes registers OpenAPI routes
func (h *OpenAPIHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/openapi.yaml", h.ServeYAML).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/openapi.json", h.ServeJSON).Methods(http.MethodGet)
}

// ServeYAML serves the OpenAPI spec in YAML format
func (h *OpenAPIHandler) ServeYAML(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/x-yaml")
	_, _ = w.Write(h.yamlDoc)
}

// ServeJSON serves the OpenAPI spec in JSON format
func (h *OpenAPIHandler) ServeJSON(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(h.jsonDoc)
}
