// Package api provides the HTTP handlers of the AuditFix gateway.
package api

// APIVersion represents the current API version supported by this server.
// The api_version field in /status lets the frontend detect which
// endpoints are available without probing them.
const (
	// APIVersion1 is the original API version.
	APIVersion1 = 1

	// CurrentAPIVersion is the highest API version supported by this server.
	CurrentAPIVersion = APIVersion1
)

// ServiceName is reported by the status endpoints.
const ServiceName = "auditfix-gateway"

// APICapabilities describes the features available at each API version.
var APICapabilities = map[int][]string{
	APIVersion1: {
		"analyze",
		"gemini-fix",
		"github-repo",
	},
}

// StatusResponse is the response from the /status endpoint.
type StatusResponse struct {
	Status       string   `json:"status"`
	Service      string   `json:"service"`
	APIVersion   int      `json:"api_version"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// NewStatusResponse reports the current version and its capabilities.
func NewStatusResponse() StatusResponse {
	return StatusResponse{
		Status:       "ok",
		Service:      ServiceName,
		APIVersion:   CurrentAPIVersion,
		Capabilities: APICapabilities[CurrentAPIVersion],
	}
}
