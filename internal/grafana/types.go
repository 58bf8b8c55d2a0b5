package grafana

import "fmt"

// AnnotationRequest is the create payload for POST /api/annotations.
// The API expects camelCase keys; optional scoping fields are omitted when
// unset.
type AnnotationRequest struct {
	DashboardID *int64   `json:"dashboardId,omitempty"`
	PanelID     *int64   `json:"panelId,omitempty"`
	Time        int64    `json:"time"`
	TimeEnd     *int64   `json:"timeEnd,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Text        string   `json:"text"`
}

// AnnotationPatch is the partial-update payload for PATCH
// /api/annotations/{id}. Only the end timestamp is sent.
type AnnotationPatch struct {
	TimeEnd int64 `json:"timeEnd"`
}

// AnnotationResponse is the create response carrying the assigned id.
type AnnotationResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

// APIError represents a non-success response from the annotation API
type APIError struct {
	StatusCode int
	Status     string
	URL        string
}

// Error returns the error message
func (e *APIError) Error() string {
	return fmt.Sprintf("annotation API returned HTTP %d for %s: %s", e.StatusCode, e.URL, e.Status)
}

// NewAPIError creates a new annotation API error
func NewAPIError(statusCode int, url, status string) error {
	return &APIError{
		StatusCode: statusCode,
		URL:        url,
		Status:     status,
	}
}
