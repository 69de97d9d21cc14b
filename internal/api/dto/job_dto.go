package dto

// CreateJobRequest is the POST /jobs body. Images are base64 payloads,
// optionally in data-URL form.
type CreateJobRequest struct {
	Images      []string `json:"images" binding:"required"`
	Style       string   `json:"style"`
	AspectRatio string   `json:"aspect_ratio"`
}

// CreateJobResponse acknowledges an accepted submission.
type CreateJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobStatusResponse is the unified job view returned to polling clients.
// OutputURL and ExpiresAt are present only for completed jobs, Error only
// for failed ones.
type JobStatusResponse struct {
	JobID        string `json:"job_id"`
	Status       string `json:"status"`
	StatusDetail string `json:"status_detail,omitempty"`
	OutputURL    string `json:"output_url,omitempty"`
	ExpiresAt    string `json:"expires_at,omitempty"`
	Error        string `json:"error,omitempty"`
}

// StyleDTO is one entry of the style catalog.
type StyleDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListStylesResponse is the GET /styles body.
type ListStylesResponse struct {
	Styles []StyleDTO `json:"styles"`
}

// ListAspectRatiosResponse is the GET /aspect-ratios body.
type ListAspectRatiosResponse struct {
	AspectRatios []string `json:"aspect_ratios"`
}
