package api

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Items   int    `json:"items"`
}

type Item struct {
	ID       int    `json:"id"`
	Path     string `json:"path"`
	MimeType string `json:"mime_type"`
}

type ListResponse struct {
	Data  []Item `json:"data"`
	Count int    `json:"count"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
