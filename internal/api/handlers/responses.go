package handlers

type ErrorResponse struct {
	Error string `json:"error" example:"scheduler closed"`
}

type SuccessResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message,omitempty" example:"cycle started"`
}
