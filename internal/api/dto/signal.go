package dto

// Pointer fields let the handler tell a missing field from a zero value.
type SignalRequest struct {
	X         *int   `json:"x"`
	Y         *int   `json:"y"`
	Timestamp *int64 `json:"timestamp"`
}

type SignalResponse struct {
	Status string `json:"status"`
}
