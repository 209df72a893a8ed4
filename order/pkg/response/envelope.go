package response

import "encoding/json"

// Envelope is the response wrapper of the external orders API.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}
