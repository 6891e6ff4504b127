package httpclient

import jsoniter "github.com/json-iterator/go"

// envelope is the common wallet service response wrapper. Endpoints that answer
// without it are decoded from the whole body.
type envelope struct {
	Success *bool               `json:"success"`
	Message string              `json:"message"`
	Error   string              `json:"error"`
	Data    jsoniter.RawMessage `json:"data"`
}

type pinRequest struct {
	Pin string `json:"pin"`
}

type pinCheckResponse struct {
	HasPin bool `json:"hasPin"`
}
