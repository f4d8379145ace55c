package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the wire shape of every failed request. Code is the error kind
// and Reason the stable business code clients switch on.
type APIError struct {
	Code    string `json:"code"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
