package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/splax/ledger/internal/apperr"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// envelope is the shape of every response body.
type envelope struct {
	Status string `json:"status"`
	Code   int    `json:"code"`
	Msg    any    `json:"msg"`
}

type dataMsg struct {
	Data any `json:"data"`
}

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeMessage sends a success envelope carrying a confirmation string.
func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, envelope{Status: statusSuccess, Code: http.StatusOK, Msg: msg})
}

// writeData sends a success envelope with msg.data set to data.
func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Status: statusSuccess, Code: http.StatusOK, Msg: dataMsg{Data: data}})
}

// writeFailure sends an error envelope with an explicit status.
func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Status: statusError, Code: status, Msg: msg})
}

// writeError maps err onto an error envelope. Internal failures are
// reported with a generic message.
func writeError(w http.ResponseWriter, err error) {
	writeFailure(w, apperr.StatusOf(err), apperr.PublicMessage(err))
}
