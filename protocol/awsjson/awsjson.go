// Package awsjson implements the AWS JSON-1.1 protocol shared by
// DynamoDB, KMS, EventBridge, Step Functions, Secrets Manager, Cognito
// Identity Provider, and CloudWatch (spec.md §4.1 priority 1: dispatch on
// the `X-Amz-Target: <ServicePrefix>.<Action>` header).
package awsjson

import (
	"io"
	"net/http"
	"strings"

	"github.com/NVIDIA/cloudemu/cmn"
)

// Action handles one decoded operation. body is the raw request payload;
// the handler decodes it itself via cmn.JSON so it can pick its own
// request struct.
type Action func(w http.ResponseWriter, r *http.Request, body []byte)

// Service multiplexes every action of one AWS JSON-1.1 service (its
// `X-Amz-Target` prefix, e.g. "DynamoDB_20120810").
type Service struct {
	prefix  string
	actions map[string]Action
}

func NewService(prefix string) *Service {
	return &Service{prefix: prefix, actions: make(map[string]Action)}
}

func (s *Service) Handle(action string, h Action) { s.actions[action] = h }

// ServeHTTP satisfies router.Handler: it re-reads the target's Action
// suffix (the router has already matched the prefix to select this
// Service) and dispatches, or answers with the same NotImplementedException
// envelope the router's own catch-all uses.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target := r.Header.Get("X-Amz-Target")
	_, action, ok := strings.Cut(target, ".")
	if !ok {
		WriteError(w, cmn.ErrInvalidRequest("missing X-Amz-Target action"))
		return
	}
	h, ok := s.actions[action]
	if !ok {
		WriteError(w, cmn.ErrNotImplemented(s.prefix+"."+action))
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		WriteError(w, cmn.ErrInvalidRequest(err.Error()))
		return
	}
	h(w, r, body)
}

// Decode unmarshals body into v, wrapping any failure as a
// cmn.KindInvalidRequest error the caller can pass straight to WriteError.
func Decode(body []byte, v interface{}) error {
	if len(body) == 0 {
		return nil
	}
	if err := cmn.JSON.Unmarshal(body, v); err != nil {
		return cmn.ErrInvalidRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

// WriteJSON encodes v as the 200 OK response body.
func WriteJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/x-amz-json-1.1")
	w.WriteHeader(http.StatusOK)
	_ = cmn.JSON.NewEncoder(w).Encode(v)
}

// WriteError translates a *cmn.Error (or any error) into the AWS JSON-1.1
// error envelope: an HTTP status plus a body naming `__type`.
func WriteError(w http.ResponseWriter, err error) {
	e := cmn.AsError(err)
	w.Header().Set("Content-Type", "application/x-amz-json-1.1")
	w.WriteHeader(e.HTTPStatus())
	_ = cmn.JSON.NewEncoder(w).Encode(map[string]string{
		"__type":  e.AWSCode(),
		"message": e.Error(),
	})
}
