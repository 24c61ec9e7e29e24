// Package awsquery implements the AWS Query protocol shared by SQS and
// SNS: form-encoded (application/x-www-form-urlencoded) requests
// dispatched on an `Action` field, XML responses (spec.md §4.1 priority
// 4).
package awsquery

import (
	"encoding/xml"
	"net/http"
	"strconv"

	"github.com/NVIDIA/cloudemu/cmn"
)

// Action handles one decoded Query-protocol operation.
type Action func(w http.ResponseWriter, r *http.Request, form Form)

// Form is the parsed application/x-www-form-urlencoded body.
type Form struct{ values map[string][]string }

func (f Form) Get(key string) string {
	if v, ok := f.values[key]; ok && len(v) > 0 {
		return v[0]
	}
	return ""
}

func (f Form) GetInt(key string, def int) int {
	s := f.Get(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// Indexed collects AWS Query's "Foo.member.N.Bar"-shaped repeated
// parameters into one slice of sub-Forms, one per member index.
func (f Form) Indexed(prefix string) []Form {
	indices := make(map[int]bool)
	for k := range f.values {
		var idx int
		var rest string
		if n, _ := sscanIndexed(k, prefix, &idx, &rest); n {
			indices[idx] = true
		}
	}
	out := make([]Form, 0, len(indices))
	for i := 1; i <= len(indices); i++ {
		sub := make(map[string][]string)
		memberPrefix := prefix + "." + strconv.Itoa(i) + "."
		for k, v := range f.values {
			if hasPrefix(k, memberPrefix) {
				sub[k[len(memberPrefix):]] = v
			}
		}
		out = append(out, Form{values: sub})
	}
	return out
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// sscanIndexed reports whether key matches "<prefix>.<N>.<rest>" and, if
// so, extracts N into idx.
func sscanIndexed(key, prefix string, idx *int, rest *string) (bool, error) {
	p := prefix + "."
	if !hasPrefix(key, p) {
		return false, nil
	}
	remainder := key[len(p):]
	dot := -1
	for i, c := range remainder {
		if c == '.' {
			dot = i
			break
		}
	}
	if dot < 0 {
		return false, nil
	}
	n, err := strconv.Atoi(remainder[:dot])
	if err != nil {
		return false, nil
	}
	*idx = n
	*rest = remainder[dot+1:]
	return true, nil
}

// Service multiplexes every Action of one AWS Query service.
type Service struct {
	name    string
	actions map[string]Action
}

func NewService(name string) *Service {
	return &Service{name: name, actions: make(map[string]Action)}
}

func (s *Service) Handle(action string, h Action) { s.actions[action] = h }

// Merge copies other's actions into s, so two Query-protocol services that
// share a transport (SQS and SNS both POST form-encoded to "/") can be
// dispatched by one Service keyed on their disjoint Action names.
func (s *Service) Merge(other *Service) {
	for action, h := range other.actions {
		s.actions[action] = h
	}
}

func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		WriteError(w, cmn.ErrInvalidRequest(err.Error()))
		return
	}
	form := Form{values: map[string][]string(r.Form)}
	action := form.Get("Action")
	h, ok := s.actions[action]
	if !ok {
		WriteError(w, cmn.ErrNotImplemented(s.name+"."+action))
		return
	}
	h(w, r, form)
}

// WriteXML writes v as the 200 OK response body.
func WriteXML(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_ = xml.NewEncoder(w).Encode(v)
}

type queryErrorResponse struct {
	XMLName xml.Name `xml:"ErrorResponse"`
	Error   struct {
		Type    string `xml:"Type"`
		Code    string `xml:"Code"`
		Message string `xml:"Message"`
	} `xml:"Error"`
	RequestId string `xml:"RequestId"`
}

// WriteError translates err into the Query-protocol XML error envelope.
func WriteError(w http.ResponseWriter, err error) {
	e := cmn.AsError(err)
	resp := queryErrorResponse{RequestId: cmn.GenUUID()}
	resp.Error.Type = "Sender"
	resp.Error.Code = e.AWSCode()
	resp.Error.Message = e.Error()
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(e.HTTPStatus())
	_, _ = w.Write([]byte(xml.Header))
	_ = xml.NewEncoder(w).Encode(resp)
}
