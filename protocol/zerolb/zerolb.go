// Package zerolb implements the "zero" provider's load-balancer control
// plane: a small JSON REST API at /v1/lb/... (spec.md §4.1 priority 3,
// "Path prefix: /v1/<service>/… (zero provider)") for creating load
// balancers, target groups, targets, and listeners. Creating a listener
// also binds lb.DataPlane's proxy for that port, matching spec.md §4.5's
// "Creating a listener binds a TCP listener ... and runs an HTTP proxy."
package zerolb

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/NVIDIA/cloudemu/cmn"
	"github.com/NVIDIA/cloudemu/lb"
	"github.com/NVIDIA/cloudemu/store"
)

// Binder is the subset of *lb.DataPlane the adapter needs — narrowed so
// tests can fake it without standing up a real fasthttp listener.
type Binder interface {
	Bind(port uint16, targetGroupARN string) error
	Unbind(port uint16) error
}

var _ Binder = (*lb.DataPlane)(nil)

type Adapter struct {
	Engine *store.Engine
	Plane  Binder
}

// Sync restores every persisted listener's proxy binding, matching
// spec.md §4.5's "sync_data_plane restores them on startup."
func (a *Adapter) Sync() error {
	listeners, err := a.Engine.ListListeners(context.Background())
	if err != nil {
		return err
	}
	for _, l := range listeners {
		if err := a.Plane.Bind(uint16(l.Port), l.TargetGroupARN); err != nil {
			return err
		}
	}
	return nil
}

// ServeHTTP handles /v1/lb/load-balancers, /v1/lb/target-groups,
// /v1/lb/target-groups/{arn}/targets, and /v1/lb/listeners.
func (a *Adapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/lb/")
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case parts[0] == "load-balancers" && r.Method == http.MethodPost:
		a.createLoadBalancer(w, r)
	case parts[0] == "target-groups" && len(parts) == 1 && r.Method == http.MethodPost:
		a.createTargetGroup(w, r)
	case parts[0] == "target-groups" && len(parts) == 3 && parts[2] == "targets" && r.Method == http.MethodPost:
		a.registerTarget(w, r, parts[1])
	case parts[0] == "target-groups" && len(parts) == 4 && parts[2] == "targets" && r.Method == http.MethodDelete:
		a.deregisterTarget(w, r, parts[1], parts[3])
	case parts[0] == "listeners" && len(parts) == 1 && r.Method == http.MethodPost:
		a.createListener(w, r)
	case parts[0] == "listeners" && len(parts) == 2 && r.Method == http.MethodDelete:
		a.deleteListener(w, r, parts[1])
	default:
		writeError(w, cmn.ErrNotImplemented(r.Method+" "+r.URL.Path))
	}
}

func (a *Adapter) createLoadBalancer(w http.ResponseWriter, r *http.Request) {
	var req struct{ Name, Type string }
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, cmn.ErrInvalidRequest(err.Error()))
		return
	}
	out, err := a.Engine.CreateLoadBalancer(r.Context(), req.Name, req.Type)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *Adapter) createTargetGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string
		Port     int
		Protocol string
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, cmn.ErrInvalidRequest(err.Error()))
		return
	}
	out, err := a.Engine.CreateTargetGroup(r.Context(), req.Name, req.Port, req.Protocol)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *Adapter) registerTarget(w http.ResponseWriter, r *http.Request, groupARN string) {
	var req struct {
		TargetID string `json:"target_id"`
		Host     string
		Port     int
		Weight   int
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, cmn.ErrInvalidRequest(err.Error()))
		return
	}
	if err := a.Engine.RegisterTarget(r.Context(), groupARN, req.TargetID, req.Host, req.Port, req.Weight); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *Adapter) deregisterTarget(w http.ResponseWriter, r *http.Request, groupARN, targetID string) {
	if err := a.Engine.DeregisterTarget(r.Context(), groupARN, targetID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *Adapter) createListener(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LBName         string `json:"lb_name"`
		Port           int
		Protocol       string
		TargetGroupArn string `json:"target_group_arn"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, cmn.ErrInvalidRequest(err.Error()))
		return
	}
	l, err := a.Engine.CreateListener(r.Context(), req.LBName, req.Port, req.Protocol, req.TargetGroupArn)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.Plane.Bind(uint16(l.Port), l.TargetGroupARN); err != nil {
		writeError(w, cmn.ErrInternal(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (a *Adapter) deleteListener(w http.ResponseWriter, r *http.Request, listenerID string) {
	listeners, err := a.Engine.ListListeners(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	var port int
	for _, l := range listeners {
		if l.ID == listenerID {
			port = l.Port
			break
		}
	}
	if err := a.Engine.DeleteListener(r.Context(), listenerID); err != nil {
		writeError(w, err)
		return
	}
	if port != 0 {
		_ = a.Plane.Unbind(uint16(port))
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = cmn.JSON.NewEncoder(w).Encode(v)
}

type lbError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func writeError(w http.ResponseWriter, err error) {
	e := cmn.AsError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPStatus())
	_ = cmn.JSON.NewEncoder(w).Encode(lbError{Message: e.Error(), Code: e.AWSCode()})
}
