package awsjson

import (
	"context"
	"net/http"

	"github.com/golang/glog"

	"github.com/NVIDIA/cloudemu/cmn"
	"github.com/NVIDIA/cloudemu/events"
	"github.com/NVIDIA/cloudemu/store"
)

// NewEventBridge wires an AWSEvents Service to engine. PutEvents is the
// one operation that does real work beyond a CRUD passthrough: it matches
// every ENABLED rule on the target bus against each submitted event
// (spec.md §4.4) and fans matches out via dispatcher.
func NewEventBridge(engine *store.Engine, dispatcher *events.Dispatcher, patterns *events.PatternCache) *Service {
	s := NewService("AWSEvents")
	s.Handle("CreateEventBus", handleCreateEventBus(engine))
	s.Handle("PutRule", handlePutRule(engine))
	s.Handle("DeleteRule", handleDeleteRule(engine))
	s.Handle("PutTargets", handlePutTargets(engine))
	s.Handle("RemoveTargets", handleRemoveTargets(engine))
	s.Handle("PutEvents", handlePutEvents(engine, dispatcher, patterns))
	return s
}

func handleCreateEventBus(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			Name string `json:"Name"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		bus, err := engine.CreateEventBus(r.Context(), req.Name)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{"EventBusArn": bus.ARN})
	}
}

func busNameOrDefault(name string) string {
	if name == "" {
		return "default"
	}
	return name
}

func handlePutRule(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			Name         string `json:"Name"`
			EventBusName string `json:"EventBusName"`
			EventPattern string `json:"EventPattern"`
			ScheduleExpression string `json:"ScheduleExpression"`
			Description  string `json:"Description"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		rule, err := engine.PutRule(r.Context(), busNameOrDefault(req.EventBusName), req.Name, req.EventPattern, req.ScheduleExpression, req.Description)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{"RuleArn": rule.ARN})
	}
}

func handleDeleteRule(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			Name         string `json:"Name"`
			EventBusName string `json:"EventBusName"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		if err := engine.DeleteRule(r.Context(), busNameOrDefault(req.EventBusName), req.Name); err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{})
	}
}

func handlePutTargets(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			Rule         string `json:"Rule"`
			EventBusName string `json:"EventBusName"`
			Targets      []struct {
				Id        string `json:"Id"`
				Arn       string `json:"Arn"`
				Input     string `json:"Input"`
				InputPath string `json:"InputPath"`
			} `json:"Targets"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		bus := busNameOrDefault(req.EventBusName)
		var failed []map[string]interface{}
		for _, t := range req.Targets {
			if err := engine.PutTargets(r.Context(), bus, req.Rule, t.Id, t.Arn, t.Input, t.InputPath); err != nil {
				failed = append(failed, map[string]interface{}{"TargetId": t.Id, "ErrorMessage": err.Error()})
			}
		}
		WriteJSON(w, map[string]interface{}{"FailedEntryCount": len(failed), "FailedEntries": failed})
	}
}

func handleRemoveTargets(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			Rule         string   `json:"Rule"`
			EventBusName string   `json:"EventBusName"`
			Ids          []string `json:"Ids"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		bus := busNameOrDefault(req.EventBusName)
		for _, id := range req.Ids {
			_ = engine.RemoveTarget(r.Context(), bus, req.Rule, id)
		}
		WriteJSON(w, map[string]interface{}{"FailedEntryCount": 0})
	}
}

func handlePutEvents(engine *store.Engine, dispatcher *events.Dispatcher, patterns *events.PatternCache) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			Entries []struct {
				Source       string   `json:"Source"`
				DetailType   string   `json:"DetailType"`
				Detail       string   `json:"Detail"` // caller-supplied JSON text
				EventBusName string   `json:"EventBusName"`
				Resources    []string `json:"Resources"`
			} `json:"Entries"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}

		results := make([]map[string]interface{}, 0, len(req.Entries))
		failed := 0
		for _, entry := range req.Entries {
			bus := busNameOrDefault(entry.EventBusName)
			detail, derr := cmn.ParseValue([]byte(entry.Detail))
			if derr != nil {
				failed++
				results = append(results, map[string]interface{}{"ErrorCode": "InvalidArgument"})
				continue
			}
			ev := events.Event{
				Source: entry.Source, DetailType: entry.DetailType, Detail: detail,
				Time: cmn.NowRFC3339(), Resources: entry.Resources,
			}
			matchedRules := matchAndDispatch(r.Context(), engine, dispatcher, patterns, bus, ev)
			resourcesJSON, _ := cmn.JSON.MarshalToString(entry.Resources)
			matchedJSON, _ := cmn.JSON.MarshalToString(matchedRules)
			_ = engine.RecordEventHistory(r.Context(), store.EventHistoryEntry{
				EventBusName: bus, Source: &entry.Source, DetailType: &entry.DetailType,
				Detail: &entry.Detail, Time: strPtr(ev.Time), Resources: strPtr(resourcesJSON),
				MatchedRules: strPtr(matchedJSON),
			})
			results = append(results, map[string]interface{}{"EventId": cmn.GenUUID()})
		}
		WriteJSON(w, map[string]interface{}{"FailedEntryCount": failed, "Entries": results})
	}
}

func strPtr(s string) *string { return &s }

// matchAndDispatch evaluates every ENABLED rule on bus against ev and
// fans matches out through dispatcher, returning the matched rule names
// for the history entry.
func matchAndDispatch(ctx context.Context, engine *store.Engine, dispatcher *events.Dispatcher, patterns *events.PatternCache, bus string, ev events.Event) []string {
	rules, err := engine.ListRules(ctx, bus)
	if err != nil {
		glog.Warningf("events: failed to list rules for bus %s: %v", bus, err)
		return nil
	}

	var matched []string
	for _, rule := range rules {
		if rule.EventPattern == nil {
			continue
		}
		pattern, err := patterns.Decode(*rule.EventPattern)
		if err != nil {
			glog.Warningf("events: rule %s/%s has malformed pattern: %v", bus, rule.Name, err)
			continue
		}
		if pattern != nil && !events.Match(pattern, ev) {
			continue
		}
		matched = append(matched, rule.Name)

		targets, err := engine.ListTargets(ctx, bus, rule.Name)
		if err != nil {
			glog.Warningf("events: failed to list targets for rule %s/%s: %v", bus, rule.Name, err)
			continue
		}
		dispatcher.Dispatch(ctx, engine.Region(), ev, targets)
	}
	return matched
}
