package awsjson

import (
	"net/http"
	"time"

	"github.com/NVIDIA/cloudemu/cmn"
	"github.com/NVIDIA/cloudemu/store"
)

// NewCloudWatch wires a GraniteServiceVersion20100801 (CloudWatch metrics)
// Service to engine.
func NewCloudWatch(engine *store.Engine) *Service {
	s := NewService("GraniteServiceVersion20100801")
	s.Handle("PutMetricData", handlePutMetricData(engine))
	s.Handle("GetMetricData", handleGetMetricStatistics(engine))
	s.Handle("ListMetrics", handleListMetrics(engine))
	return s
}

func handlePutMetricData(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			Namespace  string `json:"Namespace"`
			MetricData []struct {
				MetricName string      `json:"MetricName"`
				Value      float64     `json:"Value"`
				Unit       string      `json:"Unit"`
				Dimensions interface{} `json:"Dimensions"`
			} `json:"MetricData"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		for _, d := range req.MetricData {
			dimsJSON, _ := cmn.JSON.MarshalToString(d.Dimensions)
			if err := engine.PutMetricData(r.Context(), req.Namespace, d.MetricName, dimsJSON, d.Value, d.Unit); err != nil {
				WriteError(w, err)
				return
			}
		}
		WriteJSON(w, map[string]interface{}{})
	}
}

func handleGetMetricStatistics(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			Namespace  string `json:"Namespace"`
			MetricName string `json:"MetricName"`
			StartTime  string `json:"StartTime"`
			EndTime    string `json:"EndTime"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		data, err := engine.GetMetricData(r.Context(), req.Namespace, req.MetricName, req.StartTime, req.EndTime)
		if err != nil {
			WriteError(w, err)
			return
		}
		out := make([]map[string]interface{}, len(data))
		for i, d := range data {
			out[i] = map[string]interface{}{"Timestamp": d.Timestamp, "Value": d.Value}
		}
		WriteJSON(w, map[string]interface{}{"Datapoints": out})
	}
}

func handleListMetrics(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			Namespace string `json:"Namespace"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		data, err := engine.ListMetrics(r.Context(), req.Namespace)
		if err != nil {
			WriteError(w, err)
			return
		}
		seen := make(map[string]bool)
		out := make([]map[string]interface{}, 0, len(data))
		for _, d := range data {
			key := d.Namespace + "/" + d.MetricName
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, map[string]interface{}{"Namespace": d.Namespace, "MetricName": d.MetricName})
		}
		WriteJSON(w, map[string]interface{}{"Metrics": out})
	}
}

// NewCloudWatchLogs wires a Logs_20140328 Service to engine.
func NewCloudWatchLogs(engine *store.Engine) *Service {
	s := NewService("Logs_20140328")
	s.Handle("CreateLogGroup", handleCreateLogGroup(engine))
	s.Handle("DeleteLogGroup", handleDeleteLogGroup(engine))
	s.Handle("DescribeLogGroups", handleDescribeLogGroups(engine))
	s.Handle("CreateLogStream", handleCreateLogStream(engine))
	s.Handle("DescribeLogStreams", handleDescribeLogStreams(engine))
	s.Handle("PutLogEvents", handlePutLogEvents(engine))
	s.Handle("GetLogEvents", handleGetLogEvents(engine))
	return s
}

func handleCreateLogGroup(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			LogGroupName string `json:"logGroupName"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		if _, err := engine.CreateLogGroup(r.Context(), req.LogGroupName); err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{})
	}
}

func handleDeleteLogGroup(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			LogGroupName string `json:"logGroupName"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		if err := engine.DeleteLogGroup(r.Context(), req.LogGroupName); err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{})
	}
}

func handleDescribeLogGroups(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		groups, err := engine.ListLogGroups(r.Context())
		if err != nil {
			WriteError(w, err)
			return
		}
		out := make([]map[string]interface{}, len(groups))
		for i, g := range groups {
			out[i] = map[string]interface{}{"logGroupName": g.Name, "arn": g.ARN, "creationTime": g.CreatedAt}
		}
		WriteJSON(w, map[string]interface{}{"logGroups": out})
	}
}

func handleCreateLogStream(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			LogGroupName  string `json:"logGroupName"`
			LogStreamName string `json:"logStreamName"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		if _, err := engine.CreateLogStream(r.Context(), req.LogGroupName, req.LogStreamName); err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{})
	}
}

func handleDescribeLogStreams(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			LogGroupName string `json:"logGroupName"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		streams, err := engine.ListLogStreams(r.Context(), req.LogGroupName)
		if err != nil {
			WriteError(w, err)
			return
		}
		out := make([]map[string]interface{}, len(streams))
		for i, s := range streams {
			out[i] = map[string]interface{}{"logStreamName": s.Name, "arn": s.ARN, "creationTime": s.CreatedAt}
		}
		WriteJSON(w, map[string]interface{}{"logStreams": out})
	}
}

func handlePutLogEvents(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			LogGroupName  string `json:"logGroupName"`
			LogStreamName string `json:"logStreamName"`
			LogEvents     []struct {
				Timestamp int64  `json:"timestamp"`
				Message   string `json:"message"`
			} `json:"logEvents"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		events := make([]store.LogEvent, len(req.LogEvents))
		for i, ev := range req.LogEvents {
			ts := time.UnixMilli(ev.Timestamp).UTC().Format(time.RFC3339Nano)
			events[i] = store.LogEvent{
				LogGroupName: req.LogGroupName, LogStreamName: req.LogStreamName,
				Timestamp: ts, Message: ev.Message,
			}
		}
		if err := engine.PutLogEvents(r.Context(), req.LogGroupName, req.LogStreamName, events); err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{"nextSequenceToken": cmn.GenShortID()})
	}
}

func handleGetLogEvents(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			LogGroupName  string `json:"logGroupName"`
			LogStreamName string `json:"logStreamName"`
			StartTime     string `json:"startTime"`
			EndTime       string `json:"endTime"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		events, err := engine.GetLogEvents(r.Context(), req.LogGroupName, req.LogStreamName, req.StartTime, req.EndTime)
		if err != nil {
			WriteError(w, err)
			return
		}
		out := make([]map[string]interface{}, len(events))
		for i, ev := range events {
			out[i] = map[string]interface{}{"timestamp": ev.Timestamp, "message": ev.Message}
		}
		WriteJSON(w, map[string]interface{}{"events": out})
	}
}
