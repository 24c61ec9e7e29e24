package awsjson

import (
	"net/http"

	"github.com/golang/glog"

	"github.com/NVIDIA/cloudemu/asl"
	"github.com/NVIDIA/cloudemu/cmn"
	"github.com/NVIDIA/cloudemu/store"
)

// NewStepFunctions wires an AWSStepFunctions Service to engine.
// StartExecution runs the ASL interpreter synchronously before the HTTP
// response returns (spec.md §9 Open Question (b): "executions run
// synchronously inline with the StartExecution call").
func NewStepFunctions(engine *store.Engine) *Service {
	s := NewService("AWSStepFunctions")
	s.Handle("CreateStateMachine", handleCreateStateMachine(engine))
	s.Handle("DescribeStateMachine", handleDescribeStateMachine(engine))
	s.Handle("DeleteStateMachine", handleDeleteStateMachine(engine))
	s.Handle("ListStateMachines", handleListStateMachines(engine))
	s.Handle("StartExecution", handleStartExecution(engine))
	s.Handle("DescribeExecution", handleDescribeExecution(engine))
	s.Handle("ListExecutions", handleListExecutions(engine))
	return s
}

func handleCreateStateMachine(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			Name       string `json:"name"`
			Definition string `json:"definition"`
			RoleArn    string `json:"roleArn"`
			Type       string `json:"type"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		sm, err := engine.CreateStateMachine(r.Context(), req.Name, req.Definition, req.RoleArn, req.Type)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{"stateMachineArn": sm.ARN, "creationDate": sm.CreatedAt})
	}
}

func handleDescribeStateMachine(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			StateMachineArn string `json:"stateMachineArn"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		sm, err := engine.GetStateMachine(r.Context(), req.StateMachineArn)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{
			"stateMachineArn": sm.ARN, "name": sm.Name, "definition": sm.Definition,
			"roleArn": sm.RoleARN, "type": sm.Type, "creationDate": sm.CreatedAt,
		})
	}
}

func handleDeleteStateMachine(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			StateMachineArn string `json:"stateMachineArn"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		if err := engine.DeleteStateMachine(r.Context(), req.StateMachineArn); err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, map[string]interface{}{})
	}
}

func handleListStateMachines(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		sms, err := engine.ListStateMachines(r.Context())
		if err != nil {
			WriteError(w, err)
			return
		}
		out := make([]map[string]interface{}, len(sms))
		for i, sm := range sms {
			out[i] = map[string]interface{}{"stateMachineArn": sm.ARN, "name": sm.Name, "type": sm.Type, "creationDate": sm.CreatedAt}
		}
		WriteJSON(w, map[string]interface{}{"stateMachines": out})
	}
}

// handleStartExecution runs the machine's ASL definition to completion
// before responding, per the synchronous execution model decided in
// SPEC_FULL.md §9.
func handleStartExecution(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			StateMachineArn string `json:"stateMachineArn"`
			Name            string `json:"name"`
			Input           string `json:"input"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		name := req.Name
		if name == "" {
			name = cmn.GenShortID()
		}
		sm, err := engine.GetStateMachine(r.Context(), req.StateMachineArn)
		if err != nil {
			WriteError(w, err)
			return
		}
		exec, err := engine.StartExecution(r.Context(), sm.ARN, name, req.Input)
		if err != nil {
			WriteError(w, err)
			return
		}

		var definition map[string]interface{}
		if err := cmn.JSON.UnmarshalFromString(sm.Definition, &definition); err != nil {
			_ = engine.FinishExecution(r.Context(), exec.ARN, store.ExecFailed, "", "States.Runtime", "malformed state machine definition")
			WriteError(w, cmn.ErrInvalidRequest("state machine definition is not valid JSON"))
			return
		}
		var input interface{}
		if req.Input != "" {
			_ = cmn.JSON.UnmarshalFromString(req.Input, &input)
		}

		output, runErr := asl.Run(definition, input)
		if runErr != nil {
			execErr, _ := runErr.(*asl.ExecutionError)
			errName, cause := "States.Runtime", runErr.Error()
			if execErr != nil {
				errName, cause = execErr.ErrorName, execErr.Cause
			}
			if ferr := engine.FinishExecution(r.Context(), exec.ARN, store.ExecFailed, "", errName, cause); ferr != nil {
				glog.Errorf("stepfunctions: failed to record execution failure for %s: %v", exec.ARN, ferr)
			}
		} else {
			outputJSON, _ := cmn.JSON.MarshalToString(output)
			if ferr := engine.FinishExecution(r.Context(), exec.ARN, store.ExecSucceeded, outputJSON, "", ""); ferr != nil {
				glog.Errorf("stepfunctions: failed to record execution success for %s: %v", exec.ARN, ferr)
			}
		}

		WriteJSON(w, map[string]interface{}{"executionArn": exec.ARN, "startDate": exec.StartDate})
	}
}

func handleDescribeExecution(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			ExecutionArn string `json:"executionArn"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		exec, err := engine.GetExecution(r.Context(), req.ExecutionArn)
		if err != nil {
			WriteError(w, err)
			return
		}
		resp := map[string]interface{}{
			"executionArn": exec.ARN, "stateMachineArn": exec.StateMachineARN,
			"name": exec.Name, "status": exec.Status, "startDate": exec.StartDate,
		}
		if exec.Output != nil {
			resp["output"] = *exec.Output
		}
		if exec.Error != nil {
			resp["error"] = *exec.Error
		}
		if exec.Cause != nil {
			resp["cause"] = *exec.Cause
		}
		if exec.StopDate != nil {
			resp["stopDate"] = *exec.StopDate
		}
		WriteJSON(w, resp)
	}
}

func handleListExecutions(engine *store.Engine) Action {
	return func(w http.ResponseWriter, r *http.Request, body []byte) {
		var req struct {
			StateMachineArn string `json:"stateMachineArn"`
		}
		if err := Decode(body, &req); err != nil {
			WriteError(w, err)
			return
		}
		execs, err := engine.ListExecutions(r.Context(), req.StateMachineArn)
		if err != nil {
			WriteError(w, err)
			return
		}
		out := make([]map[string]interface{}, len(execs))
		for i, e := range execs {
			out[i] = map[string]interface{}{"executionArn": e.ARN, "name": e.Name, "status": e.Status, "startDate": e.StartDate}
		}
		WriteJSON(w, map[string]interface{}{"executions": out})
	}
}
