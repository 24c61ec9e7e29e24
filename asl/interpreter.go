package asl

import (
	"fmt"

	"github.com/NVIDIA/cloudemu/cmn"
)

// ExecutionError is raised by Fail states and by the runaway guard. Its
// message is exactly "<Error>: <Cause>" per spec.md §4.3 "Failure surfaces
// as an error with <Error>: <Cause> message and aborts the execution."
type ExecutionError struct {
	ErrorName string
	Cause     string
}

func (e *ExecutionError) Error() string { return fmt.Sprintf("%s: %s", e.ErrorName, e.Cause) }

// Run executes definition starting at its StartAt state against input,
// returning the final output or an *ExecutionError. definition is the
// already-decoded ASL document (map[string]interface{} from JSON, the
// shape every adapter produces after calling cmn.JSON.Unmarshal on the
// request body).
func Run(definition map[string]interface{}, input interface{}) (interface{}, error) {
	states, ok := definition["States"].(map[string]interface{})
	if !ok {
		return nil, &ExecutionError{ErrorName: "States.Runtime", Cause: "definition has no States object"}
	}
	state, _ := definition["StartAt"].(string)
	if state == "" {
		return nil, &ExecutionError{ErrorName: "States.Runtime", Cause: "definition has no StartAt"}
	}

	iterations := 0
	for {
		iterations++
		if iterations > cmn.MaxASLIterations {
			return nil, &ExecutionError{ErrorName: "States.Runaway", Cause: "exceeded maximum iteration count"}
		}

		sdRaw, ok := states[state]
		if !ok {
			return nil, &ExecutionError{ErrorName: "States.Runtime", Cause: "no such state: " + state}
		}
		sd, ok := sdRaw.(map[string]interface{})
		if !ok {
			return nil, &ExecutionError{ErrorName: "States.Runtime", Cause: "malformed state: " + state}
		}

		stype, _ := sd["Type"].(string)
		var err error
		var isChoice bool

		switch stype {
		case "Pass":
			input = applyPass(sd, input)
		case "Task":
			// Emulated pass-through: the interpreter never actually invokes a
			// Lambda/activity, matching spec.md §4.3's dispatch table entry
			// "Task: input ← input (emulated pass-through)".
		case "Wait":
			// No real wait: spec.md §9 Open Question resolved to a no-op.
		case "Succeed":
			return input, nil
		case "Fail":
			errName, _ := sd["Error"].(string)
			cause, _ := sd["Cause"].(string)
			return nil, &ExecutionError{ErrorName: errName, Cause: cause}
		case "Choice":
			state, err = evaluateChoice(sd, input)
			isChoice = true
		case "Parallel":
			input, err = runParallel(sd, input)
		case "Map":
			input, err = runMap(sd, input)
		default:
			return nil, &ExecutionError{ErrorName: "States.Runtime", Cause: "unknown state type: " + stype}
		}
		if err != nil {
			return nil, err
		}

		if isChoice {
			// A Choice state sets `state` to its next target itself and never
			// consults End (spec.md §4.3 dispatch pseudocode: "Choice:
			// evaluateChoice(...); continue").
			continue
		}
		if end, _ := sd["End"].(bool); end {
			return input, nil
		}
		next, _ := sd["Next"].(string)
		if next == "" {
			return nil, &ExecutionError{ErrorName: "States.Runtime", Cause: "state has neither End nor Next: " + state}
		}
		state = next
	}
}

// applyPass applies, in order, the optional Parameters/Result/ResultPath/
// OutputPath transforms a Pass state may carry (spec.md §4.3).
func applyPass(sd map[string]interface{}, input interface{}) interface{} {
	output := input
	if params, ok := sd["Parameters"]; ok {
		output = params
	}
	if result, ok := sd["Result"]; ok {
		output = result
	}
	if resultPath, ok := sd["ResultPath"].(string); ok {
		output = set(resultPath, input, output)
	}
	if outputPath, ok := sd["OutputPath"].(string); ok {
		if v, found := get(outputPath, output); found {
			output = v
		} else {
			output = nil
		}
	}
	return output
}

func evaluateChoice(sd map[string]interface{}, input interface{}) (string, error) {
	choices, _ := sd["Choices"].([]interface{})
	for _, c := range choices {
		rule, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		if evalRule(rule, input) {
			next, _ := rule["Next"].(string)
			if next == "" {
				return "", &ExecutionError{ErrorName: "States.Runtime", Cause: "matched choice has no Next"}
			}
			return next, nil
		}
	}
	if def, ok := sd["Default"].(string); ok && def != "" {
		return def, nil
	}
	return "", &ExecutionError{ErrorName: "States.NoChoiceMatched", Cause: "no choice rule matched and no Default set"}
}

// runParallel serializes each branch's own state machine and runs it to
// completion in turn (spec.md §4.3 "Parallel serializes branches ... runs
// them sequentially"), collecting outputs into a JSON array in branch
// order.
func runParallel(sd map[string]interface{}, input interface{}) (interface{}, error) {
	branches, _ := sd["Branches"].([]interface{})
	results := make([]interface{}, 0, len(branches))
	for _, b := range branches {
		branchDef, ok := b.(map[string]interface{})
		if !ok {
			return nil, &ExecutionError{ErrorName: "States.Runtime", Cause: "malformed Parallel branch"}
		}
		out, err := Run(branchDef, input)
		if err != nil {
			return nil, err
		}
		results = append(results, out)
	}
	return results, nil
}

// runMap requires the input be a JSON array and runs the Iterator
// sub-machine once per element, in order (spec.md §4.3 "Map").
func runMap(sd map[string]interface{}, input interface{}) (interface{}, error) {
	items, ok := input.([]interface{})
	if !ok {
		return nil, &ExecutionError{ErrorName: "States.Runtime", Cause: "Map state input is not an array"}
	}
	iterator, ok := sd["Iterator"].(map[string]interface{})
	if !ok {
		return nil, &ExecutionError{ErrorName: "States.Runtime", Cause: "Map state has no Iterator"}
	}
	results := make([]interface{}, 0, len(items))
	for _, item := range items {
		out, err := Run(iterator, item)
		if err != nil {
			return nil, err
		}
		results = append(results, out)
	}
	return results, nil
}
