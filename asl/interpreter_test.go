package asl

import (
	"reflect"
	"testing"
)

func TestRunPassThenSucceed(t *testing.T) {
	def := map[string]interface{}{
		"StartAt": "SetResult",
		"States": map[string]interface{}{
			"SetResult": map[string]interface{}{
				"Type":   "Pass",
				"Result": map[string]interface{}{"ok": true},
				"Next":   "Done",
			},
			"Done": map[string]interface{}{"Type": "Succeed"},
		},
	}
	out, err := Run(def, map[string]interface{}{"in": 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(out, map[string]interface{}{"ok": true}) {
		t.Fatalf("Run = %v", out)
	}
}

func TestRunTaskIsPassThrough(t *testing.T) {
	def := map[string]interface{}{
		"StartAt": "Invoke",
		"States": map[string]interface{}{
			"Invoke": map[string]interface{}{"Type": "Task", "End": true},
		},
	}
	out, err := Run(def, "payload")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "payload" {
		t.Fatalf("Run = %v, want payload unchanged", out)
	}
}

func TestRunFail(t *testing.T) {
	def := map[string]interface{}{
		"StartAt": "Boom",
		"States": map[string]interface{}{
			"Boom": map[string]interface{}{"Type": "Fail", "Error": "States.Bad", "Cause": "broke"},
		},
	}
	_, err := Run(def, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	ee, ok := err.(*ExecutionError)
	if !ok {
		t.Fatalf("err is %T, want *ExecutionError", err)
	}
	if ee.Error() != "States.Bad: broke" {
		t.Fatalf("err.Error() = %q", ee.Error())
	}
}

func TestRunChoiceRoutesOnMatch(t *testing.T) {
	def := map[string]interface{}{
		"StartAt": "Branch",
		"States": map[string]interface{}{
			"Branch": map[string]interface{}{
				"Type": "Choice",
				"Choices": []interface{}{
					map[string]interface{}{"Variable": "$.n", "NumericGreaterThan": 10.0, "Next": "Big"},
				},
				"Default": "Small",
			},
			"Big":   map[string]interface{}{"Type": "Pass", "Result": "big", "End": true},
			"Small": map[string]interface{}{"Type": "Pass", "Result": "small", "End": true},
		},
	}
	out, err := Run(def, map[string]interface{}{"n": 42.0})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "big" {
		t.Fatalf("Run = %v, want big", out)
	}

	out, err = Run(def, map[string]interface{}{"n": 1.0})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != "small" {
		t.Fatalf("Run = %v, want small", out)
	}
}

func TestRunChoiceNoMatchNoDefault(t *testing.T) {
	def := map[string]interface{}{
		"StartAt": "Branch",
		"States": map[string]interface{}{
			"Branch": map[string]interface{}{
				"Type": "Choice",
				"Choices": []interface{}{
					map[string]interface{}{"Variable": "$.n", "NumericGreaterThan": 10.0, "Next": "Big"},
				},
			},
		},
	}
	_, err := Run(def, map[string]interface{}{"n": 1.0})
	ee, ok := err.(*ExecutionError)
	if !ok || ee.ErrorName != "States.NoChoiceMatched" {
		t.Fatalf("err = %v, want States.NoChoiceMatched", err)
	}
}

func TestRunParallelCollectsBranchOutputsInOrder(t *testing.T) {
	branch := func(result string) map[string]interface{} {
		return map[string]interface{}{
			"StartAt": "P",
			"States": map[string]interface{}{
				"P": map[string]interface{}{"Type": "Pass", "Result": result, "End": true},
			},
		}
	}
	def := map[string]interface{}{
		"StartAt": "Fork",
		"States": map[string]interface{}{
			"Fork": map[string]interface{}{
				"Type":     "Parallel",
				"Branches": []interface{}{branch("a"), branch("b")},
				"End":      true,
			},
		},
	}
	out, err := Run(def, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(out, []interface{}{"a", "b"}) {
		t.Fatalf("Run = %v", out)
	}
}

func TestRunMapOverItems(t *testing.T) {
	def := map[string]interface{}{
		"StartAt": "Each",
		"States": map[string]interface{}{
			"Each": map[string]interface{}{
				"Type": "Map",
				"Iterator": map[string]interface{}{
					"StartAt": "Double",
					"States": map[string]interface{}{
						"Double": map[string]interface{}{"Type": "Pass", "Result": "x", "End": true},
					},
				},
				"End": true,
			},
		},
	}
	out, err := Run(def, []interface{}{1.0, 2.0, 3.0})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(out, []interface{}{"x", "x", "x"}) {
		t.Fatalf("Run = %v", out)
	}
}

func TestRunMapRequiresArrayInput(t *testing.T) {
	def := map[string]interface{}{
		"StartAt": "Each",
		"States": map[string]interface{}{
			"Each": map[string]interface{}{
				"Type":     "Map",
				"Iterator": map[string]interface{}{"StartAt": "S", "States": map[string]interface{}{"S": map[string]interface{}{"Type": "Pass", "End": true}}},
				"End":      true,
			},
		},
	}
	_, err := Run(def, "not-an-array")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestRunMissingStartAtOrStates(t *testing.T) {
	_, err := Run(map[string]interface{}{"States": map[string]interface{}{}}, nil)
	if err == nil {
		t.Fatal("expected error for missing StartAt")
	}
	_, err = Run(map[string]interface{}{"StartAt": "X"}, nil)
	if err == nil {
		t.Fatal("expected error for missing States")
	}
}

func TestRunGuardsAgainstRunawayLoops(t *testing.T) {
	def := map[string]interface{}{
		"StartAt": "Loop",
		"States": map[string]interface{}{
			"Loop": map[string]interface{}{"Type": "Pass", "Next": "Loop"},
		},
	}
	_, err := Run(def, nil)
	ee, ok := err.(*ExecutionError)
	if !ok || ee.ErrorName != "States.Runaway" {
		t.Fatalf("err = %v, want States.Runaway", err)
	}
}

func TestRunStateWithNeitherEndNorNext(t *testing.T) {
	def := map[string]interface{}{
		"StartAt": "Dangling",
		"States": map[string]interface{}{
			"Dangling": map[string]interface{}{"Type": "Pass"},
		},
	}
	_, err := Run(def, nil)
	if err == nil {
		t.Fatal("expected error")
	}
}
