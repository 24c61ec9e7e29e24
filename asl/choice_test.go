package asl

import "testing"

func TestEvalRule(t *testing.T) {
	input := map[string]interface{}{
		"status": "FAILED",
		"amount": 42.0,
		"paid":   false,
	}

	cases := []struct {
		name string
		rule map[string]interface{}
		want bool
	}{
		{
			name: "StringEquals match",
			rule: map[string]interface{}{"Variable": "$.status", "StringEquals": "FAILED"},
			want: true,
		},
		{
			name: "StringEquals mismatch",
			rule: map[string]interface{}{"Variable": "$.status", "StringEquals": "SUCCEEDED"},
			want: false,
		},
		{
			name: "NumericEquals match",
			rule: map[string]interface{}{"Variable": "$.amount", "NumericEquals": 42.0},
			want: true,
		},
		{
			name: "NumericGreaterThan match",
			rule: map[string]interface{}{"Variable": "$.amount", "NumericGreaterThan": 10.0},
			want: true,
		},
		{
			name: "NumericLessThan mismatch",
			rule: map[string]interface{}{"Variable": "$.amount", "NumericLessThan": 10.0},
			want: false,
		},
		{
			name: "BooleanEquals match",
			rule: map[string]interface{}{"Variable": "$.paid", "BooleanEquals": false},
			want: true,
		},
		{
			name: "missing variable evaluates false",
			rule: map[string]interface{}{"Variable": "$.nope", "StringEquals": "FAILED"},
			want: false,
		},
		{
			name: "And of two true clauses",
			rule: map[string]interface{}{"And": []interface{}{
				map[string]interface{}{"Variable": "$.status", "StringEquals": "FAILED"},
				map[string]interface{}{"Variable": "$.amount", "NumericGreaterThan": 10.0},
			}},
			want: true,
		},
		{
			name: "And short-circuits on a false clause",
			rule: map[string]interface{}{"And": []interface{}{
				map[string]interface{}{"Variable": "$.status", "StringEquals": "FAILED"},
				map[string]interface{}{"Variable": "$.amount", "NumericGreaterThan": 100.0},
			}},
			want: false,
		},
		{
			name: "Or matches if either clause is true",
			rule: map[string]interface{}{"Or": []interface{}{
				map[string]interface{}{"Variable": "$.status", "StringEquals": "SUCCEEDED"},
				map[string]interface{}{"Variable": "$.paid", "BooleanEquals": false},
			}},
			want: true,
		},
		{
			name: "Not inverts the inner clause",
			rule: map[string]interface{}{"Not": map[string]interface{}{
				"Variable": "$.status", "StringEquals": "SUCCEEDED",
			}},
			want: true,
		},
		{
			name: "unrecognized comparator evaluates false",
			rule: map[string]interface{}{"Variable": "$.status"},
			want: false,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := evalRule(c.rule, input)
			if got != c.want {
				t.Fatalf("evalRule(%v) = %v, want %v", c.rule, got, c.want)
			}
		})
	}
}
