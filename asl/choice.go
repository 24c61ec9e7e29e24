package asl

// evalRule evaluates one choice rule object against input, per spec.md
// §4.3 "Choice rules support StringEquals, NumericEquals, BooleanEquals,
// NumericGreaterThan, NumericLessThan, and boolean composition And, Or,
// Not." A rule that references a missing variable path evaluates false.
func evalRule(rule map[string]interface{}, input interface{}) bool {
	if andClauses, ok := rule["And"].([]interface{}); ok {
		for _, c := range andClauses {
			sub, ok := c.(map[string]interface{})
			if !ok || !evalRule(sub, input) {
				return false
			}
		}
		return true
	}
	if orClauses, ok := rule["Or"].([]interface{}); ok {
		for _, c := range orClauses {
			sub, ok := c.(map[string]interface{})
			if ok && evalRule(sub, input) {
				return true
			}
		}
		return false
	}
	if notClause, ok := rule["Not"].(map[string]interface{}); ok {
		return !evalRule(notClause, input)
	}

	variable, _ := rule["Variable"].(string)
	value, hasValue := get(variable, input)

	if target, ok := rule["StringEquals"].(string); ok {
		s, ok := value.(string)
		return hasValue && ok && s == target
	}
	if target, ok := rule["NumericEquals"]; ok {
		a, aok := toFloat(value)
		b, bok := toFloat(target)
		return hasValue && aok && bok && a == b
	}
	if target, ok := rule["BooleanEquals"].(bool); ok {
		b, ok := value.(bool)
		return hasValue && ok && b == target
	}
	if target, ok := rule["NumericGreaterThan"]; ok {
		a, aok := toFloat(value)
		b, bok := toFloat(target)
		return hasValue && aok && bok && a > b
	}
	if target, ok := rule["NumericLessThan"]; ok {
		a, aok := toFloat(value)
		b, bok := toFloat(target)
		return hasValue && aok && bok && a < b
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
