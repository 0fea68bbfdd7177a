package stack

import "regexp"

// varPlaceholderRegex matches ${VAR} and ${VAR:-default} patterns.
var varPlaceholderRegex = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// SubstituteVariables replaces ${VAR} and ${VAR:-default} placeholders with
// values from the variables map.
//
//   - ${VAR} - replaced with variables["VAR"] if set, otherwise kept as-is
//   - ${VAR:-default} - replaced with variables["VAR"] if set, otherwise "default"
func SubstituteVariables(value string, variables map[string]string) string {
	if variables == nil {
		variables = make(map[string]string)
	}

	return varPlaceholderRegex.ReplaceAllStringFunc(value, func(match string) string {
		submatch := varPlaceholderRegex.FindStringSubmatch(match)
		if len(submatch) >= 2 {
			varName := submatch[1]
			if val, ok := variables[varName]; ok {
				return val
			}
			if len(submatch) >= 3 && submatch[2] != "" {
				return submatch[2]
			}
			// ${VAR:-} with an empty default substitutes the empty string.
			if len(match) > len(varName)+3 && match[len("${")+len(varName)] == ':' {
				return ""
			}
		}
		return match
	})
}
