package rules

import "fmt"

// Level is the severity of a compile diagnostic.
type Level string

const (
	// LevelError means a source or rule was rejected
	LevelError Level = "error"
	// LevelWarning means something was ignored but compilation continued
	LevelWarning Level = "warning"
	// LevelSuccess reports a source that compiled
	LevelSuccess Level = "success"
)

// Diagnostic is one compile message attributed to a rule source.
type Diagnostic struct {
	Level   Level  `json:"level"`
	Source  string `json:"source"`
	Message string `json:"message"`
}

// String renders the diagnostic with a severity marker, e.g.
// "[ ! ] rules/a.rules: unterminated section".
func (d Diagnostic) String() string {
	marker := "[ + ]"
	switch d.Level {
	case LevelError:
		marker = "[ ! ]"
	case LevelWarning:
		marker = "[ * ]"
	}
	if d.Source == "" {
		return fmt.Sprintf("%s %s", marker, d.Message)
	}
	return fmt.Sprintf("%s %s: %s", marker, d.Source, d.Message)
}

// Diagnostics is the full output of one compile.
type Diagnostics []Diagnostic

// Count returns how many diagnostics have the given level.
func (ds Diagnostics) Count(level Level) int {
	n := 0
	for _, d := range ds {
		if d.Level == level {
			n++
		}
	}
	return n
}

// HasErrors reports whether any diagnostic is an error.
func (ds Diagnostics) HasErrors() bool {
	return ds.Count(LevelError) > 0
}

func (ds *Diagnostics) add(level Level, source, format string, args ...interface{}) {
	*ds = append(*ds, Diagnostic{Level: level, Source: source, Message: fmt.Sprintf(format, args...)})
}
