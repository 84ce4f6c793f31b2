package veldt

// Theme defines semantic color mappings using ANSI color indices (0-15).
// The user's terminal theme determines the actual RGB values, so the
// frontend automatically matches any color scheme.
type Theme struct {
	Agent   int // agent progress rows
	Error   int // error messages
	Success int // completed agents, confidence
	Muted   int // status bar, citations, keep-alive noise
	Accent  int // headings, links, the question
	CodeBg  int // code block background
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		Agent:   3,
		Error:   1,
		Success: 2,
		Muted:   8,
		Accent:  5,
		CodeBg:  0,
	}
}
