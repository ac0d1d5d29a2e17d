// Package extract recovers typed records from free-form model replies.
// Every parser here is total: any input string yields a value and a match
// flag, never a panic or an error.
package extract

// Grammar parses one record shape. ok reports whether anything was
// positively matched.
type Grammar[T any] struct {
	Name  string
	Parse func(text string) (T, bool)
}

// Extract runs g against text. A panicking grammar is reported as no match.
func Extract[T any](text string, g Grammar[T]) (result T, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			result, ok = zero, false
		}
	}()
	if g.Parse == nil {
		return result, false
	}
	return g.Parse(text)
}
