package ir

import "strconv"

// Project follows path through nested records and lists. List steps are
// decimal indexes. The second result is false when any step is undefined.
func Project(v Value, path []string) (Value, bool) {
	cur := v
	for _, step := range path {
		switch val := cur.(type) {
		case Record:
			next, ok := val[step]
			if !ok {
				return nil, false
			}
			cur = next
		case List:
			i, err := strconv.Atoi(step)
			if err != nil || i < 0 || i >= len(val) {
				return nil, false
			}
			cur = val[i]
		default:
			return nil, false
		}
	}
	return cur, true
}
