package core

// TrimToBudget returns the longest suffix of items whose total text length
// does not exceed budget characters. textOf projects an item to its text;
// items projecting to the empty string count as length zero.
//
// The function is pure and total: a non-positive budget yields the empty
// suffix, an empty input is returned unchanged, and re-trimming a result
// with an equal or larger budget is a no-op.
func TrimToBudget[T any](items []T, budget int, textOf func(T) string) []T {
	if len(items) == 0 {
		return items
	}
	if budget <= 0 {
		return items[len(items):]
	}
	total := 0
	start := len(items)
	for i := len(items) - 1; i >= 0; i-- {
		n := len(textOf(items[i]))
		if total+n > budget {
			break
		}
		total += n
		start = i
	}
	return items[start:]
}

// TrimMessages bounds a chat transcript to a character budget.
func TrimMessages(items []Message, budget int) []Message {
	return TrimToBudget(items, budget, func(m Message) string { return m.Content })
}
