package protocol

// Fragment locates one '/'-delimited segment of a topic.
type Fragment struct {
	Offset int
	Length int
}

// Text returns the segment of topic the fragment points at.
func (f Fragment) Text(topic string) string {
	return topic[f.Offset : f.Offset+f.Length]
}

// Split scans topic once and returns at most capacity fragments.
//
// Segments past capacity are dropped and not counted: Split("a/b/c", 2)
// returns fragments for "a" and "b" only. Empty segments are kept, so
// "a//b" yields three fragments and "" yields one empty fragment. A
// capacity below one returns nil.
func Split(topic string, capacity int) []Fragment {
	if capacity < 1 {
		return nil
	}

	frags := make([]Fragment, 0, capacity)
	start := 0
	for i := 0; i <= len(topic); i++ {
		if i < len(topic) && topic[i] != '/' {
			continue
		}
		frags = append(frags, Fragment{Offset: start, Length: i - start})
		if len(frags) == capacity {
			break
		}
		start = i + 1
	}
	return frags
}
