// Package changes detects edits between document versions and keeps text
// anchors pointing at the right place while the document is edited.
//
// The diff is deliberately single-hunk: common prefix and common suffix are
// stripped and whatever remains is one edit. Documents are sampled close to
// every keystroke, so several disjoint simultaneous edits are rare; when
// they happen they are reported as one large replace.
package changes

// EditType classifies a DocumentEdit.
type EditType string

const (
	EditInsert  EditType = "insert"
	EditDelete  EditType = "delete"
	EditReplace EditType = "replace"
)

// DocumentEdit is the changed region between two versions, in rune offsets.
// [OldStart, OldEnd) in the old text became [NewStart, NewEnd) in the new one.
type DocumentEdit struct {
	Type     EditType `json:"type"`
	OldStart int      `json:"old_start"`
	OldEnd   int      `json:"old_end"`
	NewStart int      `json:"new_start"`
	NewEnd   int      `json:"new_end"`
	Delta    int      `json:"delta"`
}

// Diff returns the minimal single edit turning oldText into newText, and
// false when both are equal.
func Diff(oldText, newText string) (DocumentEdit, bool) {
	return diffRunes([]rune(oldText), []rune(newText))
}

func diffRunes(oldR, newR []rune) (DocumentEdit, bool) {
	oldLen, newLen := len(oldR), len(newR)

	prefix := 0
	for prefix < oldLen && prefix < newLen && oldR[prefix] == newR[prefix] {
		prefix++
	}
	if prefix == oldLen && prefix == newLen {
		return DocumentEdit{}, false
	}

	// suffix must not reach back into the prefix of either version
	suffix := 0
	for suffix < oldLen-prefix && suffix < newLen-prefix &&
		oldR[oldLen-1-suffix] == newR[newLen-1-suffix] {
		suffix++
	}

	edit := DocumentEdit{
		OldStart: prefix,
		OldEnd:   oldLen - suffix,
		NewStart: prefix,
		NewEnd:   newLen - suffix,
		Delta:    newLen - oldLen,
	}
	switch {
	case edit.OldEnd == edit.OldStart:
		edit.Type = EditInsert
	case edit.NewEnd == edit.NewStart:
		edit.Type = EditDelete
	default:
		edit.Type = EditReplace
	}
	return edit, true
}
