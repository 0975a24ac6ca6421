package newsroom

import (
	"github.com/lysyi3m/newsroom/app/social"
)

// citedIndices keeps the 1-based ids that point into a list of n sources,
// dropping duplicates.
func citedIndices(ids []int, n int) []int {
	seen := make(map[int]bool, len(ids))
	valid := make([]int, 0, len(ids))
	for _, id := range ids {
		if id < 1 || id > n || seen[id] {
			continue
		}
		seen[id] = true
		valid = append(valid, id)
	}
	return valid
}

// resolveTexts returns the source texts for the union of the given id lists
// in first-seen order. Ids are 1-based.
func resolveTexts(texts []string, idLists ...[]int) []string {
	var union []int
	for _, ids := range idLists {
		union = append(union, ids...)
	}

	resolved := make([]string, 0, len(union))
	for _, id := range citedIndices(union, len(texts)) {
		resolved = append(resolved, texts[id-1])
	}
	return resolved
}

func messageTexts(messages []social.Message) []string {
	texts := make([]string, len(messages))
	for i, message := range messages {
		texts[i] = message.Text
	}
	return texts
}
