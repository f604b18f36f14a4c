package oracle

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const replyMarker = "Scene changes:"

// ParseReply converts the oracle's free-text reply into a Result. The reply
// is expected to end with "Scene changes: [positions or None]"; everything
// after the last marker is taken as the answer. Tokens that do not parse as
// integers are discarded, positions outside 1..batchSize are dropped, and
// the remainder is deduplicated and sorted ascending. A reply with no
// marker, or with a bracket list that yields no usable token, is an error.
func ParseReply(raw string, batchSize int) (Result, error) {
	idx := strings.LastIndex(raw, replyMarker)
	if idx < 0 {
		return Result{}, fmt.Errorf("reply has no %q marker: %q", replyMarker, raw)
	}

	answer := strings.TrimSpace(raw[idx+len(replyMarker):])
	answer = strings.Trim(answer, "[]")
	answer = strings.TrimSpace(answer)

	if answer == "" || strings.EqualFold(answer, "none") {
		return Result{NoChange: true}, nil
	}

	seen := make(map[int]bool)
	var positions []int
	for _, token := range strings.Split(answer, ",") {
		token = strings.TrimSpace(token)
		n, err := strconv.Atoi(token)
		if err != nil {
			continue
		}
		if n < 1 || n > batchSize || seen[n] {
			continue
		}
		seen[n] = true
		positions = append(positions, n)
	}

	if len(positions) == 0 {
		return Result{}, fmt.Errorf("no usable positions in reply %q", raw)
	}

	sort.Ints(positions)
	return Result{Positions: positions}, nil
}
