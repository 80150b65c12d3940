package alerts

// popularityLadder holds the mention counts at which an already-notified
// cluster earns a "still trending" follow-up.
var popularityLadder = []int{3, 5, 8, 13, 21, 34, 55, 89}

// NextRung returns the highest ladder rung at or below mentions that the
// watermark has not visited yet. A cluster jumping several rungs in one
// cycle gets a single follow-up at the highest crossed rung.
func NextRung(watermark, mentions int) (int, bool) {
	rung := 0

	for _, r := range popularityLadder {
		if r > mentions {
			break
		}

		if r > watermark {
			rung = r
		}
	}

	return rung, rung > 0
}
