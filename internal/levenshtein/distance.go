// Package levenshtein computes edit distances for domain typo
// detection.
package levenshtein

// Distance returns the Levenshtein edit distance between a and b,
// using two working rows of O(min(len(a), len(b))) memory.
func Distance(a, b string) int {
	if a == b {
		return 0
	}

	ar := []rune(a)
	br := []rune(b)
	if len(ar) == 0 {
		return len(br)
	}
	if len(br) == 0 {
		return len(ar)
	}
	if len(ar) > len(br) {
		ar, br = br, ar
	}

	row := make([]int, len(ar)+1)
	for i := range row {
		row[i] = i
	}

	for j, bc := range br {
		prevDiag := row[0]
		row[0] = j + 1
		for i, ac := range ar {
			ins := row[i] + 1
			del := row[i+1] + 1
			sub := prevDiag
			if ac != bc {
				sub++
			}
			prevDiag = row[i+1]
			row[i+1] = minOf(ins, del, sub)
		}
	}

	return row[len(ar)]
}

func minOf(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
