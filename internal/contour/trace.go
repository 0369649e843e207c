package contour

import "math"

type pt struct {
	x, y float64
}

type segment [2]pt

// traceLevel runs marching squares over the sampling lattice for one
// contour level and chains the per-cell segments into polylines. Cell
// corners are classified with >= so a value exactly on the level sits on
// the high side.
func traceLevel(sample sampler, w, h int, level float64) [][]pt {
	var segs []segment

	for cy := 0; cy < h-1; cy++ {
		for cx := 0; cx < w-1; cx++ {
			tl := sample(cx, cy)
			tr := sample(cx+1, cy)
			br := sample(cx+1, cy+1)
			bl := sample(cx, cy+1)

			idx := 0
			if tl >= level {
				idx |= 8
			}
			if tr >= level {
				idx |= 4
			}
			if br >= level {
				idx |= 2
			}
			if bl >= level {
				idx |= 1
			}
			if idx == 0 || idx == 15 {
				continue
			}

			x0, y0 := float64(cx), float64(cy)
			top := func() pt { return pt{x0 + frac(level, tl, tr), y0} }
			bottom := func() pt { return pt{x0 + frac(level, bl, br), y0 + 1} }
			left := func() pt { return pt{x0, y0 + frac(level, tl, bl)} }
			right := func() pt { return pt{x0 + 1, y0 + frac(level, tr, br)} }

			switch idx {
			case 1, 14:
				segs = append(segs, segment{left(), bottom()})
			case 2, 13:
				segs = append(segs, segment{bottom(), right()})
			case 3, 12:
				segs = append(segs, segment{left(), right()})
			case 4, 11:
				segs = append(segs, segment{top(), right()})
			case 6, 9:
				segs = append(segs, segment{top(), bottom()})
			case 7, 8:
				segs = append(segs, segment{left(), top()})
			case 5:
				segs = append(segs, segment{left(), top()}, segment{bottom(), right()})
			case 10:
				segs = append(segs, segment{top(), right()}, segment{bottom(), left()})
			}
		}
	}

	return chainSegments(segs)
}

// frac interpolates the crossing position along an edge between two corner
// values. Callers only invoke it on edges the contour crosses, so the
// corner values always straddle the level.
func frac(level, a, b float64) float64 {
	if a == b {
		return 0.5
	}
	return (level - a) / (b - a)
}

type ptKey [2]int64

func keyOf(p pt) ptKey {
	return ptKey{int64(math.Round(p.x * 1024)), int64(math.Round(p.y * 1024))}
}

// chainSegments joins segments sharing endpoints into polylines. Endpoint
// matching is by quantized coordinates; segment endpoints always lie on
// cell edges shared between neighboring cells, so matching is exact.
func chainSegments(segs []segment) [][]pt {
	adj := make(map[ptKey][]int, len(segs)*2)
	for i, s := range segs {
		adj[keyOf(s[0])] = append(adj[keyOf(s[0])], i)
		adj[keyOf(s[1])] = append(adj[keyOf(s[1])], i)
	}

	used := make([]bool, len(segs))
	takeNext := func(at pt) (pt, bool) {
		for _, i := range adj[keyOf(at)] {
			if used[i] {
				continue
			}
			used[i] = true
			if keyOf(segs[i][0]) == keyOf(at) {
				return segs[i][1], true
			}
			return segs[i][0], true
		}
		return pt{}, false
	}

	var lines [][]pt
	for i := range segs {
		if used[i] {
			continue
		}
		used[i] = true
		line := []pt{segs[i][0], segs[i][1]}

		// Extend forward from the tail.
		for {
			next, ok := takeNext(line[len(line)-1])
			if !ok {
				break
			}
			line = append(line, next)
		}
		// Extend backward from the head.
		for {
			prev, ok := takeNext(line[0])
			if !ok {
				break
			}
			line = append([]pt{prev}, line...)
		}
		lines = append(lines, line)
	}
	return lines
}
