package world

// neighbours 8 邻域偏移，顺序固定以保证确定性
var neighbours = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// WalkableAround 相邻可走的格子
func (w *World) WalkableAround(p Position) []Position {
	out := make([]Position, 0, len(neighbours))
	for _, d := range neighbours {
		n := p.Add(d[0], d[1])
		if w.Walkable(n) {
			out = append(out, n)
		}
	}
	return out
}

// LineOfSight Bresenham 直线上（不含两端）没有墙
func (w *World) LineOfSight(from, to Position) bool {
	dx, dy := abs(to.X-from.X), -abs(to.Y-from.Y)
	sx, sy := 1, 1
	if from.X > to.X {
		sx = -1
	}
	if from.Y > to.Y {
		sy = -1
	}
	e := dx + dy
	x, y := from.X, from.Y
	for {
		if x == to.X && y == to.Y {
			return true
		}
		if (x != from.X || y != from.Y) && !w.Level.Floor(Position{x, y}) {
			return false
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
}

// NextStep 广度优先寻路，返回朝 to 的第一步
// 除目标外被占用的格子视为阻挡，to 不可达或与 from 相同时返回 false
func (w *World) NextStep(from, to Position) (Position, bool) {
	if from == to || !w.Level.InBounds(to) {
		return Position{}, false
	}

	prev := map[Position]Position{from: from}
	queue := []Position{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range neighbours {
			n := cur.Add(d[0], d[1])
			if _, seen := prev[n]; seen {
				continue
			}
			if n != to && !w.Walkable(n) {
				continue
			}
			if n == to && !w.Level.Floor(n) {
				continue
			}
			prev[n] = cur
			if n == to {
				for prev[n] != from {
					n = prev[n]
				}
				return n, true
			}
			queue = append(queue, n)
		}
	}
	return Position{}, false
}
