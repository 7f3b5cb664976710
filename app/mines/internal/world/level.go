package world

import (
	"bytes"
	"embed"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/ai"
	"gopkg.in/yaml.v3"
)

//go:embed levels/*.yaml
var levelsFS embed.FS

const (
	TileWall  byte = '#'
	TileFloor byte = '.'
)

// Position 网格坐标
type Position struct {
	X int `yaml:"x" codec:"x"`
	Y int `yaml:"y" codec:"y"`
}

// Add 偏移
func (p Position) Add(dx, dy int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// BlockDistance 网格（曼哈顿）距离
func BlockDistance(a, b Position) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Level 静态地形
type Level struct {
	Name   string
	Width  int
	Height int
	tiles  []byte
}

// NewLevel 由行数据构造地形，每行等宽，只允许 '#' 与 '.'
func NewLevel(name string, rows []string) (*Level, error) {
	if len(rows) == 0 {
		return nil, errors.New("level has no rows")
	}
	w := len(rows[0])
	if w == 0 {
		return nil, errors.New("level has empty rows")
	}
	l := &Level{Name: name, Width: w, Height: len(rows), tiles: make([]byte, 0, w*len(rows))}
	for y, row := range rows {
		if len(row) != w {
			return nil, errors.Newf("row %d has width %d, want %d", y, len(row), w)
		}
		for x := 0; x < w; x++ {
			if row[x] != TileWall && row[x] != TileFloor {
				return nil, errors.Newf("unknown tile %q at (%d,%d)", row[x], x, y)
			}
		}
		l.tiles = append(l.tiles, row...)
	}
	return l, nil
}

// InBounds 是否在地图范围内
func (l *Level) InBounds(p Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < l.Width && p.Y < l.Height
}

// Tile 越界视为墙
func (l *Level) Tile(p Position) byte {
	if !l.InBounds(p) {
		return TileWall
	}
	return l.tiles[p.Y*l.Width+p.X]
}

// Floor 是否为可通行地形，不考虑占用
func (l *Level) Floor(p Position) bool {
	return l.Tile(p) == TileFloor
}

// Rows 行数据副本
func (l *Level) Rows() []string {
	rows := make([]string, l.Height)
	for y := range rows {
		rows[y] = string(l.tiles[y*l.Width : (y+1)*l.Width])
	}
	return rows
}

// SpawnSpec 关卡文件中的刷怪点
type SpawnSpec struct {
	Archetype string   `yaml:"archetype"`
	Pos       Position `yaml:"pos"`
	Name      string   `yaml:"name"`
}

// PlayerSpec 玩家初始属性
type PlayerSpec struct {
	Pos     Position       `yaml:"pos"`
	HP      int            `yaml:"hp"`
	Str     int            `yaml:"str"`
	Def     int            `yaml:"def"`
	Skl     int            `yaml:"skl"`
	Potions map[string]int `yaml:"potions"`
}

// LevelFile 关卡文件
type LevelFile struct {
	Name   string      `yaml:"name"`
	Rows   []string    `yaml:"rows"`
	Player PlayerSpec  `yaml:"player"`
	Spawns []SpawnSpec `yaml:"spawns"`
}

// ParseLevel 解析 YAML 关卡并校验刷怪点
func ParseLevel(r io.Reader) (*LevelFile, *Level, error) {
	var lf LevelFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&lf); err != nil {
		return nil, nil, errors.Wrap(err, "failed to decode level")
	}
	level, err := NewLevel(lf.Name, lf.Rows)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "level %q", lf.Name)
	}
	if !level.Floor(lf.Player.Pos) {
		return nil, nil, errors.Newf("player spawn %v is not floor", lf.Player.Pos)
	}
	seen := map[Position]bool{lf.Player.Pos: true}
	for i, s := range lf.Spawns {
		if _, err := ai.ParseArchetype(s.Archetype); err != nil {
			return nil, nil, errors.Wrapf(err, "spawn %d", i)
		}
		if !level.Floor(s.Pos) {
			return nil, nil, errors.Newf("spawn %d (%s) at %v is not floor", i, s.Archetype, s.Pos)
		}
		if seen[s.Pos] {
			return nil, nil, errors.Newf("spawn %d (%s) at %v overlaps another actor", i, s.Archetype, s.Pos)
		}
		seen[s.Pos] = true
	}
	return &lf, level, nil
}

// LoadLevel 从磁盘读取关卡
func LoadLevel(path string) (*LevelFile, *Level, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to read level %s", path)
	}
	return ParseLevel(bytes.NewReader(data))
}

// DefaultLevel 内置关卡
func DefaultLevel() (*LevelFile, *Level, error) {
	data, err := levelsFS.ReadFile("levels/mines.yaml")
	if err != nil {
		return nil, nil, err
	}
	return ParseLevel(bytes.NewReader(data))
}
