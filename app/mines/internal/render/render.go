// Package render 终端画面：地图、状态栏与消息日志
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/ai"
	"github.com/lk2023060901/xdooria-ai/app/mines/internal/world"
)

// Styles 各类格子与面板的样式
type Styles struct {
	Wall    lipgloss.Style
	Floor   lipgloss.Style
	Player  lipgloss.Style
	Monster lipgloss.Style
	NPC     lipgloss.Style
	Status  lipgloss.Style
	Log     lipgloss.Style
}

// DefaultStyles 默认配色
func DefaultStyles() Styles {
	return Styles{
		Wall:    lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Floor:   lipgloss.NewStyle().Foreground(lipgloss.Color("236")),
		Player:  lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true),
		Monster: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		NPC:     lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		Status:  lipgloss.NewStyle().Bold(true).PaddingLeft(1),
		Log: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			PaddingLeft(1).PaddingRight(1),
	}
}

// Option 渲染器选项
type Option func(*Renderer)

// WithStyles 替换样式
func WithStyles(s Styles) Option {
	return func(r *Renderer) { r.styles = s }
}

// WithLogLines 消息面板显示的行数
func WithLogLines(n int) Option {
	return func(r *Renderer) {
		if n > 0 {
			r.logLines = n
		}
	}
}

// Renderer 把世界绘制成字符串
type Renderer struct {
	styles   Styles
	logLines int
}

// New 创建渲染器
func New(opts ...Option) *Renderer {
	r := &Renderer{styles: DefaultStyles(), logLines: 6}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Frame 完整一帧
func (r *Renderer) Frame(w *world.World) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		r.Map(w),
		r.Status(w),
		r.Log(w),
	)
}

// Map 地图，角色覆盖地形
func (r *Renderer) Map(w *world.World) string {
	glyphs := make(map[world.Position]string)
	for _, a := range w.Actors() {
		if !a.Alive() {
			continue
		}
		glyphs[a.Pos] = r.actorStyle(a).Render(string(a.Glyph))
	}

	var b strings.Builder
	for y, row := range w.Level.Rows() {
		if y > 0 {
			b.WriteByte('\n')
		}
		for x := 0; x < len(row); x++ {
			if g, ok := glyphs[world.Position{X: x, Y: y}]; ok {
				b.WriteString(g)
				continue
			}
			tile := string(row[x])
			if row[x] == world.TileWall {
				b.WriteString(r.styles.Wall.Render(tile))
			} else {
				b.WriteString(r.styles.Floor.Render(tile))
			}
		}
	}
	return b.String()
}

// Status 回合与玩家状态
func (r *Renderer) Status(w *world.World) string {
	p := w.Player
	if p == nil {
		return r.styles.Status.Render(fmt.Sprintf("Turn %d  (no player)", w.Turn))
	}
	line := fmt.Sprintf("Turn %d  HP %d/%d  Str %d  Def %d  Skl %d  Potions %d",
		w.Turn, p.HP, p.MaxHP, p.Str, p.Def, p.Skl, p.Potions["HP"])
	if effects := p.EffectNames(); len(effects) > 0 {
		line += "  [" + strings.Join(effects, " ") + "]"
	}
	if !p.Alive() {
		line += "  DEAD"
	}
	return r.styles.Status.Render(line)
}

// Log 最近的消息
func (r *Renderer) Log(w *world.World) string {
	msgs := w.Messages()
	if len(msgs) > r.logLines {
		msgs = msgs[len(msgs)-r.logLines:]
	}
	if len(msgs) == 0 {
		msgs = []string{"..."}
	}
	return r.styles.Log.Render(strings.Join(msgs, "\n"))
}

func (r *Renderer) actorStyle(a *world.Actor) lipgloss.Style {
	if a.Player {
		return r.styles.Player
	}
	if p, ok := ai.LookupProfile(a.Archetype); ok && !p.Aggressive {
		return r.styles.NPC
	}
	return r.styles.Monster
}
