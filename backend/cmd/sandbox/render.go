package main

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/gdamore/tcell/v2"

	"timberland/backend/internal/crafting"
	"timberland/backend/internal/game"
)

// Клетка терминала примерно вдвое выше своей ширины: по X две колонки на единицу мира
const colsPerUnit = 2

var (
	styleDefault   = tcell.StyleDefault
	styleTree      = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleHurt      = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleStump     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleWorkbench = tcell.StyleDefault.Foreground(tcell.ColorOlive)
	styleWall      = tcell.StyleDefault.Foreground(tcell.ColorSilver)
	stylePlayer    = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleHUD       = tcell.StyleDefault.Foreground(tcell.ColorWhite).Reverse(true)
)

// viewport отображает мир XZ на экран с центром на игроке. -Z смотрит вверх.
type viewport struct {
	centerX, centerZ float64
	width, height    int
}

func (v viewport) toScreen(x, z float64) (col, row int, ok bool) {
	col = v.width/2 + int(math.Round((x-v.centerX)*colsPerUnit))
	row = v.height/2 + int(math.Round(z-v.centerZ))
	ok = col >= 0 && col < v.width && row >= 1 && row < v.height-1
	return col, row, ok
}

// nodeGlyph символ дерева по состоянию
func nodeGlyph(node game.NodeView) (rune, tcell.Style) {
	switch {
	case !node.Visible:
		return '.', styleStump
	case node.Scale < 0.6:
		return '↑', styleTree
	case node.Health < node.MaxHealth:
		return '♣', styleHurt
	default:
		return '♣', styleTree
	}
}

// hudLine строка состояния игрока
func hudLine(snapshot game.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, " Дерево: %d", snapshot.Wood)

	names := make([]string, 0, len(snapshot.Items))
	for name := range snapshot.Items {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, " | %s: %d", name, snapshot.Items[name])
	}

	if snapshot.CooldownReady {
		b.WriteString(" | топор готов")
	} else {
		b.WriteString(" | откат")
	}
	if snapshot.NearWorkbench {
		b.WriteString(" | у верстака")
	}
	return b.String()
}

func drawText(screen tcell.Screen, col, row int, style tcell.Style, text string) {
	for _, r := range text {
		screen.SetContent(col, row, r, nil, style)
		col++
	}
}

func fillBox(screen tcell.Screen, v viewport, x, z, sizeX, sizeZ float64, glyph rune, style tcell.Style) {
	for wz := z - sizeZ/2; wz < z+sizeZ/2; wz += 0.5 {
		for wx := x - sizeX/2; wx < x+sizeX/2; wx += 1.0 / colsPerUnit {
			if col, row, ok := v.toScreen(wx+0.25, wz+0.25); ok {
				screen.SetContent(col, row, glyph, nil, style)
			}
		}
	}
}

// draw рисует снимок: деревья, верстак, постройки, игрока и HUD
func draw(screen tcell.Screen, snapshot game.Snapshot, bench crafting.Workbench, status string) {
	screen.Clear()
	width, height := screen.Size()
	v := viewport{centerX: snapshot.Player.X, centerZ: snapshot.Player.Z, width: width, height: height}

	fillBox(screen, v, bench.Position.X(), bench.Position.Z(), bench.Size.X(), bench.Size.Z(), '▒', styleWorkbench)

	for _, s := range snapshot.Structures {
		fillBox(screen, v, s.X, s.Z, s.Size.X(), s.Size.Z(), '#', styleWall)
	}

	for _, node := range snapshot.Nodes {
		if col, row, ok := v.toScreen(node.X, node.Z); ok {
			glyph, style := nodeGlyph(node)
			screen.SetContent(col, row, glyph, nil, style)
		}
	}

	if col, row, ok := v.toScreen(snapshot.Player.X, snapshot.Player.Z); ok {
		screen.SetContent(col, row, '@', nil, stylePlayer)
	}

	hud := hudLine(snapshot)
	drawText(screen, 0, 0, styleHUD, hud+strings.Repeat(" ", max(0, width-len([]rune(hud)))))
	drawText(screen, 0, height-1, styleDefault, " "+status)

	screen.Show()
}
