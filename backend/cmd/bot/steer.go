package main

import (
	"math"

	"timberland/backend/internal/game"
)

// Порог остановки у цели. Меньше радиуса рубки, но больше суммы полуразмеров ствола и игрока.
const (
	treeStopDistance      = 1.9
	workbenchStopDistance = 1.6
)

// yawTowards возвращает поворот, при котором "вперед" смотрит из (fromX, fromZ) в (toX, toZ).
// Вперед при нулевом повороте - это -Z.
func yawTowards(fromX, fromZ, toX, toZ float64) float64 {
	return math.Atan2(-(toX - fromX), -(toZ - fromZ))
}

// nearestVisible ищет ближайшее стоящее дерево
func nearestVisible(snapshot game.Snapshot) (game.NodeView, float64, bool) {
	var (
		best     game.NodeView
		bestDist = math.Inf(1)
		found    bool
	)

	for _, node := range snapshot.Nodes {
		if !node.Visible {
			continue
		}
		d := math.Hypot(node.X-snapshot.Player.X, node.Z-snapshot.Player.Z)
		if d < bestDist {
			best, bestDist, found = node, d, true
		}
	}

	return best, bestDist, found
}

// approach строит ввод для движения к точке с остановкой на расстоянии stop
func approach(snapshot game.Snapshot, x, z, stop float64) (input inputAxes, arrived bool) {
	p := snapshot.Player
	dist := math.Hypot(x-p.X, z-p.Z)
	input.Yaw = yawTowards(p.X, p.Z, x, z)
	if dist <= stop {
		return input, true
	}
	input.Forward = 1
	return input, false
}

type inputAxes struct {
	Forward float64
	Strafe  float64
	Yaw     float64
}
