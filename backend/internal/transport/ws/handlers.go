package ws

import (
	"fmt"

	"timberland/backend/internal/game"
)

func (s *Server) handlePing(conn *SafeWriter, msg interface{}) error {
	ping := msg.(*PingMessage)
	return conn.WriteJSON(NewPongMessage(ping.ClientTime))
}

func (s *Server) handleInput(conn *SafeWriter, msg interface{}) error {
	input := msg.(*InputMessage)
	return s.session.Submit(game.MoveCommand{
		Forward: input.Forward,
		Strafe:  input.Strafe,
		Yaw:     input.Yaw,
	})
}

func (s *Server) handleHarvest(conn *SafeWriter, msg interface{}) error {
	return s.session.Submit(game.HarvestCommand{})
}

func (s *Server) handleCraft(conn *SafeWriter, msg interface{}) error {
	craft := msg.(*CraftMessage)
	if craft.Item == "" {
		return fmt.Errorf("craft: пустой предмет: %w", ErrInvalidMessage)
	}
	return s.session.Submit(game.CraftCommand{Item: craft.Item})
}

func (s *Server) handleBuild(conn *SafeWriter, msg interface{}) error {
	build := msg.(*BuildMessage)
	if build.Item == "" {
		return fmt.Errorf("build: пустой предмет: %w", ErrInvalidMessage)
	}

	cmd := game.BuildCommand{Item: build.Item}
	if build.X != nil && build.Z != nil {
		cmd.X, cmd.Z, cmd.HasTarget = *build.X, *build.Z, true
	}
	return s.session.Submit(cmd)
}
