package input

import (
	"github.com/go-vgo/robotgo"
)

// RobotBackend injects events into the local display through robotgo.
type RobotBackend struct{}

func (RobotBackend) Move(x, y int) error {
	robotgo.Move(x, y)
	return nil
}

func (RobotBackend) Button(b Button, down bool) error {
	name := string(b)
	if b == ButtonMiddle {
		name = "center"
	}
	return robotgo.Toggle(name, direction(down))
}

func (RobotBackend) Scroll(dx, dy int) error {
	robotgo.Scroll(dx, dy)
	return nil
}

func (RobotBackend) Key(name string, down bool) error {
	return robotgo.KeyToggle(name, direction(down))
}

func (RobotBackend) Type(r rune) error {
	robotgo.TypeStr(string(r))
	return nil
}

func (RobotBackend) Position() (int, int) {
	return robotgo.GetMousePos()
}

func direction(down bool) string {
	if down {
		return "down"
	}
	return "up"
}
