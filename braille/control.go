package braille

// ControlEvent is a named chord sent by the keyboard
type ControlEvent string

const (
	Enter         ControlEvent = "Enter"
	Back          ControlEvent = "Back"
	Left          ControlEvent = "Left"
	Right         ControlEvent = "Right"
	Up            ControlEvent = "Up"
	Down          ControlEvent = "Down"
	Space         ControlEvent = "Space"
	Ctrl          ControlEvent = "Ctrl"
	CtrlEnter     ControlEvent = "Ctrl+Enter"
	CtrlBackspace ControlEvent = "Ctrl+Backspace"
	CtrlLeft      ControlEvent = "Ctrl+Left"
	CtrlRight     ControlEvent = "Ctrl+Right"
	CtrlUp        ControlEvent = "Ctrl+Up"
	CtrlDown      ControlEvent = "Ctrl+Down"
	CtrlSpace     ControlEvent = "Ctrl+Space"
)

var controlEvents = []ControlEvent{
	Enter, Back, Left, Right, CtrlEnter, CtrlBackspace, Ctrl,
	Up, Down, Space, CtrlLeft, CtrlRight, CtrlUp, CtrlDown, CtrlSpace,
}

var controlByName = func() map[string]ControlEvent {
	m := make(map[string]ControlEvent, len(controlEvents))
	for _, e := range controlEvents {
		m[string(e)] = e
	}
	return m
}()

// ControlEvents returns every known control event
func ControlEvents() []ControlEvent {
	out := make([]ControlEvent, len(controlEvents))
	copy(out, controlEvents)
	return out
}

// ParseControlEvent looks up a wire name. Names are case-sensitive.
func ParseControlEvent(name string) (ControlEvent, bool) {
	e, ok := controlByName[name]
	return e, ok
}

func (e ControlEvent) String() string {
	return string(e)
}
