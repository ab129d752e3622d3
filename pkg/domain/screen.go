package domain

// Region names an area of the chat UI whose messages are cleared as a unit
// before it is redrawn.
type Region string

const (
	RegionMain         Region = "main"
	RegionListTasks    Region = "list-tasks"
	RegionListAutobook Region = "list-autobook"
	RegionListMoves    Region = "list-moves"
	RegionWizardCard   Region = "wizard-card"
)

// Regions lists every known region, in clear-all order.
var Regions = []Region{RegionMain, RegionListTasks, RegionListAutobook, RegionListMoves, RegionWizardCard}

// Button is a single inline control. Callback carries the opaque
// "<namespace>:<payload>" string delivered back when the button is pressed.
type Button struct {
	Text     string `json:"text"`
	Callback string `json:"callback"`
}

// Keyboard is rows of buttons.
type Keyboard [][]Button

// Row appends a row of buttons and returns the keyboard for chaining.
func (k Keyboard) Row(buttons ...Button) Keyboard {
	return append(k, buttons)
}

// Screen is a renderable message: text plus an optional inline keyboard.
type Screen struct {
	Text     string   `json:"text"`
	Keyboard Keyboard `json:"keyboard,omitempty"`
}
