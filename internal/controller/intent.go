package controller

type IntentKind int

const (
	IntentNext IntentKind = iota
	IntentPrev
	IntentRandomNext
	IntentToggleRepeat
	IntentToggleAuto
	IntentToggleLoop
	IntentToggleRandom
	IntentSetInterval
	IntentSetIndex
	IntentSave
	IntentLoad
	IntentHome
)

var intentNames = [...]string{
	"next", "prev", "random_next",
	"toggle_repeat", "toggle_auto", "toggle_loop", "toggle_random",
	"set_interval", "set_index", "save", "load", "home",
}

func (k IntentKind) String() string {
	if int(k) < len(intentNames) {
		return intentNames[k]
	}
	return "unknown"
}

// Intent is one user request, applied on the next Tick.
type Intent struct {
	Kind     IntentKind
	Index    int
	Interval uint32
	Path     string
}

func Next() Intent         { return Intent{Kind: IntentNext} }
func Prev() Intent         { return Intent{Kind: IntentPrev} }
func RandomNext() Intent   { return Intent{Kind: IntentRandomNext} }
func ToggleRepeat() Intent { return Intent{Kind: IntentToggleRepeat} }
func ToggleAuto() Intent   { return Intent{Kind: IntentToggleAuto} }
func ToggleLoop() Intent   { return Intent{Kind: IntentToggleLoop} }
func ToggleRandom() Intent { return Intent{Kind: IntentToggleRandom} }
func Home() Intent         { return Intent{Kind: IntentHome} }

func SetInterval(seconds uint32) Intent {
	return Intent{Kind: IntentSetInterval, Interval: seconds}
}

func SetIndex(i int) Intent {
	return Intent{Kind: IntentSetIndex, Index: i}
}

func Save(path string) Intent {
	return Intent{Kind: IntentSave, Path: path}
}

func Load(path string) Intent {
	return Intent{Kind: IntentLoad, Path: path}
}
