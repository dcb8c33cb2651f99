package event

import (
	"github.com/jypelle/artbox/apimodel"
)

// Internal
type InternalEvent struct {
	Data interface{}
}

// InternalEventKeyData is a key pressed in the simulation window
type InternalEventKeyData struct {
	Name string
}

// Api
type ApiEvent struct {
	Result chan error
	Data   interface{}
}

// ApiEventStatusData is answered by filling Status before Result is sent
type ApiEventStatusData struct {
	Status *apimodel.Status
}

type ApiEventSwitchesData struct {
	Positions [apimodel.SwitchCount]apimodel.Position
}
