package handlers

type Handlers struct {
	WalkHandler *WalkHandler
	Dispatcher  *Dispatcher
}

func New(walk *WalkHandler, dispatcher *Dispatcher) *Handlers {
	return &Handlers{
		WalkHandler: walk,
		Dispatcher:  dispatcher,
	}
}
