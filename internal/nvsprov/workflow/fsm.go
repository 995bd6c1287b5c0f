package workflow

import (
	"github.com/looplab/fsm"

	fsmutil "cloupeer.io/nvsprov/internal/pkg/util/fsm"
)

// States a run passes through, in order.
const (
	StateStart      = "start"
	StateResolved   = "resolved"
	StateScaffolded = "scaffolded"
	StateLoaded     = "loaded"
	StateGenerated  = "generated"
	StateFlashed    = "flashed"
)

// Events, one per workflow step.
const (
	EventResolve  = "resolve"
	EventScaffold = "scaffold"
	EventLoad     = "load"
	EventGenerate = "generate"
	EventFlash    = "flash"
)

// newMachine wires the steps of r as guards of their events, so a failing
// step leaves the machine in the last state it reached.
func newMachine(r *run) *fsm.FSM {
	events := fsm.Events{
		{Name: EventResolve, Src: []string{StateStart}, Dst: StateResolved},
		{Name: EventScaffold, Src: []string{StateResolved}, Dst: StateScaffolded},
		{Name: EventLoad, Src: []string{StateScaffolded}, Dst: StateLoaded},
		{Name: EventGenerate, Src: []string{StateLoaded}, Dst: StateGenerated},
		{Name: EventFlash, Src: []string{StateGenerated}, Dst: StateFlashed},
	}

	callbacks := fsm.Callbacks{
		"before_" + EventResolve:  fsmutil.WrapGuard(r.resolve),
		"before_" + EventScaffold: fsmutil.WrapGuard(r.scaffold),
		"before_" + EventLoad:     fsmutil.WrapGuard(r.load),
		"before_" + EventGenerate: fsmutil.WrapGuard(r.generate),
		"before_" + EventFlash:    fsmutil.WrapGuard(r.flash),

		"enter_state": fsmutil.WrapEvent(r.entered),
	}

	return fsm.NewFSM(StateStart, events, callbacks)
}
