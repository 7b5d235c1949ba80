// Package command interprets keystrokes as viewer commands.
//
// The Processor is an explicit finite-state machine:
//
//	Normal --'f'--> AwaitingFilterText --Enter--> Normal (add filter)
//	                                   --Esc----> Normal (cancelled)
//	Normal --'k'--> AwaitingClearConfirm --'!'--> Normal (clear filters)
//	                                     --other-> Normal (cancelled, key consumed)
//	Normal --'-'--> Normal (list filters)
//
// Navigation keys only act in Normal and are returned as actions for the
// caller to apply to the viewport.
package command

import (
	"fmt"
	"strings"
	"unicode"
)

// State is the processor's current mode.
type State int

const (
	Normal State = iota
	AwaitingFilterText
	AwaitingClearConfirm
)

func (s State) String() string {
	switch s {
	case Normal:
		return "normal"
	case AwaitingFilterText:
		return "filter"
	case AwaitingClearConfirm:
		return "confirm-clear"
	default:
		return "unknown"
	}
}

// Filters is what the processor drives. filter.Engine satisfies it.
type Filters interface {
	Add(term string) bool
	Clear() bool
	List() []string
}

// Action is what the caller should do after a keystroke.
type Action int

const (
	ActionNone Action = iota
	ActionFiltersChanged
	ActionScrollUp
	ActionScrollDown
	ActionPageUp
	ActionPageDown
	ActionTop
	ActionBottom
	ActionQuit
)

// Result describes the effect of one keystroke.
type Result struct {
	Action  Action
	Message string // transient status text, empty when there is nothing to say
	Filters []string
}

// Processor is the keystroke state machine.
type Processor struct {
	state   State
	pending []rune
	filters Filters
}

// NewProcessor creates a processor in Normal state driving filters.
func NewProcessor(filters Filters) *Processor {
	return &Processor{filters: filters}
}

// State returns the current state.
func (p *Processor) State() State {
	return p.state
}

// Pending returns the filter text typed so far in AwaitingFilterText.
func (p *Processor) Pending() string {
	return string(p.pending)
}

// Handle applies one keystroke.
func (p *Processor) Handle(k Key) Result {
	if k.Type == KeyInterrupt {
		p.reset()
		return Result{Action: ActionQuit}
	}
	switch p.state {
	case AwaitingFilterText:
		return p.handleFilterText(k)
	case AwaitingClearConfirm:
		return p.handleClearConfirm(k)
	default:
		return p.handleNormal(k)
	}
}

func (p *Processor) handleNormal(k Key) Result {
	switch k.Type {
	case KeyUp:
		return Result{Action: ActionScrollUp}
	case KeyDown:
		return Result{Action: ActionScrollDown}
	case KeyPgUp:
		return Result{Action: ActionPageUp}
	case KeyPgDown:
		return Result{Action: ActionPageDown}
	case KeyHome:
		return Result{Action: ActionTop}
	case KeyEnd:
		return Result{Action: ActionBottom}
	case KeyRune:
	default:
		return Result{}
	}

	switch k.Rune {
	case 'f':
		p.state = AwaitingFilterText
		p.pending = p.pending[:0]
		return Result{}
	case 'k':
		p.state = AwaitingClearConfirm
		return Result{Message: "clear all filters? press ! to confirm"}
	case '-':
		list := p.filters.List()
		return Result{Filters: list, Message: describe(list)}
	case 'g':
		return Result{Action: ActionTop}
	case 'G':
		return Result{Action: ActionBottom}
	}
	return Result{}
}

func (p *Processor) handleFilterText(k Key) Result {
	switch k.Type {
	case KeyEnter:
		text := string(p.pending)
		p.reset()
		if strings.TrimSpace(text) == "" {
			return Result{Message: "ignored empty filter"}
		}
		if !p.filters.Add(text) {
			return Result{Message: fmt.Sprintf("filter %q already active", text)}
		}
		list := p.filters.List()
		return Result{Action: ActionFiltersChanged, Filters: list, Message: fmt.Sprintf("added filter %q", text)}
	case KeyEsc:
		p.reset()
		return Result{Message: "filter cancelled"}
	case KeyBackspace:
		if n := len(p.pending); n > 0 {
			p.pending = p.pending[:n-1]
		}
		return Result{}
	case KeyRune:
		if unicode.IsPrint(k.Rune) {
			p.pending = append(p.pending, k.Rune)
		}
		return Result{}
	}
	return Result{}
}

// handleClearConfirm consumes the key either way: a non-'!' key cancels and is
// not reprocessed as a new command.
func (p *Processor) handleClearConfirm(k Key) Result {
	p.reset()
	if k.Type == KeyRune && k.Rune == '!' {
		if !p.filters.Clear() {
			return Result{Message: "no filters to clear"}
		}
		return Result{Action: ActionFiltersChanged, Filters: p.filters.List(), Message: "filters cleared"}
	}
	return Result{Message: "clear cancelled"}
}

func (p *Processor) reset() {
	p.state = Normal
	p.pending = p.pending[:0]
}

func describe(list []string) string {
	if len(list) == 0 {
		return "no filters"
	}
	quoted := make([]string, len(list))
	for i, f := range list {
		quoted[i] = fmt.Sprintf("%q", f)
	}
	return "filters: " + strings.Join(quoted, " | ")
}
