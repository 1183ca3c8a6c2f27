package lifecycle

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownStatus     = errors.New("unknown status")
	ErrInvalidTransition = errors.New("transition not allowed from current status")
	ErrWrongActor        = errors.New("action not permitted for this role")
	ErrPaymentRequired   = errors.New("booking must be paid first")
	ErrNotOnSite         = errors.New("only on-site bookings take a decorator")
	ErrTerminal          = errors.New("booking is already completed")
)

// Action is a request to move a booking along its lifecycle.
type Action string

const (
	ActionAssign       Action = "assign"
	ActionAccept       Action = "accept"
	ActionReject       Action = "reject"
	ActionMarkPrepared Action = "mark_prepared"
	ActionMarkEnRoute  Action = "mark_en_route"
	ActionStartSetup   Action = "start_setup"
	ActionComplete     Action = "complete"
)

func ParseAction(s string) (Action, error) {
	a := Action(s)
	if _, ok := rules[a]; !ok {
		return "", fmt.Errorf("unknown action %q", s)
	}
	return a, nil
}

// TransitionContext holds the booking facts the guards look at.
type TransitionContext struct {
	Actor         Actor
	PaymentStatus PaymentStatus
	ServiceType   ServiceType
}

type rule struct {
	from  Status
	to    Status
	actor Actor
	guard func(TransitionContext) error
}

var rules = map[Action]rule{
	ActionAssign: {
		from:  StatusPending,
		to:    StatusDecoratorAssigned,
		actor: ActorAdmin,
		guard: func(c TransitionContext) error {
			if c.PaymentStatus != PaymentPaid {
				return ErrPaymentRequired
			}
			if c.ServiceType != ServiceOnSite {
				return ErrNotOnSite
			}
			return nil
		},
	},
	ActionAccept:       {from: StatusDecoratorAssigned, to: StatusPlanning, actor: ActorDecorator},
	ActionReject:       {from: StatusDecoratorAssigned, to: StatusPending, actor: ActorDecorator},
	ActionMarkPrepared: {from: StatusPlanning, to: StatusMaterialPrepared, actor: ActorDecorator},
	ActionMarkEnRoute:  {from: StatusMaterialPrepared, to: StatusOnTheWay, actor: ActorDecorator},
	ActionStartSetup:   {from: StatusOnTheWay, to: StatusSetupInProgress, actor: ActorDecorator},
	ActionComplete:     {from: StatusSetupInProgress, to: StatusCompleted, actor: ActorDecorator},
}

// TransitionError describes why NextState refused an action.
type TransitionError struct {
	From   Status
	Action Action
	Actor  Actor
	Err    error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s by %s from %q: %v", e.Action, e.Actor, e.From, e.Err)
}

func (e *TransitionError) Unwrap() error { return e.Err }

// NextState applies action to current and returns the resulting status.
// The check order is terminal, source state, actor, then the guard, so a
// caller always learns the most basic reason first.
func NextState(current Status, action Action, ctx TransitionContext) (Status, error) {
	fail := func(err error) (Status, error) {
		return current, &TransitionError{From: current, Action: action, Actor: ctx.Actor, Err: err}
	}

	r, ok := rules[action]
	if !ok {
		return fail(fmt.Errorf("%w: unknown action %q", ErrInvalidTransition, action))
	}
	if current.IsTerminal() {
		return fail(ErrTerminal)
	}
	if current != r.from {
		return fail(ErrInvalidTransition)
	}
	if ctx.Actor != r.actor {
		return fail(ErrWrongActor)
	}
	if r.guard != nil {
		if err := r.guard(ctx); err != nil {
			return fail(err)
		}
	}
	return r.to, nil
}

// Allowed is NextState without the resulting status.
func Allowed(current Status, action Action, ctx TransitionContext) bool {
	_, err := NextState(current, action, ctx)
	return err == nil
}

// ForwardAction is the decorator's single progress action for a state.
func ForwardAction(s Status) (Action, bool) {
	switch s {
	case StatusDecoratorAssigned:
		return ActionAccept, true
	case StatusPlanning:
		return ActionMarkPrepared, true
	case StatusMaterialPrepared:
		return ActionMarkEnRoute, true
	case StatusOnTheWay:
		return ActionStartSetup, true
	case StatusSetupInProgress:
		return ActionComplete, true
	case StatusPending, StatusCompleted:
		return "", false
	default:
		return "", false
	}
}

// Target returns the status an action leads to, ignoring guards.
func (a Action) Target() Status {
	return rules[a].to
}

func (a Action) Label() string {
	switch a {
	case ActionAssign:
		return "Select Decorator"
	case ActionAccept:
		return "Accept"
	case ActionReject:
		return "Reject"
	case ActionMarkPrepared:
		return "Material Prepared"
	case ActionMarkEnRoute:
		return "On the Way"
	case ActionStartSetup:
		return "Start Setup"
	case ActionComplete:
		return "Mark Completed"
	default:
		return string(a)
	}
}
