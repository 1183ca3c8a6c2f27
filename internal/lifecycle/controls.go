package lifecycle

// ControlKind identifies a button on a booking card.
type ControlKind string

const (
	ControlEdit   ControlKind = "edit"
	ControlCancel ControlKind = "cancel"
	ControlPay    ControlKind = "pay"
)

// Control is one rendered button. Action is empty for customer-side
// controls that do not touch the lifecycle.
type Control struct {
	Kind    ControlKind
	Action  Action
	Label   string
	Enabled bool
}

// Snapshot is the part of a booking the controls depend on.
type Snapshot struct {
	Status        Status
	PaymentStatus PaymentStatus
	ServiceType   ServiceType
}

// Controls lists the buttons the actor's screen shows for a booking.
func Controls(b Snapshot, actor Actor) []Control {
	switch actor {
	case ActorDecorator:
		return decoratorControls(b)
	case ActorAdmin:
		return adminControls(b)
	case ActorCustomer:
		return customerControls(b)
	default:
		return nil
	}
}

// EnabledControls filters Controls down to the ones that can be pressed.
func EnabledControls(b Snapshot, actor Actor) []Control {
	var out []Control
	for _, c := range Controls(b, actor) {
		if c.Enabled {
			out = append(out, c)
		}
	}
	return out
}

func decoratorControls(b Snapshot) []Control {
	if b.Status.IsTerminal() {
		return nil
	}
	ctx := TransitionContext{Actor: ActorDecorator, PaymentStatus: b.PaymentStatus, ServiceType: b.ServiceType}

	out := []Control{
		actionControl(ActionAccept, Allowed(b.Status, ActionAccept, ctx)),
		actionControl(ActionReject, Allowed(b.Status, ActionReject, ctx)),
	}
	if fwd, ok := ForwardAction(b.Status); ok && fwd != ActionAccept {
		out = append(out, actionControl(fwd, Allowed(b.Status, fwd, ctx)))
	}
	return out
}

func adminControls(b Snapshot) []Control {
	ctx := TransitionContext{Actor: ActorAdmin, PaymentStatus: b.PaymentStatus, ServiceType: b.ServiceType}
	if !Allowed(b.Status, ActionAssign, ctx) {
		return nil
	}
	return []Control{actionControl(ActionAssign, true)}
}

func customerControls(b Snapshot) []Control {
	editable := b.Status == StatusPending && b.PaymentStatus != PaymentPaid
	return []Control{
		{Kind: ControlEdit, Label: "Edit", Enabled: editable},
		{Kind: ControlCancel, Label: "Cancel", Enabled: editable},
		{Kind: ControlPay, Label: "Pay", Enabled: editable},
	}
}

func actionControl(a Action, enabled bool) Control {
	return Control{Kind: ControlKind(a), Action: a, Label: a.Label(), Enabled: enabled}
}
