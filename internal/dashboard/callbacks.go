package dashboard

import (
	"strconv"
	"strings"

	"decorbook/internal/lifecycle"
)

// Callback kinds carried in inline button data.
const (
	KindTransition      = "tr"
	KindSelectDecorator = "assign"
	KindPickDecorator   = "pick"
	KindEdit            = "edit"
	KindCancel          = "cancel"
	KindPay             = "pay"
	KindNoop            = "noop"
	KindServicesPage    = "svcpage"
	KindService         = "svc"
	KindBook            = "book"
	KindServiceType     = "stype"
	KindConfirm         = "confirm"
	KindAbort           = "abort"
	KindBookingsPage    = "bkpage"
	KindDecoratorStatus = "decst"
	KindDeleteService   = "delsvc"
	KindExport          = "export"
	KindBooking         = "bk"
	KindDemo            = "demo"
	KindProfile         = "profile"
	KindMenu            = "menu"
)

// Callback is parsed button data: kind, then up to two ids.
type Callback struct {
	Kind   string
	Action lifecycle.Action
	ID     string
	Extra  string
	Page   int
}

const maxCallbackData = 64

// Encode joins parts with ':'. Telegram caps data at 64 bytes, so longer
// payloads are rejected with ok=false.
func Encode(kind string, parts ...string) (string, bool) {
	data := strings.Join(append([]string{kind}, parts...), ":")
	return data, len(data) <= maxCallbackData
}

func TransitionData(action lifecycle.Action, bookingID string) string {
	data, _ := Encode(KindTransition, string(action), bookingID)
	return data
}

func PageData(kind string, page int) string {
	data, _ := Encode(kind, strconv.Itoa(page))
	return data
}

// Parse splits button data back into a Callback.
func Parse(data string) (Callback, bool) {
	parts := strings.Split(data, ":")
	if len(parts) == 0 || parts[0] == "" {
		return Callback{}, false
	}
	cb := Callback{Kind: parts[0]}
	args := parts[1:]

	switch cb.Kind {
	case KindTransition:
		if len(args) != 2 {
			return Callback{}, false
		}
		action, err := lifecycle.ParseAction(args[0])
		if err != nil {
			return Callback{}, false
		}
		cb.Action = action
		cb.ID = args[1]
	case KindPickDecorator, KindDecoratorStatus:
		if len(args) != 2 {
			return Callback{}, false
		}
		cb.ID, cb.Extra = args[0], args[1]
	case KindServicesPage, KindBookingsPage:
		if len(args) != 1 {
			return Callback{}, false
		}
		page, err := strconv.Atoi(args[0])
		if err != nil || page < 0 {
			return Callback{}, false
		}
		cb.Page = page
	case KindNoop, KindConfirm, KindAbort, KindMenu:
		if len(args) > 0 {
			cb.ID = args[0]
		}
	case KindSelectDecorator, KindEdit, KindCancel, KindPay, KindService, KindBook,
		KindServiceType, KindDeleteService, KindExport, KindBooking, KindDemo, KindProfile:
		if len(args) != 1 || args[0] == "" {
			return Callback{}, false
		}
		cb.ID = args[0]
	default:
		return Callback{}, false
	}
	return cb, true
}
