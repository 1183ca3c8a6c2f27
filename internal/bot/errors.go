package bot

import (
	"context"
	"errors"
	"strings"

	"decorbook/internal/api"
	"decorbook/internal/auth"
	"decorbook/internal/lifecycle"
	"decorbook/internal/media"
	"decorbook/internal/repository"
	"decorbook/internal/service"
	"decorbook/internal/validation"
)

const genericFailure = "❌ Something went wrong. Please try again later."

const notRefreshedNotice = "⚠️ Saved, but the updated booking could not be loaded. Open /bookings to refresh."

// userMessage turns an error into the notice the chat sees. Server and
// network failures all get the same generic text and are never retried.
func userMessage(err error) string {
	if err == nil {
		return ""
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		lines := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			lines = append(lines, "• "+fe.Message)
		}
		return "⚠️ Please fix the following:\n" + strings.Join(lines, "\n")
	}

	var authErr *auth.Error
	if errors.As(err, &authErr) {
		return "⚠️ " + auth.Message(err)
	}

	switch {
	case errors.Is(err, service.ErrNotSignedIn), errors.Is(err, api.ErrUnauthorized):
		return "🔐 Please sign in first: /login"
	case errors.Is(err, service.ErrAdminOnly), errors.Is(err, api.ErrForbidden):
		return "⛔ You do not have access to this action."
	case errors.Is(err, service.ErrNotOwner):
		return "⛔ This booking belongs to another customer."
	case errors.Is(err, service.ErrNotEditable):
		return "⚠️ A booking can only be changed while it is pending and unpaid."
	case errors.Is(err, service.ErrAlreadyPaid):
		return "✅ This booking is already paid."
	case errors.Is(err, service.ErrDecoratorUnavailable):
		return "⚠️ This decorator is not active. Please pick another one."
	case errors.Is(err, lifecycle.ErrPaymentRequired):
		return "⚠️ The booking must be paid before a decorator is assigned."
	case errors.Is(err, lifecycle.ErrNotOnSite):
		return "⚠️ Only on-site bookings take a decorator."
	case errors.Is(err, lifecycle.ErrTerminal):
		return "🏁 This booking is already completed."
	case errors.Is(err, lifecycle.ErrWrongActor):
		return "⛔ Your role cannot perform this action."
	case errors.Is(err, lifecycle.ErrInvalidTransition), errors.Is(err, service.ErrUseAssign):
		return "⚠️ This action is not available for the booking's current status."
	case errors.Is(err, api.ErrNotFound):
		return "🔍 Not found. It may have been removed."
	case errors.Is(err, repository.ErrUnknownOAuthState):
		return "⌛ This sign-in link has expired. Please use /login again."
	case errors.Is(err, media.ErrNotConfigured):
		return "⚠️ Image upload is not available right now."
	case errors.Is(err, context.DeadlineExceeded):
		return "⌛ The server took too long to answer. Please try again."
	}

	// Default error message
	return genericFailure
}
