package service

import (
	"context"
	"sort"
	"time"

	"decorbook/internal/domain"
	"decorbook/internal/lifecycle"
	"decorbook/internal/models"

	"github.com/rs/zerolog"
)

// AnalyticsService serves the admin dashboard numbers.
type AnalyticsService struct {
	clients  Clients
	sessions domain.SessionRepository
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewAnalyticsService(clients Clients, sessions domain.SessionRepository, logger *zerolog.Logger) *AnalyticsService {
	return &AnalyticsService{clients: clients, sessions: sessions, logger: logger, now: time.Now}
}

// Dashboard returns the server aggregate. Demand is sorted by bookings, and
// the status breakdown is filled from the booking list when the server
// leaves it out.
func (s *AnalyticsService) Dashboard(ctx context.Context, chatID int64) (*models.Analytics, error) {
	_, actor, err := sessionOf(ctx, s.sessions, chatID, s.now())
	if err != nil {
		return nil, err
	}
	if actor != lifecycle.ActorAdmin {
		return nil, ErrAdminOnly
	}

	client := s.clients.ForChat(chatID)
	a, err := client.Analytics(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(a.ServiceDemand, func(i, j int) bool {
		return a.ServiceDemand[i].Bookings > a.ServiceDemand[j].Bookings
	})

	if len(a.StatusBreakdown) == 0 {
		bookings, err := client.AllBookings(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("status breakdown unavailable")
			return a, nil
		}
		a.StatusBreakdown = StatusBreakdown(bookings)
	}
	return a, nil
}

// StatusBreakdown counts bookings per status. Every lifecycle status is
// present, unknown server values are counted under their own name.
func StatusBreakdown(bookings []models.Booking) map[string]int {
	out := make(map[string]int, len(lifecycle.AllStatuses()))
	for _, st := range lifecycle.AllStatuses() {
		out[string(st)] = 0
	}
	for _, b := range bookings {
		out[string(b.Status)]++
	}
	return out
}
