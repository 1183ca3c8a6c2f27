package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserState is the bot conversation step of one chat.
type UserState struct {
	UserID      int64                  `json:"user_id"`
	CurrentStep string                 `json:"current_step"`
	TempData    map[string]interface{} `json:"temp_data"`
}

func (s *UserState) GetInt64(key string) int64 {
	if s.TempData == nil {
		return 0
	}
	val, ok := s.TempData[key]
	if !ok {
		return 0
	}
	switch v := val.(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case int:
		return int64(v)
	default:
		return 0
	}
}

func (s *UserState) GetString(key string) string {
	if s.TempData == nil {
		return ""
	}
	val, ok := s.TempData[key]
	if !ok {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func (s *UserState) GetTime(key string) time.Time {
	if s.TempData == nil {
		return time.Time{}
	}
	val, ok := s.TempData[key]
	if !ok {
		return time.Time{}
	}
	switch v := val.(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}
		}
		return t
	default:
		return time.Time{}
	}
}

// Set stores a value, allocating TempData on first use.
func (s *UserState) Set(key string, value interface{}) {
	if s.TempData == nil {
		s.TempData = make(map[string]interface{})
	}
	s.TempData[key] = value
}

// Session is the signed-in user as reported by the auth provider.
type Session struct {
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	PhotoURL     string    `json:"photoURL"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken,omitempty"`
	Role         string    `json:"role,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	LastLoginAt  time.Time `json:"lastLoginAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

func (s *Session) Expired(now time.Time) bool {
	return s == nil || (!s.ExpiresAt.IsZero() && now.After(s.ExpiresAt))
}

// Name is what the bot calls the user.
func (s *Session) Name() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Email
}

type Service struct {
	ID             string          `json:"_id,omitempty"`
	Name           string          `json:"service_name"`
	Category       string          `json:"service_category"`
	Cost           decimal.Decimal `json:"cost"`
	Unit           string          `json:"unit"`
	Description    string          `json:"description"`
	Image          string          `json:"image,omitempty"`
	CreatedByEmail string          `json:"createdByEmail,omitempty"`
	Rating         float64         `json:"rating,omitempty"`
}

type ServiceFilter struct {
	Search    string
	Category  string
	MinBudget decimal.Decimal
	MaxBudget decimal.Decimal
	Page      int
	Limit     int
}

type ServicePage struct {
	Services []Service `json:"services"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
}

type Decorator struct {
	ID          string   `json:"_id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Photo       string   `json:"photo,omitempty"`
	Specialties []string `json:"specialties,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
	Status      string   `json:"status"`
}

func (d Decorator) Active() bool {
	return d.Status == "" || d.Status == DecoratorActive
}

type User struct {
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	PhotoURL    string    `json:"photoURL,omitempty"`
	Role        string    `json:"role,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	LastLoginAt time.Time `json:"lastLoginAt"`
}

type Payment struct {
	ID            string          `json:"_id,omitempty"`
	BookingID     string          `json:"bookingId"`
	ServiceName   string          `json:"serviceName"`
	CustomerEmail string          `json:"customerEmail"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	TransactionID string          `json:"transactionId"`
	TrackingID    string          `json:"trackingId"`
	PaidAt        time.Time       `json:"paidAt"`
}

// CheckoutConfirmation is what the API returns once the gate reports success.
type CheckoutConfirmation struct {
	TransactionID string `json:"transactionId"`
	TrackingID    string `json:"trackingId"`
	BookingID     string `json:"bookingId,omitempty"`
}

type Warehouse struct {
	Region       string   `json:"region"`
	District     string   `json:"district"`
	City         string   `json:"city"`
	CoveredArea  []string `json:"covered_area"`
	Status       string   `json:"status"`
	FlowchartURL string   `json:"flowchart,omitempty"`
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
}

type Analytics struct {
	TotalBookings   int             `json:"totalBookings"`
	PaidBookings    int             `json:"paidBookings"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
	TotalUsers      int             `json:"totalUsers"`
	TotalDecorators int             `json:"totalDecorators"`
	ServiceDemand   []ServiceDemand `json:"serviceDemand"`
	StatusBreakdown map[string]int  `json:"statusBreakdown"`
}

type ServiceDemand struct {
	ServiceName string          `json:"serviceName"`
	Bookings    int             `json:"bookings"`
	Revenue     decimal.Decimal `json:"revenue"`
}
