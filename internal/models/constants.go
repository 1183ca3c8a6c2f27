package models

const (
	RoleCustomer  = "customer"
	RoleDecorator = "decorator"
	RoleAdmin     = "admin"
)

const (
	DecoratorActive   = "active"
	DecoratorDisabled = "disabled"
)

const (
	ParseModeMarkdown = "Markdown"
	ParseModeHTML     = "HTML"
)

const (
	DateFormat = "2006-01-02"
	TimeFormat = "15:04"
)

// Conversation steps of the dashboard bot.
const (
	StateMainMenu       = "main_menu"
	StateLoginEmail     = "login_email"
	StateLoginPassword  = "login_password"
	StateRegisterName   = "register_name"
	StateRegisterEmail  = "register_email"
	StateRegisterPass   = "register_password"
	StateSearch         = "search"
	StateBookType       = "book_type"
	StateBookLocation   = "book_location"
	StateBookDate       = "book_date"
	StateBookTime       = "book_time"
	StateBookUnits      = "book_units"
	StateBookNotes      = "book_notes"
	StateBookConfirm    = "book_confirm"
	StateProfileName    = "profile_name"
	StateProfilePhoto   = "profile_photo"
	StateCoverageSearch = "coverage_search"
	StateServiceName    = "service_name"
	StateServiceCat     = "service_category"
	StateServiceCost    = "service_cost"
	StateServiceUnit    = "service_unit"
	StateServiceDesc    = "service_description"
	StateServiceImage   = "service_image"
)

const (
	// WorkdayStart and WorkdayEnd bound the bookable time of day (inclusive).
	WorkdayStart = "09:00"
	WorkdayEnd   = "20:00"

	// DefaultSessionTTL время жизни сессии и состояния в Redis
	DefaultSessionTTL = 7 * 24 * 60 * 60

	// DefaultStateTTL время жизни шага диалога
	DefaultStateTTL = 24 * 60 * 60

	// DefaultDebounceMillis pause in typing before a search is sent
	DefaultDebounceMillis = 600

	// DefaultPaginationSize размер пагинации по умолчанию
	DefaultPaginationSize = 6

	// RateLimitMessages количество сообщений в окне
	RateLimitMessages = 20

	// RateLimitWindow окно ограничения частоты сообщений
	RateLimitWindow = 60

	// DefaultCacheTTL время жизни кэша публичных GET-запросов
	DefaultCacheTTL = 5 * 60
)
