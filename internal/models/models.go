// models.go -- Shared domain types for the Mi Chame backend API.
// Field names and JSON tags mirror the backend's camelCase payloads.
// Nullable fields are pointers -- nil means JSON null or absent.
package models

import "time"

// UserProfile is an operator account as returned by /api/auth/me and /api/auth/users.
// Never mutated in place; a fresh fetch replaces it wholesale.
type UserProfile struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        Role       `json:"role"`
	IsActive    *bool      `json:"isActive,omitempty"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
}

// LoginResult is the data payload of a successful POST /api/auth/login.
type LoginResult struct {
	User         UserProfile `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

// RefreshResult is the data payload of a successful POST /api/auth/refresh.
type RefreshResult struct {
	AccessToken string `json:"accessToken"`
}

// SetupResult holds the bootstrap admin credentials from POST /api/auth/setup.
type SetupResult struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Note     string `json:"note"`
}

// UserUpdate carries the optional fields accepted by PUT /api/auth/users/{id}.
type UserUpdate struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Role     *Role   `json:"role,omitempty"`
	IsActive *bool   `json:"isActive,omitempty"`
}

// Ride statuses reported by the dispatch backend.
const (
	RideRequested = "requested"
	RideAccepted  = "accepted"
	RideNoDriver  = "no-driver"
	RideFailed    = "failed"
	RideCompleted = "completed"
	RideCancelled = "cancelled"
)

// RideEvent is one entry in a ride's event timeline.
type RideEvent struct {
	ID          string    `json:"id"`
	EventType   string    `json:"eventType"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Ride is a ride request as listed by /api/rides.
type Ride struct {
	ID              string      `json:"id"`
	PickupLocation  string      `json:"pickupLocation"`
	DropoffLocation string      `json:"dropoffLocation"`
	EstimatedPrice  *float64    `json:"estimatedPrice"`
	FinalPrice      *float64    `json:"finalPrice"`
	Status          string      `json:"status"`
	Timestamp       time.Time   `json:"timestamp"`
	PhoneNumber     string      `json:"phoneNumber"`
	CustomerName    *string     `json:"customerName"`
	DriverName      *string     `json:"driverName"`
	DriverPhone     *string     `json:"driverPhone"`
	DriverVehicle   *string     `json:"driverVehicle"`
	DriverPlate     *string     `json:"driverPlate"`
	Category        string      `json:"category"`
	MachineRideID   *string     `json:"machineRideId"`
	Events          []RideEvent `json:"events"`
}

// LogEntry is one line of a ride's message/API log.
// Type is one of "message", "api", "error".
type LogEntry struct {
	ID        string    `json:"id"`
	RideID    string    `json:"rideId"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Direction string    `json:"direction,omitempty"`
	Severity  string    `json:"severity,omitempty"`
}

// ConversationCustomer identifies the WhatsApp contact behind a conversation.
type ConversationCustomer struct {
	ID          string  `json:"id"`
	PhoneNumber string  `json:"phoneNumber"`
	Name        *string `json:"name"`
}

// MessagePreview is the last message shown in a conversation list.
type MessagePreview struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Direction string    `json:"direction"`
	CreatedAt time.Time `json:"createdAt"`
}

// Conversation is a WhatsApp conversation tracked by the backend.
type Conversation struct {
	ID            string               `json:"id"`
	Customer      ConversationCustomer `json:"customer"`
	State         string               `json:"state"`
	IsActive      bool                 `json:"isActive"`
	LastMessage   *MessagePreview      `json:"lastMessage"`
	LastMessageAt time.Time            `json:"lastMessageAt"`
	HasActiveRide bool                 `json:"hasActiveRide"`
	RideID        *string              `json:"rideId"`
	RideStatus    *string              `json:"rideStatus"`
	CreatedAt     time.Time            `json:"createdAt"`
}

// Message is a single WhatsApp message in a conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Direction      string    `json:"direction"`
	Content        string    `json:"content"`
	MessageType    string    `json:"messageType"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ConversationStats is the payload of /api/conversations/stats/active.
type ConversationStats struct {
	ActiveConversations int `json:"activeConversations"`
	ConversationsToday  int `json:"conversationsToday"`
	MessagesToday       int `json:"messagesToday"`
}

// RideCounts is the rides block of the analytics overview.
// Rates arrive preformatted as strings ("87.5").
type RideCounts struct {
	Total            int    `json:"total"`
	Today            int    `json:"today"`
	Week             int    `json:"week"`
	Month            int    `json:"month"`
	Active           int    `json:"active"`
	Completed        int    `json:"completed"`
	Cancelled        int    `json:"cancelled"`
	CompletionRate   string `json:"completionRate"`
	CancellationRate string `json:"cancellationRate"`
}

// Revenue totals per period.
type Revenue struct {
	Today float64 `json:"today"`
	Week  float64 `json:"week"`
	Month float64 `json:"month"`
}

// AnalyticsOverview is the payload of /api/analytics/overview.
type AnalyticsOverview struct {
	Rides     RideCounts `json:"rides"`
	Revenue   Revenue    `json:"revenue"`
	Customers struct {
		Total int `json:"total"`
	} `json:"customers"`
	Conversations struct {
		Active int `json:"active"`
	} `json:"conversations"`
}

// DayData is one point of /api/analytics/rides-by-day.
type DayData struct {
	Date      string  `json:"date"`
	Rides     int     `json:"rides"`
	Completed int     `json:"completed"`
	Revenue   float64 `json:"revenue"`
}

// StatusCount is one bucket of /api/analytics/rides-by-status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// CategoryCount is one bucket of /api/analytics/rides-by-category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// RecentEvent is one entry of /api/analytics/recent-events.
// Type is one of "info", "success", "warning", "error".
type RecentEvent struct {
	ID            string    `json:"id"`
	RideID        string    `json:"rideId"`
	Type          string    `json:"type"`
	Title         string    `json:"title"`
	Description   *string   `json:"description"`
	Timestamp     time.Time `json:"timestamp"`
	CustomerPhone *string   `json:"customerPhone"`
	CustomerName  *string   `json:"customerName"`
}

// ServiceStatus is a single dependency entry of the backend health report.
type ServiceStatus struct {
	Status string `json:"status"`
}

// HealthStatus is the payload of /api/settings/health.
type HealthStatus struct {
	Status   string `json:"status"`
	Services struct {
		Database      ServiceStatus `json:"database"`
		MachineGlobal ServiceStatus `json:"machineGlobal"`
		WhatsApp      ServiceStatus `json:"whatsapp"`
		Twilio        ServiceStatus `json:"twilio"`
		OpenAI        ServiceStatus `json:"openai"`
	} `json:"services"`
	Timestamp time.Time `json:"timestamp"`
}

// ServiceTestResult is returned by the settings and credentials test endpoints.
type ServiceTestResult struct {
	Success bool   `json:"success"`
	Service string `json:"service,omitempty"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// CredentialInfo describes one stored integration secret. Value is always masked.
type CredentialInfo struct {
	Key          string     `json:"key"`
	Service      string     `json:"service"`
	IsConfigured bool       `json:"isConfigured"`
	IsValid      bool       `json:"isValid"`
	MaskedValue  string     `json:"maskedValue"`
	LastTest     *time.Time `json:"lastTest"`
}

// CredentialsData is the payload of GET /api/credentials.
type CredentialsData struct {
	Credentials []CredentialInfo            `json:"credentials"`
	Grouped     map[string][]CredentialInfo `json:"grouped"`
	Services    []string                    `json:"services"`
}

// MissingCredentials is the payload of GET /api/credentials/missing.
type MissingCredentials struct {
	Missing    []string `json:"missing"`
	IsComplete bool     `json:"isComplete"`
	Message    string   `json:"message"`
}

// SavedCredentials is the payload of POST /api/credentials/{service}.
type SavedCredentials struct {
	Message   string   `json:"message"`
	SavedKeys []string `json:"savedKeys"`
}

// MessageResult is a bare {message} payload.
type MessageResult struct {
	Message string `json:"message"`
}

// Driver is a fleet member. The backend has no driver endpoint yet,
// so drivers only come from static fixtures.
type Driver struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	VehicleType  string    `json:"vehicleType"`
	VehiclePlate string    `json:"vehiclePlate"`
	Status       string    `json:"status"`
	Rating       float64   `json:"rating"`
	TotalRides   int       `json:"totalRides"`
	JoinedDate   time.Time `json:"joinedDate"`
	LastActive   time.Time `json:"lastActive"`
	Earnings     float64   `json:"earnings"`
}

// WeeklyStat is one day of the weekly analytics chart.
type WeeklyStat struct {
	Date        string  `json:"date"`
	Rides       int     `json:"rides"`
	Revenue     float64 `json:"revenue"`
	SuccessRate int     `json:"successRate"`
}

// HourlyStat is one bucket of the hourly ride distribution chart.
type HourlyStat struct {
	Hour  string `json:"hour"`
	Rides int    `json:"rides"`
}
