// backend_seed.go -- Initial data served by FakeBackend.
package testutil

import (
	"time"

	"github.com/michame/console/internal/models"
)

// Seeded ride ids.
const (
	FakeRideRequested = "RIDE-101"
	FakeRideCompleted = "RIDE-102"
	FakeConversation  = "CONV-101"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func (fb *FakeBackend) seed() {
	base := time.Now().UTC().Add(-2 * time.Hour).Truncate(time.Second)

	fb.rides = []models.Ride{
		{
			ID:              FakeRideRequested,
			PickupLocation:  "Rua XV de Novembro, 120 - Capivari",
			DropoffLocation: "Rodoviária de Capivari",
			EstimatedPrice:  floatPtr(18.5),
			Status:          models.RideRequested,
			Timestamp:       base.Add(90 * time.Minute),
			PhoneNumber:     "5519988887777",
			CustomerName:    strPtr("Mariana Souza"),
			Category:        "Carro",
			Events: []models.RideEvent{
				{ID: "EVT-101", EventType: "requested", Title: "Ride requested", CreatedAt: base.Add(90 * time.Minute)},
			},
		},
		{
			ID:              FakeRideCompleted,
			PickupLocation:  "Av. Brasil, 500 - Americana",
			DropoffLocation: "Shopping Tivoli",
			EstimatedPrice:  floatPtr(32),
			FinalPrice:      floatPtr(30.75),
			Status:          models.RideCompleted,
			Timestamp:       base,
			PhoneNumber:     "5519977776666",
			CustomerName:    strPtr("João Pereira"),
			DriverName:      strPtr("Carlos Lima"),
			DriverPhone:     strPtr("5519966665555"),
			DriverVehicle:   strPtr("Toyota Corolla"),
			DriverPlate:     strPtr("ABC-1D23"),
			Category:        "Premium",
			MachineRideID:   strPtr("MG-55501"),
			Events: []models.RideEvent{
				{ID: "EVT-102", EventType: "requested", Title: "Ride requested", CreatedAt: base},
				{ID: "EVT-103", EventType: "completed", Title: "Ride completed", CreatedAt: base.Add(40 * time.Minute)},
			},
		},
	}

	fb.logs[FakeRideRequested] = []models.LogEntry{
		{ID: "LOG-101", RideID: FakeRideRequested, Type: "message", Content: "Olá, preciso de um carro", Timestamp: base.Add(89 * time.Minute), Direction: "inbound"},
		{ID: "LOG-102", RideID: FakeRideRequested, Type: "api", Content: "POST /rides -> 201", Timestamp: base.Add(90 * time.Minute)},
	}

	fb.convs = []models.Conversation{
		{
			ID:            FakeConversation,
			Customer:      models.ConversationCustomer{ID: "CUST-101", PhoneNumber: "5519988887777", Name: strPtr("Mariana Souza")},
			State:         "awaiting_driver",
			IsActive:      true,
			LastMessage:   &models.MessagePreview{ID: "MSG-102", Content: "Procurando motorista...", Direction: "outbound", CreatedAt: base.Add(90 * time.Minute)},
			LastMessageAt: base.Add(90 * time.Minute),
			HasActiveRide: true,
			RideID:        strPtr(FakeRideRequested),
			RideStatus:    strPtr(models.RideRequested),
			CreatedAt:     base.Add(88 * time.Minute),
		},
	}
	fb.messages[FakeConversation] = []models.Message{
		{ID: "MSG-101", ConversationID: FakeConversation, Direction: "inbound", Content: "Olá, preciso de um carro", MessageType: "text", CreatedAt: base.Add(89 * time.Minute)},
		{ID: "MSG-102", ConversationID: FakeConversation, Direction: "outbound", Content: "Procurando motorista...", MessageType: "text", CreatedAt: base.Add(90 * time.Minute)},
	}

	fb.credentials = []models.CredentialInfo{
		{Key: "MACHINE_API_KEY", Service: "machine", IsConfigured: true, IsValid: true, MaskedValue: "****a1b2"},
		{Key: "WHATSAPP_TOKEN", Service: "whatsapp", IsConfigured: true, IsValid: true, MaskedValue: "****c3d4"},
		{Key: "OPENAI_API_KEY", Service: "openai", IsConfigured: false},
	}
}
