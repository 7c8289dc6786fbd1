// fixtures.go -- Demo data served when the backend is unreachable.
// Timestamps are relative to the moment the Static source is built.
package datasource

import (
	"time"

	"github.com/michame/console/internal/models"
)

func ptr[T any](v T) *T { return &v }

func fixtureRides(now time.Time) []models.Ride {
	mins := func(n float64) time.Time { return now.Add(-time.Duration(n * float64(time.Minute))) }
	hours := func(n float64) time.Time { return now.Add(-time.Duration(n * float64(time.Hour))) }

	return []models.Ride{
		{ID: "RIDE-001", PickupLocation: "123 Main Street, Downtown", DropoffLocation: "Airport Terminal 2",
			EstimatedPrice: ptr(45.50), Status: models.RideAccepted, Timestamp: mins(5), PhoneNumber: "+1234567890",
			DriverName: ptr("Carlos M."), Category: "standard"},
		{ID: "RIDE-002", PickupLocation: "Central Park West", DropoffLocation: "456 Broadway, Midtown",
			EstimatedPrice: ptr(22.00), Status: models.RideRequested, Timestamp: mins(12), PhoneNumber: "+1987654321",
			Category: "standard"},
		{ID: "RIDE-003", PickupLocation: "Grand Central Station", DropoffLocation: "Brooklyn Bridge",
			EstimatedPrice: ptr(35.75), Status: models.RideNoDriver, Timestamp: mins(28), PhoneNumber: "+1555666777",
			Category: "standard"},
		{ID: "RIDE-004", PickupLocation: "789 Oak Avenue", DropoffLocation: "University Campus",
			EstimatedPrice: ptr(18.25), Status: models.RideFailed, Timestamp: hours(1), PhoneNumber: "+1444333222",
			Category: "standard"},
		{ID: "RIDE-005", PickupLocation: "Shopping Mall Plaza", DropoffLocation: "Residential District 5",
			EstimatedPrice: ptr(28.00), Status: models.RideAccepted, Timestamp: hours(2), PhoneNumber: "+1666999888",
			DriverName: ptr("Maria L."), Category: "standard"},
		{ID: "RIDE-006", PickupLocation: "Tech Park Building A", DropoffLocation: "Financial District",
			EstimatedPrice: ptr(32.50), Status: models.RideRequested, Timestamp: mins(3), PhoneNumber: "+1222111000",
			Category: "standard"},
	}
}

func fixtureEvents(now time.Time) []models.RecentEvent {
	mins := func(n float64) time.Time { return now.Add(-time.Duration(n * float64(time.Minute))) }
	hours := func(n float64) time.Time { return now.Add(-time.Duration(n * float64(time.Hour))) }

	return []models.RecentEvent{
		{ID: "EVT-001", RideID: "RIDE-001", Type: "success", Title: "Driver Assigned",
			Description: ptr("Carlos M. accepted the ride request"), Timestamp: mins(4)},
		{ID: "EVT-002", RideID: "RIDE-006", Type: "info", Title: "New Ride Request",
			Description: ptr("Incoming ride request from +1222111000"), Timestamp: mins(3)},
		{ID: "EVT-003", RideID: "RIDE-003", Type: "warning", Title: "No Available Drivers",
			Description: ptr("All nearby drivers are currently busy"), Timestamp: mins(25)},
		{ID: "EVT-004", RideID: "RIDE-004", Type: "error", Title: "Payment Failed",
			Description: ptr("Card declined - insufficient funds"), Timestamp: hours(1)},
		{ID: "EVT-005", Type: "info", Title: "WhatsApp Webhook Connected",
			Description: ptr("Successfully receiving messages from Meta API"), Timestamp: hours(3)},
		{ID: "EVT-006", RideID: "RIDE-002", Type: "info", Title: "Searching for Driver",
			Description: ptr("Broadcasting to 12 nearby drivers"), Timestamp: mins(11)},
	}
}

func fixtureLogs(now time.Time) map[string][]models.LogEntry {
	mins := func(n float64) time.Time { return now.Add(-time.Duration(n * float64(time.Minute))) }
	hours := func(n float64) time.Time { return now.Add(-time.Duration(n * float64(time.Hour))) }

	msg := func(id, ride, dir, content string, at time.Time) models.LogEntry {
		return models.LogEntry{ID: id, RideID: ride, Type: "message", Direction: dir, Content: content, Timestamp: at}
	}
	sys := func(id, ride, typ, severity, content string, at time.Time) models.LogEntry {
		return models.LogEntry{ID: id, RideID: ride, Type: typ, Severity: severity, Content: content, Timestamp: at}
	}

	return map[string][]models.LogEntry{
		"RIDE-001": {
			msg("LOG-001", "RIDE-001", "incoming", "Hi, I need a ride to the airport", mins(8)),
			msg("LOG-002", "RIDE-001", "outgoing", "Sure! Please share your pickup location.", mins(7)),
			msg("LOG-003", "RIDE-001", "incoming", "123 Main Street, Downtown", mins(6)),
			sys("LOG-004", "RIDE-001", "api", "success", "Geocoding API: Location resolved", mins(6)),
			msg("LOG-005", "RIDE-001", "outgoing", "Your ride to Airport Terminal 2 will cost approximately $45.50. Confirm?", mins(5)),
			msg("LOG-006", "RIDE-001", "incoming", "Yes, confirm", mins(5)),
			sys("LOG-007", "RIDE-001", "api", "success", "Driver matching: Carlos M. assigned", mins(4)),
			msg("LOG-008", "RIDE-001", "outgoing", "Great! Carlos M. is on the way. ETA: 7 minutes.", mins(4)),
		},
		"RIDE-004": {
			msg("LOG-101", "RIDE-004", "incoming", "Need a ride to University Campus", hours(1.2)),
			sys("LOG-102", "RIDE-004", "api", "info", "Payment processing initiated", hours(1.1)),
			sys("LOG-103", "RIDE-004", "error", "error", "Stripe API Error: Card declined (insufficient_funds)", hours(1)),
			msg("LOG-104", "RIDE-004", "outgoing", "Sorry, your payment could not be processed. Please update your payment method.", hours(1)),
		},
	}
}

func fixtureDrivers(now time.Time) []models.Driver {
	days := func(n int) time.Time { return now.AddDate(0, 0, -n) }
	mins := func(n int) time.Time { return now.Add(-time.Duration(n) * time.Minute) }

	return []models.Driver{
		{ID: "DRV-001", Name: "Carlos Martinez", Phone: "+1234567001", VehicleType: "sedan", VehiclePlate: "ABC-1234",
			Status: "busy", Rating: 4.8, TotalRides: 342, JoinedDate: days(180), LastActive: mins(5), Earnings: 8450.00},
		{ID: "DRV-002", Name: "Maria Lopez", Phone: "+1234567002", VehicleType: "suv", VehiclePlate: "XYZ-5678",
			Status: "available", Rating: 4.9, TotalRides: 521, JoinedDate: days(365), LastActive: mins(2), Earnings: 12340.50},
		{ID: "DRV-003", Name: "Juan Rodriguez", Phone: "+1234567003", VehicleType: "sedan", VehiclePlate: "DEF-9012",
			Status: "available", Rating: 4.6, TotalRides: 178, JoinedDate: days(90), LastActive: mins(8), Earnings: 4250.75},
		{ID: "DRV-004", Name: "Ana Garcia", Phone: "+1234567004", VehicleType: "van", VehiclePlate: "GHI-3456",
			Status: "offline", Rating: 4.7, TotalRides: 289, JoinedDate: days(200), LastActive: now.Add(-12 * time.Hour), Earnings: 7120.00},
		{ID: "DRV-005", Name: "Pedro Sanchez", Phone: "+1234567005", VehicleType: "motorcycle", VehiclePlate: "JKL-7890",
			Status: "busy", Rating: 4.5, TotalRides: 456, JoinedDate: days(250), LastActive: mins(15), Earnings: 5890.25},
		{ID: "DRV-006", Name: "Sofia Hernandez", Phone: "+1234567006", VehicleType: "sedan", VehiclePlate: "MNO-1357",
			Status: "available", Rating: 4.9, TotalRides: 612, JoinedDate: days(400), LastActive: mins(1), Earnings: 15420.00},
	}
}

var weeklyStats = []models.WeeklyStat{
	{Date: "Mon", Rides: 45, Revenue: 1125, SuccessRate: 82},
	{Date: "Tue", Rides: 52, Revenue: 1340, SuccessRate: 88},
	{Date: "Wed", Rides: 48, Revenue: 1180, SuccessRate: 85},
	{Date: "Thu", Rides: 61, Revenue: 1520, SuccessRate: 91},
	{Date: "Fri", Rides: 78, Revenue: 2010, SuccessRate: 87},
	{Date: "Sat", Rides: 92, Revenue: 2580, SuccessRate: 89},
	{Date: "Sun", Rides: 67, Revenue: 1720, SuccessRate: 84},
}

var hourlyStats = []models.HourlyStat{
	{Hour: "6am", Rides: 8},
	{Hour: "8am", Rides: 25},
	{Hour: "10am", Rides: 18},
	{Hour: "12pm", Rides: 32},
	{Hour: "2pm", Rides: 22},
	{Hour: "4pm", Rides: 28},
	{Hour: "6pm", Rides: 45},
	{Hour: "8pm", Rides: 38},
	{Hour: "10pm", Rides: 20},
}

// Lifetime outcome totals behind the status breakdown chart.
var statusBreakdown = []models.StatusCount{
	{Status: models.RideCompleted, Count: 385},
	{Status: models.RideNoDriver, Count: 42},
	{Status: models.RideCancelled, Count: 16},
}
