package enums

type ServiceStatus string

const (
	ServiceStatusActive    ServiceStatus = "active"
	ServiceStatusScheduled ServiceStatus = "scheduled"
	ServiceStatusCompleted ServiceStatus = "completed"
	ServiceStatusExpired   ServiceStatus = "expired"
)
