package payloads

// Виды заданий обслуживания
const (
	JobCleanup = "cleanup"
	JobBackup  = "backup"
)

// MaintenancePayload представляет задание обслуживания хранилища,
// передаваемое через RabbitMQ.
type MaintenancePayload struct {
	Job        string `json:"job"`
	MaxAgeDays int    `json:"max_age_days,omitempty"`
}
