package models

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// DateLayout is the wire and storage format of booking dates.
const DateLayout = "2006-01-02"

const (
	SyncStatusPending   = "pending"
	SyncStatusRetry     = "retry"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

const (
	// BookingAttemptsLimit попыток бронирования на пользователя в окне
	BookingAttemptsLimit = 10

	// BookingAttemptsWindow окно лимита попыток бронирования, в секундах
	BookingAttemptsWindow = 60

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 128

	// SheetsCacheTTL время жизни кэша строк Google Sheets
	SheetsCacheTTL = 60 * 60
)
