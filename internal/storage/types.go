package storage

import "time"

// Entry is a single key-value pair.
type Entry struct {
	Key       string
	Value     []byte
	UpdatedAt time.Time
}

// Notification is a user-facing alert waiting to be displayed by the extension.
type Notification struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	Delivered bool      `json:"delivered"`
}

// Summary holds aggregate facts about the database for the status command.
type Summary struct {
	TotalKeys            int64  `json:"totalKeys"`
	DaysTracked          int64  `json:"daysTracked"`
	OldestDay            string `json:"oldestDay,omitempty"`
	NewestDay            string `json:"newestDay,omitempty"`
	PendingNotifications int64  `json:"pendingNotifications"`
	DatabaseSizeBytes    int64  `json:"databaseSizeBytes"`
	SchemaVersion        int    `json:"schemaVersion"`
}
