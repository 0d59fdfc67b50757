package models

// Setting keys for the persisted key/value settings area.
const (
	SettingRemoteURL       = "remote_url"
	SettingRemoteKey       = "remote_key" // stored encrypted, see internal/crypto
	SettingAutoSyncEnabled = "auto_sync_enabled"
	SettingLastSyncTime    = "last_sync_time"
)

// Setting is a single persisted key/value entry.
type Setting struct {
	Key       string `db:"key" json:"key"`
	Value     string `db:"value" json:"value"`
	UpdatedAt int64  `db:"updated_at" json:"updated_at"`
}

// TableName returns the table name for Setting.
func (Setting) TableName() string {
	return "settings"
}
