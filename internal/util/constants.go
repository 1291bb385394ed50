package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

const (
	MimeImage       = "image/"
	MimeOctetStream = "application/octet-stream"
)

var (
	AllowedAudioExtensions = []string{".mp3", ".wav", ".m4a", ".ogg", ".webm", ".flac"}
	AllowedImageExtensions = []string{".png", ".jpg", ".jpeg", ".webp", ".gif"}
)

// CompletionThresholdPercent is the share of days that must be completed for a
// challenge to count as successful.
const CompletionThresholdPercent = 80
