package configdb

// BaseModel is our base class for a GORM model.
// The default GORM Model uses int, but we prefer int64
type BaseModel struct {
	ID int64 `gorm:"primaryKey" json:"id"`
}

const (
	SourceKindCamera = "camera"
	SourceKindFile   = "file"
)

// VideoSource is a configured video input: a local camera device, or a video
// file that can be played back on demand.
type VideoSource struct {
	BaseModel
	Kind        string `json:"kind"` // "camera" or "file"
	Name        string `json:"name"`
	DeviceIndex int    `json:"deviceIndex"` // Camera sources only
	Path        string `json:"path"`        // File sources only
	Enabled     bool   `json:"enabled"`     // Start at boot (camera sources)
}

func (VideoSource) TableName() string {
	return "video_source"
}

// Variable is a generic key/value setting.
type Variable struct {
	Key   string `gorm:"primaryKey" json:"key"`
	Value string `json:"value"`
}

func (Variable) TableName() string {
	return "variable"
}

// RunSummary is the tally snapshot of one finished source run, so the
// dashboard can show history across restarts. Live tallies reset with the
// process; these don't.
type RunSummary struct {
	BaseModel
	SourceName  string `json:"sourceName"`
	Live        bool   `json:"live"`
	StartedAt   int64  `json:"startedAt"`  // Unix milliseconds
	FinishedAt  int64  `json:"finishedAt"` // Unix milliseconds
	ActiveCount int64  `json:"activeCount"`
	IdleCount   int64  `json:"idleCount"`
	Degraded    bool   `json:"degraded"` // Run happened without models loaded
}

func (RunSummary) TableName() string {
	return "run_summary"
}
