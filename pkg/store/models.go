package store

import (
	"time"
)

// Run is a stored benchmark run.
type Run struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	RunID        string     `gorm:"uniqueIndex;not null" json:"run_id"`
	Timestamp    int64      `gorm:"index" json:"timestamp"`
	TimestampEnd int64      `json:"timestamp_end,omitempty"`
	ClockMHz     float64    `json:"clock_mhz,omitempty"`
	Hostname     string     `json:"hostname,omitempty"`
	Entries      []RunEntry `gorm:"foreignKey:RunPK;constraint:OnDelete:CASCADE" json:"entries,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// RunEntry is one measurement of a stored run.
type RunEntry struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	RunPK       uint    `gorm:"index;not null" json:"-"`
	Job         string  `gorm:"index:idx_job_executable;not null" json:"job"`
	Executable  string  `gorm:"index:idx_job_executable;not null" json:"executable"`
	RealSeconds float64 `gorm:"not null" json:"real"`
	Iterations  int64   `gorm:"not null" json:"iterations"`
	IPS         float64 `gorm:"not null" json:"ips"`
	Rank        int     `json:"rank"`
	Slowdown    float64 `json:"slowdown,omitempty"`
}

// HistoryPoint is the throughput of a job on an executable in one run.
type HistoryPoint struct {
	RunID       string  `json:"run_id"`
	Timestamp   int64   `json:"timestamp"`
	IPS         float64 `json:"ips"`
	RealSeconds float64 `json:"real"`
	Iterations  int64   `json:"iterations"`
}
