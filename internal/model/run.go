package model

import "time"

// RunRecord 运行记录（持久化到 runs 表）
type RunRecord struct {
	ID          string        `json:"id"`
	Kind        string        `json:"kind"`
	Month       Month         `json:"month"`
	Year        int           `json:"year"`
	Format      string        `json:"format"`
	Scope       string        `json:"scope,omitempty"`
	Status      string        `json:"status"` // running/succeeded/failed
	Stage       Stage         `json:"stage"`
	Reason      string        `json:"reason,omitempty"`
	Stats       RunStats      `json:"stats"`
	FileName    string        `json:"fileName,omitempty"`
	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
	Elapsed     time.Duration `json:"elapsed"`
}

// RunStatusRunning 运行中
const RunStatusRunning = "running"
