package model

import "time"

// Stage 流水线阶段
type Stage string

const (
	StageValidate  Stage = "validate"
	StageLoad      Stage = "load"
	StageRegistry  Stage = "registry"
	StageJoin      Stage = "join"
	StageFilter    Stage = "filter"
	StageAggregate Stage = "aggregate"
	StageExport    Stage = "export"
	StageDone      Stage = "done"
)

// OutcomeStatus 运行结果状态
type OutcomeStatus string

const (
	StatusSucceeded OutcomeStatus = "succeeded"
	StatusFailed    OutcomeStatus = "failed"
)

// RunStats 运行统计
type RunStats struct {
	FactRows       int `json:"factRows"`
	RegistryRows   int `json:"registryRows"`
	UnmatchedRows  int `json:"unmatchedRows"`
	DroppedRows    int `json:"droppedRows"` // 可比面积过滤丢弃的行
	ComparableRows int `json:"comparableRows"`
	SheetCount     int `json:"sheetCount"`
	RowCount       int `json:"rowCount"`
}

// Outcome 一次运行的结果：成功时带产物，失败时带阶段与原因
type Outcome struct {
	RunID    string        `json:"runId"`
	Status   OutcomeStatus `json:"status"`
	Stage    Stage         `json:"stage"`
	Reason   string        `json:"reason,omitempty"`
	Bundle   *ReportBundle `json:"-"`
	Artifact *Artifact     `json:"artifact,omitempty"`
	Stats    RunStats      `json:"stats"`
	Elapsed  time.Duration `json:"elapsed"`
	Err      error         `json:"-"`
}

// Succeeded 构造成功结果
func Succeeded(bundle *ReportBundle, artifact *Artifact, stats RunStats) Outcome {
	return Outcome{
		Status:   StatusSucceeded,
		Stage:    StageDone,
		Bundle:   bundle,
		Artifact: artifact,
		Stats:    stats,
	}
}

// Failed 构造失败结果
func Failed(stage Stage, err error, stats RunStats) Outcome {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	return Outcome{
		Status: StatusFailed,
		Stage:  stage,
		Reason: reason,
		Stats:  stats,
		Err:    err,
	}
}

// OK 是否成功
func (o Outcome) OK() bool {
	return o.Status == StatusSucceeded
}
