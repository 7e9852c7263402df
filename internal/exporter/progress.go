package exporter

// ProgressEvent 导出进度事件（用于 UI 展示）
type ProgressEvent struct {
	Percent int
	Stage   string
}

// ProgressFunc 导出进度回调
type ProgressFunc func(ProgressEvent)

func reportProgress(progress ProgressFunc, percent int, stage string) {
	if progress == nil {
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	progress(ProgressEvent{
		Percent: percent,
		Stage:   stage,
	})
}

// sheetPercent 第 i 张表完成时的进度
func sheetPercent(i, total int) int {
	if total <= 0 {
		return 100
	}
	return (i + 1) * 100 / total
}
