package schedule

import "encoding/json"

// wireInterval is one entry of the persisted schedule output's
// "intervals" array.
type wireInterval struct {
	TimeInstant int64 `json:"timeInstant"`
	TaskID      int   `json:"taskId"`
	JobID       int   `json:"jobId"`
	DidPreempt  bool  `json:"didPreempt"`
	CoreID      int   `json:"coreId"`
}

// wireDocument is the persisted "scheduleOutput" object.
type wireDocument struct {
	StartTime int64          `json:"startTime"`
	EndTime   int64          `json:"endTime"`
	Intervals []wireInterval `json:"intervals"`
}

// MarshalJSON renders the post-processed record as the scheduleOutput wire
// format: one entry per tick-granular occupancy, sentinel task ids 0/-1 for
// idle/fail.
func (r *Record) MarshalJSON() ([]byte, error) {
	doc := wireDocument{StartTime: r.StartTime, EndTime: r.EndTime}
	for _, iv := range r.Intervals {
		for tick := iv.Start; tick < iv.End; tick++ {
			doc.Intervals = append(doc.Intervals, wireInterval{
				TimeInstant: tick,
				TaskID:      iv.TaskID,
				JobID:       iv.JobID,
				DidPreempt:  iv.Preempted,
				CoreID:      iv.CoreID,
			})
		}
	}
	return json.Marshal(doc)
}
