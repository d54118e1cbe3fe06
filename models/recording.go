package models

import "time"

// JobStatus tracks where a recording job is in its lifecycle.
type JobStatus string

const (
	// JobMonitoring means the streamer is being watched for going live.
	JobMonitoring JobStatus = "monitoring"
	// JobRecording means capture is in progress.
	JobRecording JobStatus = "recording"
	// JobStopped means the job is paused and not monitored.
	JobStopped JobStatus = "stopped"
)

// ValidJobStatus reports whether s is a known lifecycle state.
func ValidJobStatus(s JobStatus) bool {
	switch s {
	case JobMonitoring, JobRecording, JobStopped:
		return true
	}
	return false
}

// RecordingJob describes one live-stream capture job in the catalog.
type RecordingJob struct {
	ID            int64     `json:"id"`
	StreamerName  string    `json:"streamer_name"`
	LiveURL       string    `json:"live_url"`
	Quality       string    `json:"quality"`
	OutputDir     string    `json:"output_dir"`
	Status        JobStatus `json:"status"`
	SegmentRecord bool      `json:"segment_record"`
	SegmentTime   int       `json:"segment_time"`

	// ScheduledStart and MonitorHours carry the recorder's monitoring window,
	// e.g. "18:30:00" and "3". Free-form; the recorder interprets them.
	ScheduledStart string `json:"scheduled_start,omitempty"`
	MonitorHours   string `json:"monitor_hours,omitempty"`

	Remark    string    `json:"remark,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
