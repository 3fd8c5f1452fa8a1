package events

// Event type constants
const (
	EventStatusUpdate = "status_update"
	EventNotification = "notification"
)

// Phase is the stage a series scan is in.
type Phase string

const (
	PhaseScanning Phase = "scanning"
	PhaseAdding   Phase = "adding"
	PhaseAdded    Phase = "added"
	PhaseRenaming Phase = "renaming"
	PhaseRenamed  Phase = "renamed"
	PhaseSkipped  Phase = "skipped"
	PhaseDone     Phase = "done"
	PhaseError    Phase = "error"
)

// Terminal reports whether no further status updates follow for the scan.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseError
}

// Severity grades a notification.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// StatusUpdate reports scan progress for a series. Each episode accounts
// for two progress units, so Total is twice the episode count.
type StatusUpdate struct {
	BaseEvent
	Phase    Phase  `json:"phase"`
	Progress int    `json:"progress"`
	Total    int    `json:"total"`
	Message  string `json:"message,omitempty"`
}

// NewStatusUpdate creates a status update for seriesRef.
func NewStatusUpdate(seriesRef string, phase Phase, progress, total int, message string) *StatusUpdate {
	return &StatusUpdate{
		BaseEvent: NewBaseEvent(EventStatusUpdate, seriesRef),
		Phase:     phase,
		Progress:  progress,
		Total:     total,
		Message:   message,
	}
}

// Notification is a human-readable message for operators.
type Notification struct {
	BaseEvent
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// NewNotification creates a notification. seriesRef may be empty.
func NewNotification(seriesRef string, severity Severity, message string) *Notification {
	return &Notification{
		BaseEvent: NewBaseEvent(EventNotification, seriesRef),
		Message:   message,
		Severity:  severity,
	}
}
