package buildbot

// Status is the aggregate build state of a single builder, snapshotted once
// per poll.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusFailure   Status = "failure"
	StatusBuilding  Status = "building"
	StatusException Status = "exception"
	StatusOffline   Status = "offline"
	StatusUnknown   Status = "unknown"
)

func (s Status) String() string {
	return string(s)
}
