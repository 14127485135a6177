package downloader

// EventType identifies an engine progress event
type EventType int

const (
	EventItemStarted EventType = iota
	EventItemResolved
	EventAssetCompleted
	EventAssetFailed
	EventItemCompleted
	EventItemFailed
)

func (t EventType) String() string {
	switch t {
	case EventItemStarted:
		return "item_started"
	case EventItemResolved:
		return "item_resolved"
	case EventAssetCompleted:
		return "asset_completed"
	case EventAssetFailed:
		return "asset_failed"
	case EventItemCompleted:
		return "item_completed"
	case EventItemFailed:
		return "item_failed"
	default:
		return "unknown"
	}
}

// Event reports progress of a single item or asset
type Event struct {
	Type   EventType
	ItemID uint64
	// File is the destination path for asset events and the directory for
	// EventItemResolved
	File string
	// Assets is the number of files of a resolved item
	Assets int
	Tries  int
	Err    error
}
