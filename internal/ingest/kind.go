package ingest

// Kind selects the storage shape for a save_data payload.
type Kind int

const (
	KindUnrecognized Kind = iota
	KindBrowserHistory
	KindWebsiteHistory
	KindPeriodicSnapshots
	KindActivity
)

var kindsByName = map[string]Kind{
	"browser_history":    KindBrowserHistory,
	"website_history":    KindWebsiteHistory,
	"periodic_snapshots": KindPeriodicSnapshots,
	"activity":           KindActivity,
}

// ParseKind never fails: names without a dedicated table, including the
// empty string, map to KindUnrecognized and are stored generically.
func ParseKind(api string) Kind {
	if k, ok := kindsByName[api]; ok {
		return k
	}
	return KindUnrecognized
}

func (k Kind) String() string {
	switch k {
	case KindBrowserHistory:
		return "browser_history"
	case KindWebsiteHistory:
		return "website_history"
	case KindPeriodicSnapshots:
		return "periodic_snapshots"
	case KindActivity:
		return "activity"
	default:
		return "unrecognized"
	}
}
