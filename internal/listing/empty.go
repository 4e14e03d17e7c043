package listing

// Empty-state messages. Each names a different reason for an empty result.
const (
	MsgNoUpcoming    = "No upcoming events found."
	MsgNoPast        = "No past events found."
	MsgNoHistory     = "No history yet."
	MsgNoSearchMatch = "No shows match your search."
	MsgNoFilterMatch = "No shows match the selected filters."
	MsgNoSources     = "No sources reported."
	msgNoEventsAtAll = "No events found."
)

// emptyMessage picks the message for an empty filtered result. base is the
// size of the mode's data before venue/time/search filtering.
func emptyMessage(fs FilterState, filtered, base int) string {
	if filtered > 0 {
		return ""
	}
	switch fs.Mode {
	case ModeEvents:
		if base == 0 {
			switch fs.Direction {
			case DirectionPast:
				return MsgNoPast
			case DirectionUpcoming:
				return MsgNoUpcoming
			default:
				return msgNoEventsAtAll
			}
		}
	case ModeHistory:
		if base == 0 {
			return MsgNoHistory
		}
	case ModeCalendar:
		if base == 0 {
			return MsgNoUpcoming
		}
		return MsgNoFilterMatch
	case ModeDashboard:
		return MsgNoSources
	}
	if NormalizeQuery(fs.Query) != "" {
		return MsgNoSearchMatch
	}
	return MsgNoFilterMatch
}
