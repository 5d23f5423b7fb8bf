package bus

const (
	// TopicEvents carries notification core events to the UI.
	TopicEvents = "fleetnotify.events"
	// TopicRefresh carries view refetch requests to the refresher.
	TopicRefresh = "fleetnotify.refresh"
)

const (
	TypeNotificationAdded = "notification.added"
	TypeConnectionChanged = "connection.changed"
	TypeTransportError    = "transport.error"
	TypeRefreshRequested  = "refresh.requested"
	TypeRefreshCompleted  = "refresh.completed"
	TypeUpdateIgnored     = "update.ignored"
)
