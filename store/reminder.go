package store

// ReminderStatus is the delivery state of a reminder.
type ReminderStatus string

const (
	ReminderPending   ReminderStatus = "pending"
	ReminderDelivered ReminderStatus = "delivered"
	ReminderCancelled ReminderStatus = "cancelled"
	ReminderFailed    ReminderStatus = "failed"
)

// DeliveryKind says where a reminder is delivered.
type DeliveryKind string

const (
	DeliverDirectMessage DeliveryKind = "direct_message"
	DeliverChannel       DeliveryKind = "channel"
)

// AutoActionKind is an action executed when a reminder's grace period
// elapses with no operator response.
type AutoActionKind string

const (
	AutoActionNone        AutoActionKind = ""
	AutoActionMute        AutoActionKind = "mute"
	AutoActionKick        AutoActionKind = "kick"
	AutoActionBan         AutoActionKind = "ban"
	AutoActionYouTubePost AutoActionKind = "youtube_post"
)

// Reminder is a scheduled one-shot notification.
type Reminder struct {
	ID                int32
	UserID            string
	Text              string
	ScheduledTs       int64
	DeliveryKind      DeliveryKind
	ChannelID         string // required iff DeliveryKind == DeliverChannel
	Status            ReminderStatus
	AutoAction        AutoActionKind
	AutoActionPayload string
	DeliveredTs       *int64
	CancelledTs       *int64
	FailReason        string
	CreatedBy         string
	CreatedTs         int64
}

// FindReminder filters reminder lookups.
type FindReminder struct {
	ID        *int32
	UserID    *string
	Status    *ReminderStatus
	DueBefore *int64 // scheduled_ts <= DueBefore
}
