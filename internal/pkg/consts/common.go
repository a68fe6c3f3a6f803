package consts

const (
	MimePrefixImage = "image"
)

const (
	DefaultAvatarURL = "default_avatar.png"
)

const (
	ChatStartedText   = "Conversation started."
	ChatSystemPreview = "[System Message]"
	ReportHeader      = "--- AUTOMATED REPORT ---"
)

const (
	EventSendMessage     = "send_message"
	EventMessageReceived = "message_received"
)
