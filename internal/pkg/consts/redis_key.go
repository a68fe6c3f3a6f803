package consts

const (
	TokenBlacklistKey   = "token:blacklist:"
	ChatInquiryFlagKey  = "chat:inquired:"
	ProductViewKey      = "product:view:"
	ProductViewDirtyKey = "product:view:dirty"
	IMUserKey           = "im:user:"
	ProductViewLockKey  = "lock:product:view:flush"
)
