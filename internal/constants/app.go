package constants

const (
	APP_MAIN_PLATEFUL = "plateful"
	APP_CART_SERVICE  = "cart-service"
	APP_ORDER_SERVICE = "order-service"

	AUDIENCE_STAFF = "staff"
	ISSUER_TOKEN   = "plateful"

	CHANNEL_ORDER_STATUS_UPDATED = "order-status-updated"
)
