package log

const (
	KeyAppName       = "app"
	KeyTag           = "tag"
	KeyProcess       = "process"
	KeyConfig        = "config"
	KeyRequestID     = "requestId"
	KeyRequestBody   = "requestBody"
	KeyRequestHeader = "requestHeader"
	KeyRequestHost   = "host"
	KeyRequestIp     = "requesterIP"
	KeyRequestMethod = "requestMethod"
	KeyRequestURI    = "requestURI"
	KeyRequestURL    = "requestURL"
	KeyPathValues    = "pathValues"

	KeyCustomerID = "customerId"
	KeyCart       = "cart"
	KeyCartLineID = "cartLineId"
	KeyLineCount  = "lineCount"
	KeyItemCount  = "itemCount"
	KeyTipAmount  = "tipAmount"
	KeyOrder      = "order"
	KeyOrderID    = "orderId"
	KeyOrders     = "orders"
	KeyStatus     = "status"
	KeyCacheKey   = "cacheKey"
	KeyToken      = "token"
	KeyDbURL      = "dbURL"
)
