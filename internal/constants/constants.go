package constants

const (
	APP_CART_SERVICE    = "cart-service"
	APP_PRODUCT_SERVICE = "product-service"
	APP_MIGRATE         = "migrate"
	APP_MAIN_STOREFRONT = "main storefront"
	AUDIENCE_USER       = "audience-user"
	ISSUER_USER_SERVICE = "user-service"
)

const (
	KEY_APP_NAME             = "app"
	KEY_BODY                 = "body"
	KEY_CACHE_KEY            = "cacheKey"
	KEY_CART                 = "cart"
	KEY_CART_ID              = "cartId"
	KEY_CART_REVISION        = "cartRevision"
	KEY_CONFIG               = "config"
	KEY_COUPON               = "coupon"
	KEY_DB_URL               = "dbUrl"
	KEY_HEADER               = "header"
	KEY_JSON_CACHE           = "jsonCache"
	KEY_LINE_ITEM            = "lineItem"
	KEY_LINE_ITEMS           = "lineItems"
	KEY_LINE_ITEM_QUANTITY   = "lineItemQuantity"
	KEY_LOCK_KEY             = "lockKey"
	KEY_PATH_VALUES          = "pathValues"
	KEY_PROCESS              = "process"
	KEY_PRODUCT              = "product"
	KEY_PRODUCTS             = "products"
	KEY_PRODUCT_ID           = "productId"
	KEY_REASON               = "reason"
	KEY_REQUEST              = "request"
	KEY_REQUEST_BODY         = "requestBody"
	KEY_REQUEST_HOST         = "host"
	KEY_REQUEST_ID           = "requestId"
	KEY_REQUEST_IP           = "requesterIP"
	KEY_REQUEST_METHOD       = "requestMethod"
	KEY_REQUEST_URI          = "requestURI"
	KEY_REQUEST_URL          = "requestURL"
	KEY_RETRY                = "retry"
	KEY_SPAN_ID              = "spanId"
	KEY_TAG                  = "tag"
	KEY_TOKEN                = "token"
	KEY_TRACE_ID             = "traceId"
	KEY_UNAVAILABLE_PRODUCTS = "unavailableProducts"
	KEY_USER_ID              = "userId"
	KEY_VARIANT_ID           = "variantId"
)
