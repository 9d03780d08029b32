package internal

const (
	COOKIE_ACCESS_TOKEN_NAME = "naktender_access_token"
	COOKIE_REDIRECT_NAME     = "naktender_redirect"
)
