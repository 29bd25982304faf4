package authcore

import "github.com/MrEthical07/authcore/internal/metrics"

const (
	// MetricLoginSuccess is an exported constant or variable used by the authentication engine.
	MetricLoginSuccess = metrics.MetricLoginSuccess
	// MetricLoginFailure is an exported constant or variable used by the authentication engine.
	MetricLoginFailure = metrics.MetricLoginFailure
	// MetricLoginRateLimited is an exported constant or variable used by the authentication engine.
	MetricLoginRateLimited = metrics.MetricLoginRateLimited
	// MetricLoginLockout is an exported constant or variable used by the authentication engine.
	MetricLoginLockout = metrics.MetricLoginLockout
	// MetricRegisterSuccess is an exported constant or variable used by the authentication engine.
	MetricRegisterSuccess = metrics.MetricRegisterSuccess
	// MetricRegisterFailure is an exported constant or variable used by the authentication engine.
	MetricRegisterFailure = metrics.MetricRegisterFailure
	// MetricRegisterRateLimited is an exported constant or variable used by the authentication engine.
	MetricRegisterRateLimited = metrics.MetricRegisterRateLimited
	// MetricRefreshSuccess is an exported constant or variable used by the authentication engine.
	MetricRefreshSuccess = metrics.MetricRefreshSuccess
	// MetricRefreshFailure is an exported constant or variable used by the authentication engine.
	MetricRefreshFailure = metrics.MetricRefreshFailure
	// MetricRefreshReuseDetected is an exported constant or variable used by the authentication engine.
	MetricRefreshReuseDetected = metrics.MetricRefreshReuseDetected
	// MetricRefreshRateLimited is an exported constant or variable used by the authentication engine.
	MetricRefreshRateLimited = metrics.MetricRefreshRateLimited
	// MetricSessionCreated is an exported constant or variable used by the authentication engine.
	MetricSessionCreated = metrics.MetricSessionCreated
	// MetricSessionEvicted is an exported constant or variable used by the authentication engine.
	MetricSessionEvicted = metrics.MetricSessionEvicted
	// MetricSessionRevoked is an exported constant or variable used by the authentication engine.
	MetricSessionRevoked = metrics.MetricSessionRevoked
	// MetricValidateSuccess is an exported constant or variable used by the authentication engine.
	MetricValidateSuccess = metrics.MetricValidateSuccess
	// MetricValidateFailure is an exported constant or variable used by the authentication engine.
	MetricValidateFailure = metrics.MetricValidateFailure
	// MetricRateLimitFailOpen is an exported constant or variable used by the authentication engine.
	MetricRateLimitFailOpen = metrics.MetricRateLimitFailOpen
)
