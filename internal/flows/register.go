package flows

import (
	"context"
	"time"
)

// RegisterResult is the flow-local registration response shape.
type RegisterResult struct {
	UserID            string
	VerificationToken string
}

// RegisterMetrics carries metric IDs needed by the register flow.
type RegisterMetrics struct {
	RegisterSuccess     int
	RegisterFailure     int
	RegisterRateLimited int
}

// RegisterEvents carries audit event names used by the register flow.
type RegisterEvents struct {
	RegisterSuccess     string
	RegisterFailure     string
	RegisterRateLimited string
}

// RegisterErrors carries host-level sentinel errors used by the register flow.
type RegisterErrors struct {
	EngineNotReady error
	AccountExists  error
	RateLimited    error
	PasswordPolicy error
}

// RegisterDeps captures registration flow dependencies.
type RegisterDeps struct {
	Now                 func() time.Time
	ClientIPFromContext func(context.Context) string

	CheckRegisterRate func(ctx context.Context, ip string) error

	ValidatePassword func(plaintext string) error
	HashPassword     func(plaintext string) (string, error)

	NewUserID func() string
	// CreateUser persists the new credential record. It must report
	// exists=true when the identifier is already taken, including when a
	// concurrent registration wins the insert race.
	CreateUser func(ctx context.Context, userID, identifier, passwordHash string, createdAt int64) (exists bool, err error)

	IssueVerificationToken func(userID string) (string, error)

	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, userID, sessionID string, cause error, meta func() map[string]string)

	Metrics RegisterMetrics
	Events  RegisterEvents
	Errors  RegisterErrors
}

// RunRegister creates a credential record and, when configured, an email
// verification token for the new account.
func RunRegister(ctx context.Context, identifier, password string, deps RegisterDeps) (*RegisterResult, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, string, error, func() map[string]string) {}
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.HashPassword == nil || deps.NewUserID == nil || deps.CreateUser == nil {
		return nil, deps.Errors.EngineNotReady
	}

	ip := deps.ClientIPFromContext(ctx)

	if deps.CheckRegisterRate != nil {
		if err := deps.CheckRegisterRate(ctx, ip); err != nil {
			deps.MetricInc(deps.Metrics.RegisterRateLimited)
			deps.EmitAudit(ctx, deps.Events.RegisterRateLimited, false, "", "", deps.Errors.RateLimited, func() map[string]string {
				return map[string]string{
					"identifier": identifier,
				}
			})
			return nil, deps.Errors.RateLimited
		}
	}

	if deps.ValidatePassword != nil {
		if err := deps.ValidatePassword(password); err != nil {
			deps.MetricInc(deps.Metrics.RegisterFailure)
			deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, "", "", err, func() map[string]string {
				return map[string]string{
					"identifier": identifier,
					"reason":     "password_policy",
				}
			})
			return nil, err
		}
	}

	hash, err := deps.HashPassword(password)
	if err != nil {
		deps.MetricInc(deps.Metrics.RegisterFailure)
		deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, "", "", err, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "hashing",
			}
		})
		return nil, err
	}
	password = ""

	userID := deps.NewUserID()
	exists, err := deps.CreateUser(ctx, userID, identifier, hash, deps.Now().Unix())
	if err != nil {
		deps.MetricInc(deps.Metrics.RegisterFailure)
		deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, "", "", err, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "store",
			}
		})
		return nil, err
	}
	if exists {
		deps.MetricInc(deps.Metrics.RegisterFailure)
		deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, "", "", deps.Errors.AccountExists, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "identifier_taken",
			}
		})
		return nil, deps.Errors.AccountExists
	}

	result := &RegisterResult{UserID: userID}
	if deps.IssueVerificationToken != nil {
		token, err := deps.IssueVerificationToken(userID)
		if err != nil {
			deps.MetricInc(deps.Metrics.RegisterFailure)
			deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, userID, "", err, func() map[string]string {
				return map[string]string{
					"identifier": identifier,
					"reason":     "verification_token",
				}
			})
			return nil, err
		}
		result.VerificationToken = token
	}

	deps.MetricInc(deps.Metrics.RegisterSuccess)
	deps.EmitAudit(ctx, deps.Events.RegisterSuccess, true, userID, "", nil, func() map[string]string {
		return map[string]string{
			"identifier": identifier,
		}
	})
	return result, nil
}
