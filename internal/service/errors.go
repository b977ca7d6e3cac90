package service

// Kind is the stable, machine-readable identifier of a service failure.
type Kind string

const (
	KindInvalidCredentials       Kind = "invalid_credentials"
	KindInvalidSession           Kind = "invalid_session"
	KindWeakPassword             Kind = "weak_password"
	KindInvalidPhoneFormat       Kind = "invalid_phone_format"
	KindInvalidInput             Kind = "invalid_input"
	KindDuplicateEmail           Kind = "duplicate_email"
	KindNotAdministrator         Kind = "not_administrator"
	KindDuplicateWorkshopName    Kind = "duplicate_workshop_name"
	KindNoActiveSubscription     Kind = "no_active_subscription"
	KindWorkshopQuotaExceeded    Kind = "workshop_quota_exceeded"
	KindLicenseNotFound          Kind = "license_not_found"
	KindCompanyAlreadySubscribed Kind = "company_already_subscribed"
	KindWorkshopNotFound         Kind = "workshop_not_found"
	KindWorkshopNotOwned         Kind = "workshop_not_owned"
	KindUserAlreadyHasCompany    Kind = "user_already_has_company"
)

// Error is a user-visible, non-fatal failure.  Any other error returned by
// a service is a store or infrastructure failure.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches on Kind so a sentinel matches an Error carrying a custom message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newError(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

var (
	ErrInvalidCredentials       = newError(KindInvalidCredentials, "invalid email or password")
	ErrInvalidSession           = newError(KindInvalidSession, "session is missing, expired or invalid")
	ErrWeakPassword             = newError(KindWeakPassword, "password must have at least 8 characters, including a letter and a digit")
	ErrInvalidPhoneFormat       = newError(KindInvalidPhoneFormat, "phone must be 8 to 20 digits, spaces, +, - or parentheses")
	ErrDuplicateEmail           = newError(KindDuplicateEmail, "email is already registered")
	ErrNotAdministrator         = newError(KindNotAdministrator, "only company administrators can perform this action")
	ErrDuplicateWorkshopName    = newError(KindDuplicateWorkshopName, "a workshop with this name already exists")
	ErrNoActiveSubscription     = newError(KindNoActiveSubscription, "company has no active subscription")
	ErrWorkshopQuotaExceeded    = newError(KindWorkshopQuotaExceeded, "workshop limit of the current license reached")
	ErrLicenseNotFound          = newError(KindLicenseNotFound, "license not found")
	ErrCompanyAlreadySubscribed = newError(KindCompanyAlreadySubscribed, "company already has an active subscription")
	ErrWorkshopNotFound         = newError(KindWorkshopNotFound, "workshop not found")
	ErrWorkshopNotOwned         = newError(KindWorkshopNotOwned, "workshop does not belong to your company")
	ErrUserAlreadyHasCompany    = newError(KindUserAlreadyHasCompany, "user already has a company")
)

// invalidInput reports a malformed field.
func invalidInput(msg string) *Error { return newError(KindInvalidInput, msg) }
