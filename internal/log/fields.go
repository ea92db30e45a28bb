package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldActorID     = "actor_id"
	FieldActorRole   = "actor_role"
	FieldBudgetID    = "budget_id"
	FieldCategoryID  = "category_id"
	FieldExpenseID   = "expense_id"
	FieldStatus      = "status"
	FieldFromStatus  = "from_status"
	FieldAmountCents = "amount_cents"
	FieldEventID     = "event_id"
	FieldAttempt     = "attempt"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentApproval  = "approval"
	ComponentReporting = "reporting"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentNotifier  = "notifier"
	ComponentRelay     = "relay"
	ComponentSheets    = "sheets"
	ComponentExport    = "export"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
)

// Operations defines standard operation names
const (
	OpCreate     = "create"
	OpRead       = "read"
	OpUpdate     = "update"
	OpArchive    = "archive"
	OpList       = "list"
	OpTransition = "transition"
	OpNotify     = "notify"
	OpExport     = "export"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error message; nil errors are ignored.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithTransition adds the fields describing an approval decision.
func (f LogFields) WithTransition(expenseID int64, from, to, actorID string) LogFields {
	f[FieldExpenseID] = expenseID
	f[FieldFromStatus] = from
	f[FieldStatus] = to
	f[FieldActorID] = actorID
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
