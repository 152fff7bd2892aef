package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldDurationHuman = "duration_human"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldCategory      = "category"
	FieldEntryID       = "entry_id"
	FieldDescription   = "description"
	FieldAmount        = "amount"
	FieldBudget        = "budget"
	FieldTotalIncome   = "total_income"
	FieldTotalExpense  = "total_expense"
	FieldPercentage    = "percentage"
	FieldCount         = "count"
	FieldEventID       = "event_id"
)

// Components defines standard component names
const (
	ComponentApp    = "app"
	ComponentHTTP   = "http"
	ComponentLedger = "ledger"
	ComponentAMQP   = "amqp"
	ComponentEvents = "events"
)

// Operations defines standard operation names
const (
	OpAdd       = "add"
	OpAddBatch  = "add_batch"
	OpDelete    = "delete"
	OpRecompute = "recompute"
	OpRead      = "read"
	OpPublish   = "publish"
	OpConsume   = "consume"
	OpValidate  = "validate"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	if requestID != "" {
		f[FieldRequestID] = requestID
	}
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithEntry adds entry-related fields
func (f LogFields) WithEntry(category string, id int, desc, amount string) LogFields {
	f[FieldCategory] = category
	f[FieldEntryID] = id
	f[FieldDescription] = desc
	f[FieldAmount] = amount
	return f
}

// WithBudget adds aggregate fields
func (f LogFields) WithBudget(budget, income, expense string, percentage int) LogFields {
	f[FieldBudget] = budget
	f[FieldTotalIncome] = income
	f[FieldTotalExpense] = expense
	f[FieldPercentage] = percentage
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
