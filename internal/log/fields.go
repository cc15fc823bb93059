package log

import "github.com/shopspring/decimal"

// Attribute keys shared across packages.
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldOwner         = "owner"
	FieldYear          = "year"
	FieldMonth         = "month"
	FieldKind          = "kind"
	FieldAmount        = "amount"
	FieldCategory      = "category"
	FieldTransactionID = "transaction_id"
	FieldBudgetID      = "budget_id"
	FieldSeverity      = "severity"
	FieldPercentage    = "percentage"
)

// Component names, one per binary or layer.
const (
	ComponentApp         = "app"
	ComponentAPI         = "api"
	ComponentHTTP        = "http"
	ComponentTransaction = "transaction"
	ComponentBudget      = "budget"
	ComponentDashboard   = "dashboard"
	ComponentWorker      = "worker"
	ComponentSecurity    = "security"
	ComponentRateLimit   = "rate_limit"
	ComponentTrace       = "trace"
	ComponentReport      = "report"
)

// Operation names.
const (
	OpCreate  = "create"
	OpRead    = "read"
	OpUpdate  = "update"
	OpUpsert  = "upsert"
	OpDelete  = "delete"
	OpList    = "list"
	OpPublish = "publish"
	OpNotify  = "notify"
)

// Fields accumulates key/value pairs in the order they were added, so log
// lines keep a stable layout.
type Fields []any

func NewFields() Fields {
	return make(Fields, 0, 8)
}

func (f Fields) add(key string, value any) Fields {
	return append(f, key, value)
}

// Get returns the last value recorded under key.
func (f Fields) Get(key string) (any, bool) {
	for i := len(f) - 2; i >= 0; i -= 2 {
		if f[i] == key {
			return f[i+1], true
		}
	}
	return nil, false
}

func (f Fields) WithError(err error) Fields {
	if err == nil {
		return f
	}
	return f.add(FieldError, err.Error())
}

func (f Fields) WithOperation(op string) Fields { return f.add(FieldOperation, op) }
func (f Fields) WithOwner(owner string) Fields  { return f.add(FieldOwner, owner) }
func (f Fields) WithClientIP(ip string) Fields  { return f.add(FieldClientIP, ip) }

// WithTransaction adds the identifying fields of a ledger entry.
func (f Fields) WithTransaction(id, kind string, amount decimal.Decimal, category string) Fields {
	return f.add(FieldTransactionID, id).
		add(FieldKind, kind).
		add(FieldAmount, amount.String()).
		add(FieldCategory, category)
}

// WithBudget adds the identifying fields of a budget.
func (f Fields) WithBudget(id, category string, month, year int) Fields {
	return f.add(FieldBudgetID, id).
		add(FieldCategory, category).
		add(FieldMonth, month).
		add(FieldYear, year)
}

// WithHTTPRequest adds method and path, plus query and user agent when set.
func (f Fields) WithHTTPRequest(method, path, query, userAgent string) Fields {
	f = f.add(FieldMethod, method).add(FieldPath, path)
	if query != "" {
		f = f.add(FieldQuery, query)
	}
	if userAgent != "" {
		f = f.add(FieldUserAgent, userAgent)
	}
	return f
}

func (f Fields) WithHTTPResponse(statusCode int, durationMs int64) Fields {
	return f.add(FieldStatusCode, statusCode).add(FieldDuration, durationMs)
}

// ToSlice returns the pairs as slog arguments.
func (f Fields) ToSlice() []any {
	return []any(f)
}
