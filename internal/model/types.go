package model

import "time"

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Variant tags a ContentItem and a generation request.
type Variant string

const (
	VariantImage Variant = "image"
	VariantVideo Variant = "video"
	VariantText  Variant = "text"
)

var Variants = []Variant{VariantImage, VariantVideo, VariantText}

func (v Variant) Valid() bool {
	return v == VariantImage || v == VariantVideo || v == VariantText
}

// CreditCost is the fixed price of one successful generation.
func (v Variant) CreditCost() int64 {
	switch v {
	case VariantImage:
		return 5
	case VariantVideo:
		return 10
	case VariantText:
		return 2
	}
	return 0
}

// ContentItem is a gallery entry. Image and video items carry URL and Prompt;
// text items carry Content, Topic, Platform and Tone.
type ContentItem struct {
	ID        int64     `json:"id"`
	Type      Variant   `json:"type"`
	CreatedAt time.Time `json:"createdAt"`

	URL    string `json:"url,omitempty"`
	Prompt string `json:"prompt,omitempty"`

	Content  string `json:"content,omitempty"`
	Topic    string `json:"topic,omitempty"`
	Platform string `json:"platform,omitempty"`
	Tone     string `json:"tone,omitempty"`
}

func NewMediaItem(id int64, variant Variant, url, prompt string, createdAt time.Time) ContentItem {
	return ContentItem{ID: id, Type: variant, CreatedAt: createdAt, URL: url, Prompt: prompt}
}

func NewTextItem(id int64, content, topic, platform, tone string, createdAt time.Time) ContentItem {
	return ContentItem{
		ID:        id,
		Type:      VariantText,
		CreatedAt: createdAt,
		Content:   content,
		Topic:     topic,
		Platform:  platform,
		Tone:      tone,
	}
}

// Title is the line shown for an item in the gallery and the publisher list.
func (c ContentItem) Title() string {
	if c.Type == VariantText {
		return c.Topic
	}
	return c.Prompt
}

type EntryType string

const (
	EntryDebit  EntryType = "DEBIT"
	EntryCredit EntryType = "CREDIT"
)

type TransactionType string

const (
	TxSpend    TransactionType = "SPEND"
	TxRecharge TransactionType = "RECHARGE"
)

type LedgerEntry struct {
	ID          int64           `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	Type        TransactionType `json:"type"`
	EntryType   EntryType       `json:"entry_type"`
	Amount      int64           `json:"amount"`
	Reference   string          `json:"reference,omitempty"`
	Description string          `json:"description,omitempty"`
	Balance     int64           `json:"balance"`
}

type RequestStatus string

const (
	RequestIdle       RequestStatus = "idle"
	RequestValidating RequestStatus = "validating"
	RequestRejected   RequestStatus = "rejected"
	RequestInFlight   RequestStatus = "in_flight"
	RequestSucceeded  RequestStatus = "succeeded"
	RequestFailed     RequestStatus = "failed"
)

func (s RequestStatus) Terminal() bool {
	return s == RequestSucceeded || s == RequestFailed || s == RequestRejected
}

type GenerationRequest struct {
	ID           string        `json:"id"`
	SessionID    string        `json:"session_id"`
	Variant      Variant       `json:"variant"`
	Input        string        `json:"input"`
	CreditCost   int64         `json:"credit_cost"`
	Status       RequestStatus `json:"status"`
	ContentID    int64         `json:"content_id,omitempty"`
	ErrorCode    string        `json:"error_code,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	TraceID      string        `json:"trace_id"`
	CreatedAt    time.Time     `json:"created_at"`
	EndedAt      time.Time     `json:"ended_at,omitempty"`
}

type PaymentState string

const (
	PaymentClosed     PaymentState = "closed"
	PaymentOpen       PaymentState = "open"
	PaymentProcessing PaymentState = "processing"
	PaymentConfirmed  PaymentState = "confirmed"
	PaymentCancelled  PaymentState = "cancelled"
)

type PendingPayment struct {
	ID         string       `json:"id"`
	Amount     int64        `json:"amount"`
	PriceCents int64        `json:"price_cents"`
	Custom     bool         `json:"custom"`
	State      PaymentState `json:"state"`
	OpenedAt   time.Time    `json:"opened_at"`
	SettledAt  time.Time    `json:"settled_at,omitempty"`
}

type DeliveryOutcome string

const (
	DeliveryDelivered        DeliveryOutcome = "delivered"
	DeliveryBestEffortFailed DeliveryOutcome = "best_effort_failed"
	DeliverySkipped          DeliveryOutcome = "skipped"
)

type StudioEventType string

const (
	EventBalanceChanged    StudioEventType = "balance_changed"
	EventContentAdded      StudioEventType = "content_added"
	EventGenerationUpdated StudioEventType = "generation_updated"
	EventPaymentUpdated    StudioEventType = "payment_updated"
	EventPublishCompleted  StudioEventType = "publish_completed"
	EventViewChanged       StudioEventType = "view_changed"
)

type StudioEvent struct {
	EventID   string          `json:"event_id"`
	Seq       int64           `json:"seq"`
	SessionID string          `json:"session_id"`
	Type      StudioEventType `json:"type"`
	TS        time.Time       `json:"ts"`
	Payload   map[string]any  `json:"payload"`
}
