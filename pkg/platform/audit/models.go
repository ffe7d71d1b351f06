package audit

import (
	"time"

	id "github.com/eshbtc/travelcheck-sub000/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// Presence evidence and generated reports feed immigration and tax
	// filings, so their lifecycle requires tamper-proof storage and long
	// retention.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring:
	// adapter credential issuance and rotation, rejected authentication.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled and aggregated with short retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	Subject   string
	Action    string
	// ResourceType and ResourceID point at the record the action touched
	// (evidence, artifact, report, adapter).
	ResourceType string
	ResourceID   string
	Reason       string
	// IP is the client address, kept for security forensics.
	IP string
	// RequestID is the correlation ID from HTTP request context.
	RequestID string
	// ActorID tracks who performed the action when different from UserID,
	// e.g. an adapter client ingesting on a user's behalf.
	ActorID string
}

type AuditEvent string

const (
	// Evidence events
	EventEvidenceIngested  AuditEvent = "evidence_ingested"
	EventEvidenceRejected  AuditEvent = "evidence_rejected"
	EventEvidenceConfirmed AuditEvent = "evidence_confirmed"
	EventEvidenceDisputed  AuditEvent = "evidence_disputed"

	// Artifact events
	EventArtifactRegistered AuditEvent = "artifact_registered"
	EventArtifactDeleted    AuditEvent = "artifact_deleted"
	EventDuplicateFlagged   AuditEvent = "duplicate_flagged"

	// Report events
	EventReportGenerated        AuditEvent = "report_generated"
	EventReportDeleted          AuditEvent = "report_deleted"
	EventReportExportDownloaded AuditEvent = "report_export_downloaded"

	// Adapter credential events
	EventAdapterRegistered AuditEvent = "adapter_registered"
	EventAdapterKeyRotated AuditEvent = "adapter_key_rotated"
)

// eventCategories maps each audit event to its category.
// Compliance: evidence and report lifecycle, long retention required.
// Security: adapter credential handling, SIEM integration.
// Operations: routine activity, can be sampled.
var eventCategories = map[AuditEvent]EventCategory{
	EventEvidenceIngested:  CategoryCompliance,
	EventEvidenceConfirmed: CategoryCompliance,
	EventEvidenceDisputed:  CategoryCompliance,
	EventReportGenerated:   CategoryCompliance,
	EventReportDeleted:     CategoryCompliance,

	EventAdapterRegistered: CategorySecurity,
	EventAdapterKeyRotated: CategorySecurity,

	EventEvidenceRejected:       CategoryOperations,
	EventArtifactRegistered:     CategoryOperations,
	EventArtifactDeleted:        CategoryOperations,
	EventDuplicateFlagged:       CategoryOperations,
	EventReportExportDownloaded: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Topic names, one per category, so retention is tuned per stream.
const (
	TopicCompliance = "travelcheck.audit.compliance"
	TopicSecurity   = "travelcheck.audit.security"
	TopicOperations = "travelcheck.audit.operations"
)

// TopicFor returns the Kafka topic carrying events of the given category.
func TopicFor(category EventCategory) string {
	switch category {
	case CategoryCompliance:
		return TopicCompliance
	case CategorySecurity:
		return TopicSecurity
	default:
		return TopicOperations
	}
}

// Topics lists every audit topic for bootstrap and consumption.
func Topics() []string {
	return []string{TopicCompliance, TopicSecurity, TopicOperations}
}
