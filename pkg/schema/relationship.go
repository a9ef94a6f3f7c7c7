package schema

// RelKind identifies one of the ten directed relationship kinds.
type RelKind string

const (
	RelSupersedes  RelKind = "SUPERSEDES"
	RelAffects     RelKind = "AFFECTS"
	RelContains    RelKind = "CONTAINS"
	RelLocatedIn   RelKind = "LOCATED_IN"
	RelRequires    RelKind = "REQUIRES"
	RelApprovedBy  RelKind = "APPROVED_BY"
	RelMadeBy      RelKind = "MADE_BY"
	RelModifies    RelKind = "MODIFIES"
	RelReferences  RelKind = "REFERENCES"
	RelSubmittedAt RelKind = "SUBMITTED_AT"
)

// endpoint constraints per relationship kind: which entity kinds may appear
// as source and target of an edge.
var relEndpoints = map[RelKind]struct {
	src []Kind
	dst []Kind
}{
	RelSupersedes:  {src: []Kind{KindDrawing}, dst: []Kind{KindDrawing}},
	RelAffects:     {src: []Kind{KindDrawing}, dst: []Kind{KindDrawing, KindComponent}},
	RelContains:    {src: []Kind{KindDrawing}, dst: []Kind{KindComponent}},
	RelLocatedIn:   {src: []Kind{KindComponent}, dst: []Kind{KindRoom}},
	RelRequires:    {src: []Kind{KindComponent}, dst: []Kind{KindRequirement}},
	RelApprovedBy:  {src: []Kind{KindDecision, KindDrawing}, dst: []Kind{KindPerson}},
	RelMadeBy:      {src: []Kind{KindDecision}, dst: []Kind{KindPerson}},
	RelModifies:    {src: []Kind{KindDecision}, dst: []Kind{KindComponent, KindDrawing}},
	RelReferences:  {src: []Kind{KindDrawing}, dst: []Kind{KindDrawing}},
	RelSubmittedAt: {src: []Kind{KindDrawing}, dst: []Kind{KindMilestone}},
}

// ValidRelKind reports whether k is one of the declared relationship kinds.
func ValidRelKind(k RelKind) bool {
	_, ok := relEndpoints[k]
	return ok
}

// ValidateEndpoints checks that an edge of kind k is allowed between the
// given source and target entity kinds.
func ValidateEndpoints(k RelKind, src, dst Kind) error {
	ep, ok := relEndpoints[k]
	if !ok {
		return &SchemaError{Field: "relationship", Value: string(k), Reason: "unknown relationship kind"}
	}
	if !containsKind(ep.src, src) {
		return &ValidationError{Kind: src, Field: "source", Value: string(k), Reason: "entity kind not allowed as source"}
	}
	if !containsKind(ep.dst, dst) {
		return &ValidationError{Kind: dst, Field: "target", Value: string(k), Reason: "entity kind not allowed as target"}
	}
	return nil
}

func containsKind(kinds []Kind, k Kind) bool {
	for _, c := range kinds {
		if c == k {
			return true
		}
	}
	return false
}

// Edge field names shared between ingestion and the storage engines.
const (
	FieldSeverity         = "severity"
	FieldImpactType       = "impact_type"
	FieldComplianceStatus = "compliance_status"
	FieldReason           = "reason"
	FieldChangesSummary   = "changes_summary"
	FieldDate             = "date"
)

// ValidateEdgeFields checks kind-specific attribute constraints. Only the
// REQUIRES compliance state is a closed set; other attributes are free text.
func ValidateEdgeFields(k RelKind, fields Record) error {
	if k != RelRequires {
		return nil
	}
	status, ok := fields[FieldComplianceStatus]
	if !ok || status == "" {
		return &SchemaError{Field: FieldComplianceStatus, Reason: "required field is absent"}
	}
	if !ValidComplianceStatus(ComplianceStatus(status)) {
		return &SchemaError{Field: FieldComplianceStatus, Value: status, Reason: "not in declared compliance set"}
	}
	return nil
}
