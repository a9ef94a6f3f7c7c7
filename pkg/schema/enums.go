package schema

// Discipline identifies the engineering discipline of a drawing.
type Discipline string

const (
	DisciplineArchitectural  Discipline = "A"
	DisciplineStructural     Discipline = "S"
	DisciplineMechanical     Discipline = "M"
	DisciplineElectrical     Discipline = "E"
	DisciplinePlumbing       Discipline = "P"
	DisciplineCivil          Discipline = "C"
	DisciplineLandscape      Discipline = "L"
	DisciplineFireProtection Discipline = "FP"
)

var disciplines = map[Discipline]struct{}{
	DisciplineArchitectural:  {},
	DisciplineStructural:     {},
	DisciplineMechanical:     {},
	DisciplineElectrical:     {},
	DisciplinePlumbing:       {},
	DisciplineCivil:          {},
	DisciplineLandscape:      {},
	DisciplineFireProtection: {},
}

// ValidDiscipline reports whether d is a member of the declared discipline set.
func ValidDiscipline(d Discipline) bool {
	_, ok := disciplines[d]
	return ok
}

// DrawingStatus tracks the lifecycle of a drawing version.
type DrawingStatus string

const (
	StatusDraft      DrawingStatus = "draft"
	StatusIssued     DrawingStatus = "issued"
	StatusApproved   DrawingStatus = "approved"
	StatusSuperseded DrawingStatus = "superseded"
	StatusVoid       DrawingStatus = "void"
)

var drawingStatuses = map[DrawingStatus]struct{}{
	StatusDraft:      {},
	StatusIssued:     {},
	StatusApproved:   {},
	StatusSuperseded: {},
	StatusVoid:       {},
}

// ValidDrawingStatus reports whether s is a member of the declared status set.
func ValidDrawingStatus(s DrawingStatus) bool {
	_, ok := drawingStatuses[s]
	return ok
}

// Current reports whether a drawing with status s counts as the current
// version of its drawing number. Superseded and void versions never do.
func (s DrawingStatus) Current() bool {
	return s != StatusSuperseded && s != StatusVoid
}

// ComponentType categorizes building components.
type ComponentType string

const (
	ComponentWall           ComponentType = "wall"
	ComponentDoor           ComponentType = "door"
	ComponentWindow         ComponentType = "window"
	ComponentRoof           ComponentType = "roof"
	ComponentFloor          ComponentType = "floor"
	ComponentCeiling        ComponentType = "ceiling"
	ComponentHVAC           ComponentType = "hvac"
	ComponentStructural     ComponentType = "structural"
	ComponentPlumbing       ComponentType = "plumbing"
	ComponentElectrical     ComponentType = "electrical"
	ComponentFireProtection ComponentType = "fire_protection"
)

var componentTypes = map[ComponentType]struct{}{
	ComponentWall:           {},
	ComponentDoor:           {},
	ComponentWindow:         {},
	ComponentRoof:           {},
	ComponentFloor:          {},
	ComponentCeiling:        {},
	ComponentHVAC:           {},
	ComponentStructural:     {},
	ComponentPlumbing:       {},
	ComponentElectrical:     {},
	ComponentFireProtection: {},
}

// ValidComponentType reports whether t is a member of the declared set.
func ValidComponentType(t ComponentType) bool {
	_, ok := componentTypes[t]
	return ok
}

// DecisionStatus tracks the lifecycle of a design decision.
type DecisionStatus string

const (
	DecisionPending     DecisionStatus = "pending"
	DecisionApproved    DecisionStatus = "approved"
	DecisionRejected    DecisionStatus = "rejected"
	DecisionImplemented DecisionStatus = "implemented"
)

var decisionStatuses = map[DecisionStatus]struct{}{
	DecisionPending:     {},
	DecisionApproved:    {},
	DecisionRejected:    {},
	DecisionImplemented: {},
}

// ValidDecisionStatus reports whether s is a member of the declared set.
func ValidDecisionStatus(s DecisionStatus) bool {
	_, ok := decisionStatuses[s]
	return ok
}

// ComplianceStatus tracks the state of a REQUIRES edge.
type ComplianceStatus string

const (
	Compliant    ComplianceStatus = "compliant"
	NonCompliant ComplianceStatus = "non_compliant"
	UnderReview  ComplianceStatus = "under_review"
)

var complianceStatuses = map[ComplianceStatus]struct{}{
	Compliant:    {},
	NonCompliant: {},
	UnderReview:  {},
}

// ValidComplianceStatus reports whether s is a member of the declared set.
func ValidComplianceStatus(s ComplianceStatus) bool {
	_, ok := complianceStatuses[s]
	return ok
}
