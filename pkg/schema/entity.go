package schema

import "time"

// Kind identifies one of the seven entity kinds in the graph.
type Kind string

const (
	KindDrawing     Kind = "Drawing"
	KindComponent   Kind = "Component"
	KindRoom        Kind = "Room"
	KindDecision    Kind = "Decision"
	KindPerson      Kind = "Person"
	KindRequirement Kind = "Requirement"
	KindMilestone   Kind = "Milestone"
)

// Entity is implemented by all graph node types. Entities are immutable once
// created except for status fields that transition via well-defined edges.
type Entity interface {
	Kind() Kind
	EntityID() string
	Validate() error
}

// Drawing represents one version of a CAD drawing or BIM model.
// At most one Drawing exists per (drawing_number, version) pair, and across
// a drawing number exactly one version may hold a current status.
type Drawing struct {
	ID            string        `json:"id"`
	DrawingNumber string        `json:"drawing_number"`
	Version       string        `json:"version"`
	Discipline    Discipline    `json:"discipline"`
	Title         string        `json:"title"`
	Date          time.Time     `json:"date"`
	FilePath      string        `json:"file_path"`
	FileType      string        `json:"file_type"`
	Scale         string        `json:"scale,omitempty"`
	SheetSize     string        `json:"sheet_size,omitempty"`
	Status        DrawingStatus `json:"status"`
	Description   string        `json:"description,omitempty"`
}

func (d Drawing) Kind() Kind       { return KindDrawing }
func (d Drawing) EntityID() string { return d.ID }

func (d Drawing) Validate() error {
	switch {
	case d.ID == "":
		return &SchemaError{Kind: KindDrawing, Field: "id", Reason: "required field is absent"}
	case d.DrawingNumber == "":
		return &SchemaError{Kind: KindDrawing, Field: "drawing_number", Reason: "required field is absent"}
	case d.Version == "":
		return &SchemaError{Kind: KindDrawing, Field: "version", Reason: "required field is absent"}
	}
	if !ValidDiscipline(d.Discipline) {
		return &SchemaError{Kind: KindDrawing, Field: "discipline", Value: string(d.Discipline), Reason: "not in declared discipline set"}
	}
	if !ValidDrawingStatus(d.Status) {
		return &SchemaError{Kind: KindDrawing, Field: "status", Value: string(d.Status), Reason: "not in declared status set"}
	}
	return nil
}

// Component is a building element or assembly. Components carry no temporal
// state; their compliance is tracked on REQUIRES edges.
type Component struct {
	ID            string        `json:"id"`
	Type          ComponentType `json:"type"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Specification string        `json:"specification,omitempty"`
	Manufacturer  string        `json:"manufacturer,omitempty"`
	Model         string        `json:"model,omitempty"`
	Quantity      float64       `json:"quantity,omitempty"`
	Unit          string        `json:"unit,omitempty"`
}

func (c Component) Kind() Kind       { return KindComponent }
func (c Component) EntityID() string { return c.ID }

func (c Component) Validate() error {
	if c.ID == "" {
		return &SchemaError{Kind: KindComponent, Field: "id", Reason: "required field is absent"}
	}
	if c.Name == "" {
		return &SchemaError{Kind: KindComponent, Field: "name", Reason: "required field is absent"}
	}
	if !ValidComponentType(c.Type) {
		return &SchemaError{Kind: KindComponent, Field: "type", Value: string(c.Type), Reason: "not in declared component type set"}
	}
	return nil
}

// Room is a physical space or zone in the building.
type Room struct {
	ID             string  `json:"id"`
	Number         string  `json:"number"`
	Name           string  `json:"name"`
	Floor          string  `json:"floor"`
	Area           float64 `json:"area"`
	UseType        string  `json:"use_type"`
	OccupancyClass string  `json:"occupancy_class,omitempty"`
	Capacity       int     `json:"capacity,omitempty"`
}

func (r Room) Kind() Kind       { return KindRoom }
func (r Room) EntityID() string { return r.ID }

func (r Room) Validate() error {
	switch {
	case r.ID == "":
		return &SchemaError{Kind: KindRoom, Field: "id", Reason: "required field is absent"}
	case r.Number == "":
		return &SchemaError{Kind: KindRoom, Field: "number", Reason: "required field is absent"}
	case r.Floor == "":
		return &SchemaError{Kind: KindRoom, Field: "floor", Reason: "required field is absent"}
	}
	return nil
}

// Decision is a design change, RFI response, or change order.
type Decision struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"`
	Date           time.Time      `json:"date"`
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	Impact         string         `json:"impact"`
	Status         DecisionStatus `json:"status"`
	CostImpact     float64        `json:"cost_impact,omitempty"`
	ScheduleImpact int            `json:"schedule_impact,omitempty"`
}

func (d Decision) Kind() Kind       { return KindDecision }
func (d Decision) EntityID() string { return d.ID }

func (d Decision) Validate() error {
	if d.ID == "" {
		return &SchemaError{Kind: KindDecision, Field: "id", Reason: "required field is absent"}
	}
	if d.Title == "" {
		return &SchemaError{Kind: KindDecision, Field: "title", Reason: "required field is absent"}
	}
	if !ValidDecisionStatus(d.Status) {
		return &SchemaError{Kind: KindDecision, Field: "status", Value: string(d.Status), Reason: "not in declared status set"}
	}
	return nil
}

// Person is a project team member.
type Person struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	Company string `json:"company"`
	Email   string `json:"email,omitempty"`
	Active  bool   `json:"active"`
}

func (p Person) Kind() Kind       { return KindPerson }
func (p Person) EntityID() string { return p.ID }

func (p Person) Validate() error {
	if p.ID == "" {
		return &SchemaError{Kind: KindPerson, Field: "id", Reason: "required field is absent"}
	}
	if p.Name == "" {
		return &SchemaError{Kind: KindPerson, Field: "name", Reason: "required field is absent"}
	}
	return nil
}

// Requirement is a code clause, standard, or specification constraint.
type Requirement struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Source      string `json:"source"`
	Section     string `json:"section"`
	Description string `json:"description"`
	Value       string `json:"value,omitempty"`
	AppliesTo   string `json:"applies_to,omitempty"`
}

func (r Requirement) Kind() Kind       { return KindRequirement }
func (r Requirement) EntityID() string { return r.ID }

func (r Requirement) Validate() error {
	switch {
	case r.ID == "":
		return &SchemaError{Kind: KindRequirement, Field: "id", Reason: "required field is absent"}
	case r.Source == "":
		return &SchemaError{Kind: KindRequirement, Field: "source", Reason: "required field is absent"}
	case r.Section == "":
		return &SchemaError{Kind: KindRequirement, Field: "section", Reason: "required field is absent"}
	}
	return nil
}

// Milestone is a project phase, submission, or deadline.
type Milestone struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Abbreviation       string    `json:"abbreviation"`
	Date               time.Time `json:"date"`
	Status             string    `json:"status"`
	PercentageComplete float64   `json:"percentage_complete"`
}

func (m Milestone) Kind() Kind       { return KindMilestone }
func (m Milestone) EntityID() string { return m.ID }

func (m Milestone) Validate() error {
	if m.ID == "" {
		return &SchemaError{Kind: KindMilestone, Field: "id", Reason: "required field is absent"}
	}
	if m.Name == "" {
		return &SchemaError{Kind: KindMilestone, Field: "name", Reason: "required field is absent"}
	}
	if m.PercentageComplete < 0 || m.PercentageComplete > 100 {
		return &SchemaError{Kind: KindMilestone, Field: "percentage_complete", Reason: "must be between 0 and 100"}
	}
	return nil
}
