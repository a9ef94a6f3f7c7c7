package schema

import (
	"strconv"
	"time"
)

// Record is the flat key-value form every entity and relationship serializes
// to. Dates are ISO-8601 strings and enums their string codes, so records can
// be persisted by any storage engine without knowledge of the schema.
type Record map[string]string

func (r Record) clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func putString(r Record, key, val string) {
	if val != "" {
		r[key] = val
	}
}

func putFloat(r Record, key string, val float64) {
	if val != 0 {
		r[key] = strconv.FormatFloat(val, 'f', -1, 64)
	}
}

func putInt(r Record, key string, val int) {
	if val != 0 {
		r[key] = strconv.Itoa(val)
	}
}

func putTime(r Record, key string, val time.Time) {
	if !val.IsZero() {
		r[key] = val.UTC().Format(time.RFC3339)
	}
}

func getFloat(r Record, key string) float64 {
	v, err := strconv.ParseFloat(r[key], 64)
	if err != nil {
		return 0
	}
	return v
}

func getInt(r Record, key string) int {
	v, err := strconv.Atoi(r[key])
	if err != nil {
		return 0
	}
	return v
}

func getTime(r Record, key string) time.Time {
	t, err := time.Parse(time.RFC3339, r[key])
	if err != nil {
		return time.Time{}
	}
	return t
}

// Serialize validates the entity and converts it to its flat record form.
func Serialize(e Entity) (Record, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	r := Record{"id": e.EntityID(), "kind": string(e.Kind())}

	switch v := e.(type) {
	case Drawing:
		r["drawing_number"] = v.DrawingNumber
		r["version"] = v.Version
		r["discipline"] = string(v.Discipline)
		r["status"] = string(v.Status)
		putString(r, "title", v.Title)
		putTime(r, "date", v.Date)
		putString(r, "file_path", v.FilePath)
		putString(r, "file_type", v.FileType)
		putString(r, "scale", v.Scale)
		putString(r, "sheet_size", v.SheetSize)
		putString(r, "description", v.Description)
	case Component:
		r["type"] = string(v.Type)
		r["name"] = v.Name
		putString(r, "description", v.Description)
		putString(r, "specification", v.Specification)
		putString(r, "manufacturer", v.Manufacturer)
		putString(r, "model", v.Model)
		putFloat(r, "quantity", v.Quantity)
		putString(r, "unit", v.Unit)
	case Room:
		r["number"] = v.Number
		r["floor"] = v.Floor
		putString(r, "name", v.Name)
		putFloat(r, "area", v.Area)
		putString(r, "use_type", v.UseType)
		putString(r, "occupancy_class", v.OccupancyClass)
		putInt(r, "capacity", v.Capacity)
	case Decision:
		r["type"] = v.Type
		r["title"] = v.Title
		r["status"] = string(v.Status)
		putTime(r, "date", v.Date)
		putString(r, "description", v.Description)
		putString(r, "impact", v.Impact)
		putFloat(r, "cost_impact", v.CostImpact)
		putInt(r, "schedule_impact", v.ScheduleImpact)
	case Person:
		r["name"] = v.Name
		r["active"] = strconv.FormatBool(v.Active)
		putString(r, "role", v.Role)
		putString(r, "company", v.Company)
		putString(r, "email", v.Email)
	case Requirement:
		r["type"] = v.Type
		r["source"] = v.Source
		r["section"] = v.Section
		putString(r, "description", v.Description)
		putString(r, "value", v.Value)
		putString(r, "applies_to", v.AppliesTo)
	case Milestone:
		r["name"] = v.Name
		putString(r, "abbreviation", v.Abbreviation)
		putTime(r, "date", v.Date)
		putString(r, "status", v.Status)
		r["percentage_complete"] = strconv.FormatFloat(v.PercentageComplete, 'f', -1, 64)
	default:
		return nil, &SchemaError{Kind: e.Kind(), Field: "kind", Value: string(e.Kind()), Reason: "kind not registered"}
	}

	return r, nil
}

// Deserialize reconstructs an entity of the given kind from its record form
// and validates the result.
func Deserialize(r Record, kind Kind) (Entity, error) {
	build, ok := Registry[kind]
	if !ok {
		return nil, &SchemaError{Kind: kind, Field: "kind", Value: string(kind), Reason: "kind not registered"}
	}
	e := build(r)
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}
