package schema

import "strconv"

// Registry maps each entity kind to a constructor that rebuilds the entity
// from its flat record form. Ingestion and storage adapters use it to resolve
// the concrete type when reading heterogeneous data.
var Registry = map[Kind]func(Record) Entity{
	KindDrawing: func(r Record) Entity {
		return Drawing{
			ID:            r["id"],
			DrawingNumber: r["drawing_number"],
			Version:       r["version"],
			Discipline:    Discipline(r["discipline"]),
			Title:         r["title"],
			Date:          getTime(r, "date"),
			FilePath:      r["file_path"],
			FileType:      r["file_type"],
			Scale:         r["scale"],
			SheetSize:     r["sheet_size"],
			Status:        DrawingStatus(r["status"]),
			Description:   r["description"],
		}
	},
	KindComponent: func(r Record) Entity {
		return Component{
			ID:            r["id"],
			Type:          ComponentType(r["type"]),
			Name:          r["name"],
			Description:   r["description"],
			Specification: r["specification"],
			Manufacturer:  r["manufacturer"],
			Model:         r["model"],
			Quantity:      getFloat(r, "quantity"),
			Unit:          r["unit"],
		}
	},
	KindRoom: func(r Record) Entity {
		return Room{
			ID:             r["id"],
			Number:         r["number"],
			Name:           r["name"],
			Floor:          r["floor"],
			Area:           getFloat(r, "area"),
			UseType:        r["use_type"],
			OccupancyClass: r["occupancy_class"],
			Capacity:       getInt(r, "capacity"),
		}
	},
	KindDecision: func(r Record) Entity {
		return Decision{
			ID:             r["id"],
			Type:           r["type"],
			Date:           getTime(r, "date"),
			Title:          r["title"],
			Description:    r["description"],
			Impact:         r["impact"],
			Status:         DecisionStatus(r["status"]),
			CostImpact:     getFloat(r, "cost_impact"),
			ScheduleImpact: getInt(r, "schedule_impact"),
		}
	},
	KindPerson: func(r Record) Entity {
		active, _ := strconv.ParseBool(r["active"])
		return Person{
			ID:      r["id"],
			Name:    r["name"],
			Role:    r["role"],
			Company: r["company"],
			Email:   r["email"],
			Active:  active,
		}
	},
	KindRequirement: func(r Record) Entity {
		return Requirement{
			ID:          r["id"],
			Type:        r["type"],
			Source:      r["source"],
			Section:     r["section"],
			Description: r["description"],
			Value:       r["value"],
			AppliesTo:   r["applies_to"],
		}
	},
	KindMilestone: func(r Record) Entity {
		return Milestone{
			ID:                 r["id"],
			Name:               r["name"],
			Abbreviation:       r["abbreviation"],
			Date:               getTime(r, "date"),
			Status:             r["status"],
			PercentageComplete: getFloat(r, "percentage_complete"),
		}
	},
}
