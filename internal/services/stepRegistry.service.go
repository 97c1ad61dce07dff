package services

import (
	. "drivemate/internal/models"
)

// StepDefinition is one entry of the fixed handover checklist. Order in the
// registry defines default traversal.
type StepDefinition struct {
	Name           HandoverStepName `json:"name"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	RequiredFacets []string         `json:"requiredFacets,omitempty"`
}

var (
	ExteriorFacets = []string{
		"exterior_front",
		"exterior_back",
		"exterior_left",
		"exterior_right",
	}
	InteriorFacets = []string{
		"interior_dashboard",
		"interior_seats",
		"fuel_gauge",
		"odometer",
	}
)

var stepRegistry = []StepDefinition{
	{
		Name:        StepNavigation,
		Title:       "Meet at the vehicle",
		Description: "Navigate to the pickup location and confirm arrival",
	},
	{
		Name:        StepIdentity,
		Title:       "Identity verification",
		Description: "Check the other party's ID and driving licence",
	},
	{
		Name:           StepExteriorInspection,
		Title:          "Exterior inspection",
		Description:    "Photograph all four sides of the vehicle",
		RequiredFacets: ExteriorFacets,
	},
	{
		Name:           StepInteriorInspection,
		Title:          "Interior inspection",
		Description:    "Photograph dashboard, seats, fuel gauge and odometer",
		RequiredFacets: InteriorFacets,
	},
	{
		Name:        StepDamage,
		Title:       "Damage documentation",
		Description: "Record any existing damage; none is a valid outcome",
	},
	{
		Name:        StepFuelMileage,
		Title:       "Fuel & mileage",
		Description: "Record the fuel level and odometer reading",
	},
	{
		Name:        StepKeyTransfer,
		Title:       "Key transfer",
		Description: "Hand over the keys and confirm spares",
	},
	{
		Name:        StepSignature,
		Title:       "Digital signature",
		Description: "Sign to acknowledge the recorded condition",
	},
}

// GetSteps returns the ordered, fixed step catalog. Pure; callers must not
// mutate the returned slice.
func GetSteps() []StepDefinition {
	return stepRegistry
}

// StepIndex returns a step's position in the registry, or -1 for unknown names.
func StepIndex(name HandoverStepName) int {
	for i, def := range stepRegistry {
		if def.Name == name {
			return i
		}
	}
	return -1
}

// FirstIncompleteIndex scans in registry order and returns the index of the
// first incomplete step. The second result is false when every step is
// complete. Out-of-order completion is allowed; the first gap still wins.
func FirstIncompleteIndex(steps []*HandoverStepCompletion) (int, bool) {
	for i, step := range steps {
		if !step.IsCompleted {
			return i, true
		}
	}
	return 0, false
}

// StepState is the typed view of a step's captured local data, parsed from
// the opaque completion payload the client submits.
type StepState struct {
	Decision            string
	PhotoFacets         []string
	FuelLevel           *int
	Mileage             *int
	KeyHandedOver       bool
	KeyReceiptConfirmed bool
	SparesAccounted     bool
	Signature           string
}

// StepStateFromData parses the wire payload into a StepState. Unknown keys
// are ignored; numbers arrive as float64 from JSON.
func StepStateFromData(data map[string]any) StepState {
	state := StepState{}

	if decision, ok := data["decision"].(string); ok {
		state.Decision = decision
	}

	if photos, ok := data["photos"].([]any); ok {
		for _, p := range photos {
			photo, ok := p.(map[string]any)
			if !ok {
				continue
			}
			if facet, ok := photo["type"].(string); ok {
				state.PhotoFacets = append(state.PhotoFacets, facet)
			}
		}
	}

	if fuel, ok := toInt(data["fuelLevel"]); ok {
		state.FuelLevel = &fuel
	}
	if mileage, ok := toInt(data["mileage"]); ok {
		state.Mileage = &mileage
	}

	state.KeyHandedOver, _ = data["keyHandedOver"].(bool)
	state.KeyReceiptConfirmed, _ = data["keyReceiptConfirmed"].(bool)
	state.SparesAccounted, _ = data["sparesAccounted"].(bool)

	if signature, ok := data["signature"].(string); ok {
		state.Signature = signature
	}

	return state
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}

// CanComplete is the per-step completion predicate. Pure: it only inspects
// the captured local state.
func CanComplete(name HandoverStepName, state StepState) bool {
	switch name {
	case StepNavigation:
		// Arrival is confirmed as part of the step's own interaction.
		return true
	case StepIdentity:
		// Any recorded decision (accept or reject) satisfies the step.
		return true
	case StepExteriorInspection:
		return hasDistinctFacets(state.PhotoFacets, ExteriorFacets)
	case StepInteriorInspection:
		return hasDistinctFacets(state.PhotoFacets, InteriorFacets)
	case StepDamage:
		// Zero damage is a valid outcome.
		return true
	case StepFuelMileage:
		return state.FuelLevel != nil &&
			*state.FuelLevel >= 0 && *state.FuelLevel <= 100 &&
			state.Mileage != nil && *state.Mileage > 0
	case StepKeyTransfer:
		return state.KeyHandedOver && state.KeyReceiptConfirmed && state.SparesAccounted
	case StepSignature:
		return state.Signature != ""
	default:
		return false
	}
}

// hasDistinctFacets requires every facet of the required set to be present at
// least once. Distinctness, not count: four photos of the same facet do not
// satisfy the inspection.
func hasDistinctFacets(captured []string, required []string) bool {
	seen := make(map[string]bool, len(captured))
	for _, facet := range captured {
		seen[facet] = true
	}

	for _, facet := range required {
		if !seen[facet] {
			return false
		}
	}
	return true
}
