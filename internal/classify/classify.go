// Package classify maps raw upstream text fields onto the fixed categorical
// vehicle schema. All classifiers are pure, case-insensitive substring
// matchers driven by ordered rule tables: the first matching rule wins, so
// classification order is an inspectable artifact rather than a side effect
// of nested conditionals.
package classify

import (
	"strings"

	"github.com/drivebase/catalog-cli/internal/model"
)

// rule is one entry of a classifier table. A rule matches when every token
// in all is present and, if any is non-empty, at least one token in any is
// present. Tokens are matched as lowercase substrings.
type rule[T any] struct {
	all   []string
	any   []string
	value T
}

func (r rule[T]) matches(s string) bool {
	for _, tok := range r.all {
		if !strings.Contains(s, tok) {
			return false
		}
	}
	if len(r.any) == 0 {
		return len(r.all) > 0
	}
	for _, tok := range r.any {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}

func classify[T any](table []rule[T], s string) (T, bool) {
	var zero T
	if s == "" {
		return zero, false
	}
	s = strings.ToLower(s)
	for _, r := range table {
		if r.matches(s) {
			return r.value, true
		}
	}
	return zero, false
}

var drivetrainRules = []rule[model.Drivetrain]{
	{any: []string{"front"}, value: model.DriveFront},
	{any: []string{"rear"}, value: model.DriveRear},
	{any: []string{"4-wheel", "4wd"}, value: model.DriveFour},
	{any: []string{"all-wheel", "awd"}, value: model.DriveAllWheel},
}

// Drivetrain maps an upstream drive description ("Front-Wheel Drive") to the
// drivetrain enumeration. Empty input yields no classification.
func Drivetrain(s string) (model.Drivetrain, bool) {
	return classify(drivetrainRules, s)
}

// Composite fuels must be checked before their single-fuel components so that
// "Regular Gasoline and Electricity" lands on the hybrid category.
var fuelRules = []rule[model.FuelClass]{
	{all: []string{"electric", "gasoline"}, value: model.FuelGasolineElectric},
	{all: []string{"electric", "diesel"}, value: model.FuelDieselElectric},
	{all: []string{"lpg", "gasoline"}, value: model.FuelGasolineLPG},
	{any: []string{"electric"}, value: model.FuelElectric},
	{any: []string{"diesel"}, value: model.FuelDiesel},
	{any: []string{"gasoline", "regular", "premium", "midgrade"}, value: model.FuelGasoline},
	{any: []string{"e85", "ethanol"}, value: model.FuelOther},
	{any: []string{"hydrogen", "natural gas"}, value: model.FuelOther},
}

// Fuel maps an upstream fuel description to the closed fuel enumeration.
// Every non-empty input classifies: anything the table does not recognize is
// FuelOther. Empty input yields no classification.
func Fuel(s string) (model.FuelClass, bool) {
	if s == "" {
		return "", false
	}
	if v, ok := classify(fuelRules, s); ok {
		return v, true
	}
	return model.FuelOther, true
}

var transmissionRules = []rule[model.TransmissionClass]{
	{any: []string{"automatic", "auto"}, value: model.TransmissionAutomatic},
	{any: []string{"manual"}, value: model.TransmissionMechanical},
	{any: []string{"cvt", "variable", "variator"}, value: model.TransmissionVariator},
	{any: []string{"semi", "automated", "amt", "dual", "dct"}, value: model.TransmissionSemiAutomatic},
}

// Transmission maps an upstream transmission description to the closed
// transmission enumeration. Non-empty unrecognized input is TransmissionOther;
// empty input yields no classification.
func Transmission(s string) (model.TransmissionClass, bool) {
	if s == "" {
		return "", false
	}
	if v, ok := classify(transmissionRules, s); ok {
		return v, true
	}
	return model.TransmissionOther, true
}

// Model-name hints outrank the vehicle class field, but only for these four
// styles. The asymmetry matches upstream data quirks and is intentional.
var modelNameRules = []rule[model.BodyStyle]{
	{any: []string{"sedan"}, value: model.BodySedan},
	{any: []string{"coupe"}, value: model.BodyCoupe},
	{any: []string{"convertible", "cabriolet"}, value: model.BodyConvertible},
	{any: []string{"wagon"}, value: model.BodyWagon},
}

var vehicleClassRules = []rule[model.BodyStyle]{
	{any: []string{"pickup", "truck"}, value: model.BodyPickup},
	{any: []string{"van", "minivan"}, value: model.BodyVan},
	{any: []string{"suv", "sport utility", "special purpose"}, value: model.BodySUV},
	{any: []string{"wagon"}, value: model.BodyWagon},
	{any: []string{"compact", "subcompact"}, value: model.BodyHatchback},
	{any: []string{"two seater", "coupe"}, value: model.BodyCoupe},
	{any: []string{"sedan", "midsize", "large car"}, value: model.BodySedan},
}

// BodyStyle derives a body style from the vehicle class field and the model
// name. An empty vehicle class yields no classification even when the model
// name carries a hint; callers may apply a default on absence.
func BodyStyle(vclass, modelName string) (model.BodyStyle, bool) {
	if vclass == "" {
		return "", false
	}
	if v, ok := classify(modelNameRules, modelName); ok {
		return v, true
	}
	return classify(vehicleClassRules, vclass)
}

// SeatCount estimates seating from the vehicle class, defaulting to 4.
// Pickups only get the 5-seat crew-cab figure when the model name says so.
func SeatCount(vclass, modelName string) int {
	vclass = strings.ToLower(vclass)
	modelName = strings.ToLower(modelName)
	switch {
	case strings.Contains(vclass, "two seater"):
		return 2
	case strings.Contains(vclass, "van"), strings.Contains(vclass, "minivan"):
		return 7
	case strings.Contains(vclass, "pickup") && strings.Contains(modelName, "crew"):
		return 5
	case strings.Contains(vclass, "suv"), strings.Contains(vclass, "sport utility"):
		return 5
	default:
		return 4
	}
}
